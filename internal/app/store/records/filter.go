// internal/app/store/records/filter.go
package records

import "go.mongodb.org/mongo-driver/bson"

// Cond is a single filter predicate on a top-level (or dotted) field.
type Cond struct {
	Field  string
	In     bool
	Value  any
	Values []any
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter struct {
	conds []Cond
}

// Eq starts a filter matching records whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{}.Eq(field, v)
}

// In starts a filter matching records whose field is one of vs.
func In(field string, vs ...any) Filter {
	return Filter{}.In(field, vs...)
}

// Eq adds an equality condition.
func (f Filter) Eq(field string, v any) Filter {
	out := make([]Cond, len(f.conds), len(f.conds)+1)
	copy(out, f.conds)
	return Filter{conds: append(out, Cond{Field: field, Value: v})}
}

// In adds a membership condition.
func (f Filter) In(field string, vs ...any) Filter {
	out := make([]Cond, len(f.conds), len(f.conds)+1)
	copy(out, f.conds)
	return Filter{conds: append(out, Cond{Field: field, In: true, Values: vs})}
}

// Conds returns the conditions in the order they were added.
func (f Filter) Conds() []Cond {
	return f.conds
}

// Empty reports whether the filter has no conditions.
func (f Filter) Empty() bool {
	return len(f.conds) == 0
}

// BSON renders the filter as a MongoDB query document.
func (f Filter) BSON() bson.M {
	m := bson.M{}
	for _, c := range f.conds {
		if c.In {
			vals := c.Values
			if vals == nil {
				vals = []any{}
			}
			m[c.Field] = bson.M{"$in": vals}
			continue
		}
		m[c.Field] = c.Value
	}
	return m
}
