package projectstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dalemusser/salesmake/internal/app/system/htmlsanitize"
	"github.com/dalemusser/salesmake/internal/app/system/limits"
	"github.com/dalemusser/salesmake/internal/domain/models"
)

// ErrInvalidEdit is returned for an edit that does not fit the project schema.
var ErrInvalidEdit = errors.New("invalid project edit")

type valueKind int

const (
	kindString valueKind = iota
	kindCount            // non-negative integer
	kindPercent          // 0..100
	kindList             // list of strings
)

// Top-level fields that can be edited directly.
var topLevelFields = map[string]valueKind{
	"project_name":    kindString,
	"project_info":    kindString,
	"specialist_name": kindString,
	"progress":        kindPercent,
	"emails_sent":     kindCount,
	"meetings_booked": kindCount,
}

// Nested documents and the leaves each one holds.
var nestedFields = map[string]map[string]valueKind{
	"client_info": {
		"name":    kindString,
		"email":   kindString,
		"company": kindString,
	},
	"ideal_customer_profile": {
		"job_titles":      kindList,
		"industry":        kindList,
		"location":        kindList,
		"company_size":    kindList,
		"meeting_links":   kindList,
		"campaign_offers": kindList,
	},
}

// FieldEdit is a validated change to one project field: either a top-level
// field or one leaf of a nested document. Build it with TopLevel, Nested or
// ParseFieldPath; the zero value is not a valid edit.
type FieldEdit struct {
	field  string
	child  string
	nested bool
	value  any
}

// Field returns the top-level field, or the parent document for a nested edit.
func (e FieldEdit) Field() string { return e.field }

// Child returns the nested leaf, or "" for a top-level edit.
func (e FieldEdit) Child() string { return e.child }

// IsNested reports whether the edit addresses a nested leaf.
func (e FieldEdit) IsNested() bool { return e.nested }

// Value returns the normalized value: string, int or []string.
func (e FieldEdit) Value() any { return e.value }

// Path returns the dotted form of the edit.
func (e FieldEdit) Path() string {
	if e.nested {
		return e.field + "." + e.child
	}
	return e.field
}

func (e FieldEdit) valid() bool { return e.field != "" }

// TopLevel builds an edit of a top-level project field.
func TopLevel(field string, value any) (FieldEdit, error) {
	kind, ok := topLevelFields[field]
	if !ok {
		return FieldEdit{}, fmt.Errorf("%w: unknown field %q", ErrInvalidEdit, field)
	}
	v, err := coerce(kind, value)
	if err != nil {
		return FieldEdit{}, fmt.Errorf("%w: %s: %v", ErrInvalidEdit, field, err)
	}
	return FieldEdit{field: field, value: v}, nil
}

// Nested builds an edit of one leaf of a nested project document.
func Nested(parent, child string, value any) (FieldEdit, error) {
	leaves, ok := nestedFields[parent]
	if !ok {
		return FieldEdit{}, fmt.Errorf("%w: unknown nested field %q", ErrInvalidEdit, parent)
	}
	kind, ok := leaves[child]
	if !ok {
		return FieldEdit{}, fmt.Errorf("%w: unknown field %q in %s", ErrInvalidEdit, child, parent)
	}
	v, err := coerce(kind, value)
	if err != nil {
		return FieldEdit{}, fmt.Errorf("%w: %s.%s: %v", ErrInvalidEdit, parent, child, err)
	}
	return FieldEdit{field: parent, child: child, nested: true, value: v}, nil
}

// ParseFieldPath builds an edit from a bare ("emails_sent") or two-level
// dotted ("client_info.email") path.
func ParseFieldPath(path string, value any) (FieldEdit, error) {
	parts := strings.Split(strings.TrimSpace(path), ".")
	switch len(parts) {
	case 1:
		return TopLevel(parts[0], value)
	case 2:
		return Nested(parts[0], parts[1], value)
	}
	return FieldEdit{}, fmt.Errorf("%w: bad field path %q", ErrInvalidEdit, path)
}

func coerce(kind valueKind, v any) (any, error) {
	switch kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return htmlsanitize.PlainText(s), nil
	case kindCount, kindPercent:
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		if kind == kindPercent && n > 100 {
			return nil, fmt.Errorf("must be at most 100")
		}
		return n, nil
	case kindList:
		return toList(v)
	}
	return nil, fmt.Errorf("unsupported value")
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want whole number, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("want whole number, got %q", n)
		}
		return int(i), nil
	case string:
		return ParseCount(n), nil
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return cleanList(l)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list items must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return cleanList(out)
	}
	return nil, fmt.Errorf("want list of strings, got %T", v)
}

// cleanList strips markup, trims and drops blank items. Items longer than
// limits.MaxICPItemLen are rejected.
func cleanList(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(htmlsanitize.PlainText(s))
		if s == "" {
			continue
		}
		if len(s) > limits.MaxICPItemLen {
			return nil, fmt.Errorf("list item longer than %d characters", limits.MaxICPItemLen)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseCount reads a statistic typed by a user. Anything that is not a
// whole number reads as 0, as do negative values.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	// leading-digits semantics: "12abc" reads as 12
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// apply writes the edit into p.
func (e FieldEdit) apply(p *models.Project) {
	if !e.nested {
		switch e.field {
		case "project_name":
			p.Name = e.value.(string)
		case "project_info":
			p.Info = e.value.(string)
		case "specialist_name":
			p.SpecialistName = e.value.(string)
		case "progress":
			p.Progress = e.value.(int)
		case "emails_sent":
			p.EmailsSent = e.value.(int)
		case "meetings_booked":
			p.MeetingsBooked = e.value.(int)
		}
		return
	}

	switch e.field {
	case "client_info":
		s := e.value.(string)
		switch e.child {
		case "name":
			p.ClientInfo.Name = s
		case "email":
			p.ClientInfo.Email = s
		case "company":
			p.ClientInfo.Company = s
		}
	case "ideal_customer_profile":
		p.IdealCustomerProfile.SetSection(e.child, e.value.([]string))
	}
}
