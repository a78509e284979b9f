// Package memrecords provides an in-memory records.Store used by tests and
// by the "memory" store backend. Documents are kept as bson-cloned maps so
// reads and writes see the same value shapes the MongoDB adapter produces.
package memrecords

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/salesmake/internal/app/store/records"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ records.Store = (*Store)(nil)

// Call is one recorded store invocation.
type Call struct {
	Op         string
	Collection string
}

type failure struct {
	op         string
	collection string
	err        error
}

// Store is a mutex-guarded map of collection name to documents in
// insertion order.
type Store struct {
	mu          sync.Mutex
	collections map[string][]records.Record
	calls       []Call
	failures    []failure
}

// New returns an empty Store.
func New() *Store {
	return &Store{collections: map[string][]records.Record{}}
}

// FailOn makes every subsequent op on collection return err wrapped in a
// *records.StoreError. An empty op or collection matches any.
func (s *Store) FailOn(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, collection: collection, err: err})
}

// ClearFailures removes every injected failure.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Calls returns the ops recorded so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CountCalls returns how many recorded calls match op and collection.
func (s *Store) CountCalls(op, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op && c.Collection == collection {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// begin records the call and returns an injected failure, if any.
// Caller must hold s.mu.
func (s *Store) begin(op, collection string) error {
	s.calls = append(s.calls, Call{Op: op, Collection: collection})
	for _, f := range s.failures {
		if (f.op == "" || f.op == op) && (f.collection == "" || f.collection == collection) {
			return &records.StoreError{Op: op, Collection: collection, Err: f.err}
		}
	}
	return nil
}

func (s *Store) Select(ctx context.Context, collection string, q records.Query) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(records.OpSelect, collection); err != nil {
		return nil, err
	}
	return s.selectLocked(collection, q)
}

func (s *Store) SelectOne(ctx context.Context, collection string, q records.Query) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(records.OpSelectOne, collection); err != nil {
		return nil, err
	}
	q.Limit = 1
	recs, err := s.selectLocked(collection, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, records.ErrNotFound
	}
	return recs[0], nil
}

func (s *Store) Insert(ctx context.Context, collection string, rec records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(records.OpInsert, collection); err != nil {
		return nil, err
	}
	doc, err := records.Clone(rec)
	if err != nil {
		return nil, &records.StoreError{Op: records.OpInsert, Collection: collection, Err: err}
	}
	if doc == nil {
		doc = records.Record{}
	}
	if id, ok := doc["_id"]; !ok || id == nil || id == primitive.NilObjectID {
		doc["_id"] = primitive.NewObjectID()
	}
	for _, existing := range s.collections[collection] {
		if reflect.DeepEqual(existing["_id"], doc["_id"]) {
			return nil, &records.StoreError{Op: records.OpInsert, Collection: collection, Err: records.ErrDuplicate}
		}
	}
	s.collections[collection] = append(s.collections[collection], doc)

	out, _ := records.Clone(doc)
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection string, f records.Filter, patch records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(records.OpUpdate, collection); err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}
	norm, err := records.Clone(patch)
	if err != nil {
		return &records.StoreError{Op: records.OpUpdate, Collection: collection, Err: err}
	}
	for _, doc := range s.collections[collection] {
		if !matches(doc, f) {
			continue
		}
		for k, v := range norm {
			setPath(doc, k, v)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, f records.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(records.OpDelete, collection); err != nil {
		return 0, err
	}
	docs := s.collections[collection]
	kept := docs[:0]
	var n int64
	for _, doc := range docs {
		if matches(doc, f) {
			n++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return n, nil
}

// selectLocked runs q against collection. Caller must hold s.mu.
func (s *Store) selectLocked(collection string, q records.Query) ([]records.Record, error) {
	var out []records.Record
	for _, doc := range s.collections[collection] {
		if matches(doc, q.Filter) {
			out = append(out, doc)
		}
	}
	sortBy(out, q.SortBy)
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}

	res := make([]records.Record, 0, len(out))
	for _, doc := range out {
		c, err := records.Clone(doc)
		if err != nil {
			return nil, &records.StoreError{Op: records.OpSelect, Collection: collection, Err: err}
		}
		if err := s.applyJoins(c, q.Joins); err != nil {
			return nil, err
		}
		res = append(res, project(c, q.Fields, q.Joins))
	}
	return res, nil
}

func (s *Store) applyJoins(doc records.Record, joins []records.Join) error {
	for _, j := range joins {
		local := doc[j.LocalField]
		var matched []records.Record
		for _, other := range s.collections[j.Collection] {
			if local != nil && reflect.DeepEqual(lookupPath(other, j.ForeignField), local) {
				matched = append(matched, other)
			}
		}
		sortBy(matched, j.SortBy)

		arr := bson.A{}
		for _, m := range matched {
			c, err := records.Clone(m)
			if err != nil {
				return &records.StoreError{Op: records.OpSelect, Collection: j.Collection, Err: err}
			}
			if err := s.applyJoins(c, j.Joins); err != nil {
				return err
			}
			arr = append(arr, project(c, j.Fields, j.Joins))
		}
		doc[j.As] = arr
	}
	return nil
}

func matches(doc records.Record, f records.Filter) bool {
	for _, c := range f.Conds() {
		got := lookupPath(doc, c.Field)
		if c.In {
			found := false
			for _, v := range c.Values {
				if reflect.DeepEqual(got, normalize(v)) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, normalize(c.Value)) {
			return false
		}
	}
	return true
}

// normalize converts a filter value into the representation a stored
// document would hold for it.
func normalize(v any) any {
	rec, err := records.Clone(records.Record{"v": v})
	if err != nil {
		return v
	}
	return rec["v"]
}

func lookupPath(doc records.Record, path string) any {
	cur := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(bson.M)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func setPath(doc records.Record, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(bson.M)
		if !ok {
			next = bson.M{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func project(doc records.Record, fields []string, joins []records.Join) records.Record {
	if len(fields) == 0 {
		return doc
	}
	out := records.Record{"_id": doc["_id"]}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	for _, j := range joins {
		out[j.As] = doc[j.As]
	}
	return out
}

func sortBy(docs []records.Record, field string) {
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, k int) bool {
		return less(lookupPath(docs[i], field), lookupPath(docs[k], field))
	})
}

func less(a, b any) bool {
	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int32:
		return toFloat(av) < toFloat(b)
	case int64:
		return toFloat(av) < toFloat(b)
	case float64:
		return av < toFloat(b)
	case primitive.ObjectID:
		if bv, ok := b.(primitive.ObjectID); ok {
			return av.Hex() < bv.Hex()
		}
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
