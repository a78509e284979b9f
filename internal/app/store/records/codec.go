// internal/app/store/records/codec.go
package records

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Encode converts a bson-tagged struct (or map) into a Record.
func Encode(v any) (Record, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return rec, nil
}

// Decode fills out (a pointer to a bson-tagged struct) from rec.
func Decode(rec Record, out any) error {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Clone returns a deep copy of rec. Values come back in their canonical
// bson representation (time.Time as primitive.DateTime, ints as int32/int64,
// nested documents as bson.M, arrays as bson.A).
func Clone(rec Record) (Record, error) {
	if rec == nil {
		return nil, nil
	}
	return Encode(rec)
}

// AsRecord normalizes a nested document value read from a record into a
// Record. It accepts bson.M, bson.D and map[string]any; nil and any other
// type yield an empty Record.
func AsRecord(v any) Record {
	switch t := v.(type) {
	case bson.M:
		out := make(Record, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	case bson.D:
		out := make(Record, len(t))
		for _, e := range t {
			out[e.Key] = e.Value
		}
		return out
	case map[string]any:
		out := make(Record, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	}
	return Record{}
}
