// internal/app/store/records/mongo.go
package records

import (
	"context"
	"errors"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	db *mongo.Database
}

// NewMongo returns a Store over db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

// Select returns every record matching q. Queries with joins run as an
// aggregation with one $lookup stage per join.
func (m *Mongo) Select(ctx context.Context, collection string, q Query) ([]Record, error) {
	c := m.db.Collection(collection)

	var (
		cur *mongo.Cursor
		err error
	)
	if len(q.Joins) > 0 {
		cur, err = c.Aggregate(ctx, pipeline(q))
	} else {
		opts := options.Find()
		if proj := projection(q.Fields, nil); proj != nil {
			opts.SetProjection(proj)
		}
		if q.SortBy != "" {
			opts.SetSort(bson.D{{Key: q.SortBy, Value: 1}})
		}
		if q.Limit > 0 {
			opts.SetLimit(q.Limit)
		}
		cur, err = c.Find(ctx, q.Filter.BSON(), opts)
	}
	if err != nil {
		return nil, wrap(OpSelect, collection, err)
	}
	defer cur.Close(ctx)

	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap(OpSelect, collection, err)
	}
	return out, nil
}

// SelectOne returns the first record matching q, or ErrNotFound.
func (m *Mongo) SelectOne(ctx context.Context, collection string, q Query) (Record, error) {
	if len(q.Joins) > 0 {
		q.Limit = 1
		recs, err := m.Select(ctx, collection, q)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, ErrNotFound
		}
		return recs[0], nil
	}

	opts := options.FindOne()
	if proj := projection(q.Fields, nil); proj != nil {
		opts.SetProjection(proj)
	}
	if q.SortBy != "" {
		opts.SetSort(bson.D{{Key: q.SortBy, Value: 1}})
	}

	var rec Record
	err := m.db.Collection(collection).FindOne(ctx, q.Filter.BSON(), opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(OpSelectOne, collection, err)
	}
	return rec, nil
}

// Insert stores rec, assigning an ObjectID when _id is absent, and returns
// the stored record.
func (m *Mongo) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	doc := make(Record, len(rec)+1)
	for k, v := range rec {
		doc[k] = v
	}
	if id, ok := doc["_id"]; !ok || id == nil || id == primitive.NilObjectID {
		doc["_id"] = primitive.NewObjectID()
	}
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return nil, wrap(OpInsert, collection, err)
	}
	return doc, nil
}

// Update applies patch with $set to every record matching f.
func (m *Mongo) Update(ctx context.Context, collection string, f Filter, patch Record) error {
	if len(patch) == 0 {
		return nil
	}
	_, err := m.db.Collection(collection).UpdateMany(ctx, f.BSON(), bson.M{"$set": patch})
	if err != nil {
		return wrap(OpUpdate, collection, err)
	}
	return nil
}

// Delete removes every record matching f and returns how many were removed.
func (m *Mongo) Delete(ctx context.Context, collection string, f Filter) (int64, error) {
	res, err := m.db.Collection(collection).DeleteMany(ctx, f.BSON())
	if err != nil {
		return 0, wrap(OpDelete, collection, err)
	}
	return res.DeletedCount, nil
}

func wrap(op, collection string, err error) error {
	if wafflemongo.IsDup(err) {
		return &StoreError{Op: op, Collection: collection, Err: errors.Join(ErrDuplicate, err)}
	}
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// pipeline builds the aggregation for a query with joins.
func pipeline(q Query) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: q.Filter.BSON()}},
	}
	if q.SortBy != "" {
		p = append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: q.SortBy, Value: 1}}}})
	}
	if q.Limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	for _, j := range q.Joins {
		p = append(p, lookup(j))
	}
	if proj := projection(q.Fields, q.Joins); proj != nil {
		p = append(p, bson.D{{Key: "$project", Value: proj}})
	}
	return p
}

// lookup renders one join as a correlated $lookup so nested joins and
// per-join sorting/projection can live in its sub-pipeline.
func lookup(j Join) bson.D {
	sub := bson.A{
		bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$" + j.ForeignField, "$$local"}}}},
	}
	if j.SortBy != "" {
		sub = append(sub, bson.M{"$sort": bson.D{{Key: j.SortBy, Value: 1}}})
	}
	for _, nested := range j.Joins {
		sub = append(sub, lookup(nested))
	}
	if proj := projection(j.Fields, j.Joins); proj != nil {
		sub = append(sub, bson.M{"$project": proj})
	}
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":     j.Collection,
		"let":      bson.M{"local": "$" + j.LocalField},
		"pipeline": sub,
		"as":       j.As,
	}}}
}

func projection(fields []string, joins []Join) bson.M {
	if len(fields) == 0 {
		return nil
	}
	proj := bson.M{"_id": 1}
	for _, f := range fields {
		proj[f] = 1
	}
	for _, j := range joins {
		proj[j.As] = 1
	}
	return proj
}
