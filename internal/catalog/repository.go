package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entity is any catalog document able to report its own id.
type Entity interface {
	GetID() string
}

// Repository is the shared Mongo access layer for the reference-data
// collections. All five catalog resources have identical persistence needs,
// so the CRUD surface is written once.
type Repository[T Entity] struct {
	col *mongo.Collection
}

func NewRepository[T Entity](col *mongo.Collection) *Repository[T] {
	return &Repository[T]{col: col}
}

func (r *Repository[T]) Create(ctx context.Context, doc T) error {
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	return doc, err
}

// GetMany resolves a batch of ids in one query. Missing ids are simply
// absent from the result; the caller decides whether that is an error.
func (r *Repository[T]) GetMany(ctx context.Context, ids []string) (map[string]T, error) {
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]T, len(ids))
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.GetID()] = doc
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository[T]) Update(ctx context.Context, id string, set bson.M) (T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated T
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	return updated, err
}

func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *Repository[T]) List(ctx context.Context, filter bson.M, sort bson.D, limit, offset int64) ([]T, error) {
	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}
	opts := options.Find().SetSort(sort).SetLimit(limit).SetSkip(offset)

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.col.CountDocuments(ctx, filter)
}
