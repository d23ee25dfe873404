package cases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, c Case) error
	// GetByID never returns soft-deleted cases.
	GetByID(ctx context.Context, id string) (Case, error)
	UpdateIf(ctx context.Context, filter, set bson.M) (Case, error)
	// PushOffer appends the offer in a single update so a concurrent writer
	// can never observe a half-written prescription.
	PushOffer(ctx context.Context, id string, offer Offer) (Case, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, c Case) error {
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Case, error) {
	var c Case
	err := r.col.FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&c)
	return c, err
}

func (r *MongoRepository) UpdateIf(ctx context.Context, filter, set bson.M) (Case, error) {
	filter["deleted"] = false
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Case
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return Case{}, err
	}
	return updated, nil
}

func (r *MongoRepository) PushOffer(ctx context.Context, id string, offer Offer) (Case, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Case
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{
			"$push": bson.M{"offers": offer},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		opts,
	).Decode(&updated)
	if err != nil {
		return Case{}, err
	}
	return updated, nil
}

func (r *MongoRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func buildListFilter(filter ListFilter) bson.M {
	query := bson.M{"deleted": false}
	if filter.PatientID != "" {
		query["patientId"] = filter.PatientID
	}
	if filter.DoctorID != "" {
		query["doctorId"] = filter.DoctorID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, buildListFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Case, 0)
	for cursor.Next(ctx) {
		var c Case
		if err := cursor.Decode(&c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, buildListFilter(filter))
}
