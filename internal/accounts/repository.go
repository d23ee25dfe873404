package accounts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, acc Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByReferralCode(ctx context.Context, code string) (Account, error)
	Update(ctx context.Context, id string, set bson.M) (Account, error)
	MarkVerified(ctx context.Context, email string) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter ListFilter, sort bson.D, limit, offset int64) ([]Account, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	CountCreatedBetween(ctx context.Context, role string, from, to time.Time) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, acc Account) error {
	_, err := r.col.InsertOne(ctx, acc)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Account, error) {
	var acc Account
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&acc)
	return acc, err
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	var acc Account
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&acc)
	return acc, err
}

func (r *MongoRepository) GetByReferralCode(ctx context.Context, code string) (Account, error) {
	var acc Account
	err := r.col.FindOne(ctx, bson.M{"referralCode": code}).Decode(&acc)
	return acc, err
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Account, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Account
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

func (r *MongoRepository) MarkVerified(ctx context.Context, email string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func buildFilter(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.Name != "" {
		query["name"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Name, Options: "i"}}
	}
	if filter.SpecialtyID != "" {
		query["specialtyIds"] = filter.SpecialtyID
	}
	return query
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, sort bson.D, limit, offset int64) ([]Account, error) {
	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}
	opts := options.Find().SetSort(sort).SetLimit(limit).SetSkip(offset)

	cursor, err := r.col.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Account, 0)
	for cursor.Next(ctx) {
		var acc Account
		if err := cursor.Decode(&acc); err != nil {
			return nil, err
		}
		items = append(items, acc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, buildFilter(filter))
}

func (r *MongoRepository) CountCreatedBetween(ctx context.Context, role string, from, to time.Time) (int64, error) {
	query := bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	}
	if role != "" {
		query["role"] = role
	}
	return r.col.CountDocuments(ctx, query)
}
