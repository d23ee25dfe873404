package report

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	CountAccounts(ctx context.Context, role string, from, to time.Time) (int64, error)
	CountAppointments(ctx context.Context, from, to time.Time) (int64, error)
	// Revenue sums netAmount over PAYMENT and REFUND ledger entries in the
	// window, so refunds subtract themselves.
	Revenue(ctx context.Context, from, to time.Time) (int64, error)
}

type MongoRepository struct {
	accounts     *mongo.Collection
	appointments *mongo.Collection
	transactions *mongo.Collection
}

func NewRepository(accounts, appointments, transactions *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		accounts:     accounts,
		appointments: appointments,
		transactions: transactions,
	}
}

func (r *MongoRepository) CountAccounts(ctx context.Context, role string, from, to time.Time) (int64, error) {
	return r.accounts.CountDocuments(ctx, bson.M{
		"role":      role,
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoRepository) CountAppointments(ctx context.Context, from, to time.Time) (int64, error) {
	return r.appointments.CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoRepository) Revenue(ctx context.Context, from, to time.Time) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"type":      bson.M{"$in": []string{"PAYMENT", "REFUND"}},
			"createdAt": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$netAmount"},
		}}},
	}

	cursor, err := r.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, err
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, err
	}
	return result.Total, nil
}
