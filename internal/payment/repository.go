package payment

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository interface {
	Create(ctx context.Context, order Order) error
	GetByOrderID(ctx context.Context, orderID string) (Order, error)
	// Complete flips PENDING to COMPLETED. The status guard in the filter
	// makes the transition run at most once; a replayed callback matches
	// nothing and reports false.
	Complete(ctx context.Context, orderID, bankCode, transactionNo string, at time.Time) (bool, error)
	Fail(ctx context.Context, orderID, code string) (bool, error)
	// Refund flips COMPLETED to REFUNDED, once.
	Refund(ctx context.Context, orderID string) (bool, error)
	List(ctx context.Context, status string, limit, offset int64) ([]Order, error)
}

type TransactionRepository interface {
	Append(ctx context.Context, txn Transaction) error
	GetByOrderRef(ctx context.Context, orderRef, txType string) (Transaction, error)
	List(ctx context.Context, filter TransactionFilter, limit, offset int64) ([]Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
}

type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(col *mongo.Collection) *MongoOrderRepository {
	return &MongoOrderRepository{col: col}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order Order) error {
	_, err := r.col.InsertOne(ctx, order)
	return err
}

func (r *MongoOrderRepository) GetByOrderID(ctx context.Context, orderID string) (Order, error) {
	var order Order
	err := r.col.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	return order, err
}

func (r *MongoOrderRepository) Complete(ctx context.Context, orderID, bankCode, transactionNo string, at time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"orderId": orderID, "status": OrderStatusPending},
		bson.M{"$set": bson.M{
			"status":        OrderStatusCompleted,
			"bankCode":      bankCode,
			"transactionNo": transactionNo,
			"completedAt":   at,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoOrderRepository) Fail(ctx context.Context, orderID, code string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"orderId": orderID, "status": OrderStatusPending},
		bson.M{"$set": bson.M{"status": OrderStatusFailed, "failCode": code}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoOrderRepository) Refund(ctx context.Context, orderID string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"orderId": orderID, "status": OrderStatusCompleted},
		bson.M{"$set": bson.M{"status": OrderStatusRefunded}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoOrderRepository) List(ctx context.Context, status string, limit, offset int64) ([]Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Order, 0)
	for cursor.Next(ctx) {
		var order Order
		if err := cursor.Decode(&order); err != nil {
			return nil, err
		}
		items = append(items, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type MongoTransactionRepository struct {
	col *mongo.Collection
}

func NewTransactionRepository(col *mongo.Collection) *MongoTransactionRepository {
	return &MongoTransactionRepository{col: col}
}

func (r *MongoTransactionRepository) Append(ctx context.Context, txn Transaction) error {
	_, err := r.col.InsertOne(ctx, txn)
	return err
}

func (r *MongoTransactionRepository) GetByOrderRef(ctx context.Context, orderRef, txType string) (Transaction, error) {
	var txn Transaction
	err := r.col.FindOne(ctx, bson.M{"orderRef": orderRef, "type": txType}).Decode(&txn)
	return txn, err
}

func buildTxnFilter(filter TransactionFilter) bson.M {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	created := bson.M{}
	if !filter.From.IsZero() {
		created["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		created["$lt"] = filter.To
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}
	return query
}

func (r *MongoTransactionRepository) List(ctx context.Context, filter TransactionFilter, limit, offset int64) ([]Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, buildTxnFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Transaction, 0)
	for cursor.Next(ctx) {
		var txn Transaction
		if err := cursor.Decode(&txn); err != nil {
			return nil, err
		}
		items = append(items, txn)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoTransactionRepository) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	return r.col.CountDocuments(ctx, buildTxnFilter(filter))
}
