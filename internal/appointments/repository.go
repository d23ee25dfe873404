package appointments

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, appt Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	GetOwned(ctx context.Context, id, patientID string) (Appointment, error)
	GetAssigned(ctx context.Context, id, doctorID string) (Appointment, error)
	// UpdateIf applies set to the document matching filter and returns the
	// updated appointment. The status precondition lives in the filter, so
	// the transition is a single compare-and-swap on the document.
	UpdateIf(ctx context.Context, filter, set bson.M) (Appointment, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Appointment, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, appt Appointment) error {
	_, err := r.col.InsertOne(ctx, appt)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Appointment, error) {
	var appt Appointment
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&appt)
	return appt, err
}

func (r *MongoRepository) GetOwned(ctx context.Context, id, patientID string) (Appointment, error) {
	var appt Appointment
	err := r.col.FindOne(ctx, bson.M{"_id": id, "patientId": patientID}).Decode(&appt)
	return appt, err
}

func (r *MongoRepository) GetAssigned(ctx context.Context, id, doctorID string) (Appointment, error) {
	var appt Appointment
	err := r.col.FindOne(ctx, bson.M{"_id": id, "doctorId": doctorID}).Decode(&appt)
	return appt, err
}

func (r *MongoRepository) UpdateIf(ctx context.Context, filter, set bson.M) (Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Appointment
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

func buildListFilter(filter ListFilter) bson.M {
	query := bson.M{}
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

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, buildListFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Appointment, 0)
	for cursor.Next(ctx) {
		var appt Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, err
		}
		items = append(items, appt)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, buildListFilter(filter))
}
