package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agendamento-backend/internal/db"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func NewMongo(cols *db.Collections, placeholderEmail string) *Store {
	return &Store{
		Appointments: &MongoAppointments{col: cols.Appointments, placeholderEmail: placeholderEmail},
		Blocks:       &MongoBlocks{col: cols.Blocks},
		Payments:     &MongoPayments{col: cols.Payments},
		Users:        &MongoUsers{col: cols.Users},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]ingest.Doc, error) {
	defer cursor.Close(ctx)
	docs := make([]ingest.Doc, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, ingest.Doc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

type MongoAppointments struct {
	col              *mongo.Collection
	placeholderEmail string
}

func (r *MongoAppointments) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Appointment, error) {
	cursor, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll(ctx, cursor)
	if err != nil {
		return nil, err
	}
	items := make([]models.Appointment, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ingest.Appointment(doc, r.placeholderEmail))
	}
	return items, nil
}

func (r *MongoAppointments) ListByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"$or": bson.A{bson.M{"date": date}, bson.M{"data": date}}})
}

func (r *MongoAppointments) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	query := bson.M{}
	if filter.Date != "" {
		query["$or"] = bson.A{bson.M{"date": filter.Date}, bson.M{"data": filter.Date}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	items, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if filter.Status == "" {
		return items, nil
	}
	// status aliases only line up after normalization, so this filter runs in memory
	out := items[:0]
	for _, a := range items {
		if a.Status == filter.Status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MongoAppointments) Get(ctx context.Context, id string) (models.Appointment, error) {
	var doc bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Appointment{}, translate(err)
	}
	return ingest.Appointment(ingest.Doc(doc), r.placeholderEmail), nil
}

func (r *MongoAppointments) Insert(ctx context.Context, a models.Appointment) error {
	_, err := r.col.InsertOne(ctx, appointmentDoc(a))
	return translate(err)
}

func (r *MongoAppointments) Upsert(ctx context.Context, a models.Appointment) (bool, error) {
	update := bson.M{
		"$set":         appointmentSet(a),
		"$setOnInsert": bson.M{"createdAt": a.CreatedAt},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, translate(err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoAppointments) Update(ctx context.Context, id string, patch AppointmentPatch) (models.Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	updated := ApplyPatch(current, patch, time.Now())
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": appointmentSet(updated)}); err != nil {
		return models.Appointment{}, translate(err)
	}
	return updated, nil
}

func (r *MongoAppointments) Rewrite(ctx context.Context, a models.Appointment) error {
	update := bson.M{
		"$set":   appointmentSet(a),
		"$unset": unsetFields(legacyAppointmentFields),
	}
	if !a.CreatedAt.IsZero() {
		update["$set"].(bson.M)["createdAt"] = a.CreatedAt
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID}, update)
	return translate(err)
}

func (r *MongoAppointments) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAppointments) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func (r *MongoAppointments) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

type MongoBlocks struct {
	col *mongo.Collection
}

func (r *MongoBlocks) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Block, error) {
	cursor, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll(ctx, cursor)
	if err != nil {
		return nil, err
	}
	items := make([]models.Block, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ingest.Block(doc))
	}
	return items, nil
}

func (r *MongoBlocks) ListByDate(ctx context.Context, date string) ([]models.Block, error) {
	return r.find(ctx, bson.M{"$or": bson.A{bson.M{"date": date}, bson.M{"data": date}}})
}

func (r *MongoBlocks) List(ctx context.Context, fromDate string) ([]models.Block, error) {
	filter := bson.M{}
	if fromDate != "" {
		filter["date"] = bson.M{"$gte": fromDate}
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}).SetLimit(500)
	return r.find(ctx, filter, opts)
}

func (r *MongoBlocks) Get(ctx context.Context, id string) (models.Block, error) {
	var doc bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Block{}, translate(err)
	}
	return ingest.Block(ingest.Doc(doc)), nil
}

func (r *MongoBlocks) Insert(ctx context.Context, b models.Block) error {
	_, err := r.col.InsertOne(ctx, blockDoc(b))
	return translate(err)
}

func (r *MongoBlocks) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoBlocks) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

type MongoPayments struct {
	col *mongo.Collection
}

func (r *MongoPayments) Get(ctx context.Context, id string) (models.Payment, error) {
	var doc bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Payment{}, translate(err)
	}
	return ingest.Payment(ingest.Doc(doc)), nil
}

func (r *MongoPayments) Create(ctx context.Context, p models.Payment) error {
	_, err := r.col.InsertOne(ctx, paymentDoc(p))
	return translate(err)
}

func (r *MongoPayments) MergeStatus(ctx context.Context, p models.Payment) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": paymentSet(p)}, options.Update().SetUpsert(true))
	return translate(err)
}

func (r *MongoPayments) ClearStaged(ctx context.Context, id string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": unsetFields(stagedFields)})
	return translate(err)
}

func (r *MongoPayments) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

type MongoUsers struct {
	col *mongo.Collection
}

func (r *MongoUsers) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

func (r *MongoUsers) Upsert(ctx context.Context, u models.User) error {
	set := bson.M{
		"passwordHash": u.PasswordHash,
		"role":         u.Role,
		"updatedAt":    u.UpdatedAt,
	}
	if u.Email != "" {
		set["email"] = u.Email
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       u.ID,
			"username":  u.Username,
			"createdAt": u.CreatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"username": u.Username}, update, options.Update().SetUpsert(true))
	return translate(err)
}
