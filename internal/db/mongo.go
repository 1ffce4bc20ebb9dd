package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Appointments *mongo.Collection
	Blocks       *mongo.Collection
	Payments     *mongo.Collection
	Users        *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Appointments: db.Collection("appointments"),
		Blocks:       db.Collection("blocks"),
		Payments:     db.Collection("payments"),
		Users:        db.Collection("users"),
	}

	return client, cols, nil
}

// EnsureIndexes creates the lookup indexes and the uniqueness constraint that allows at most
// one confirmed appointment per (date, time).
// ErrDuplicateKeys reports that stored documents already violate a unique index, so the
// index was not built. Running the clean-duplicates maintenance job clears it.
var ErrDuplicateKeys = errors.New("existing documents violate a unique index")

// EnsureIndexes creates the lookup and uniqueness indexes. A unique index that cannot be
// built over existing duplicates does not stop the others; it is reported at the end as
// ErrDuplicateKeys.
func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Appointments.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "data", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Users.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	var duplicates []error
	_, err = cols.Appointments.Indexes().CreateOne(indexTimeout, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
		Options: options.Index().
			SetName("confirmed_slot_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"confirmed": true,
				"date":      bson.M{"$exists": true},
			}),
	})
	if err = indexError("appointments.confirmed_slot_unique", err); err != nil {
		if !errors.Is(err, ErrDuplicateKeys) {
			return err
		}
		duplicates = append(duplicates, err)
	}

	_, err = cols.Blocks.Indexes().CreateOne(indexTimeout, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err = indexError("blocks.date_time", err); err != nil {
		if !errors.Is(err, ErrDuplicateKeys) {
			return err
		}
		duplicates = append(duplicates, err)
	}

	return errors.Join(duplicates...)
}

func indexError(name string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("index %s: %w: %v", name, ErrDuplicateKeys, err)
	}
	return fmt.Errorf("index %s: %w", name, err)
}
