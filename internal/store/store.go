// Package store is the data-access boundary over the appointments, blocks, payments and
// users collections. Every record read through it is normalized by package ingest.
package store

import (
	"context"
	"errors"

	"agendamento-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type AppointmentFilter struct {
	Date   string
	Status string
	Limit  int64
}

// AppointmentPatch carries the fields of a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	Date    *string
	Time    *string
	Service *string
	Price   *float64
	Client  *models.Client
	Status  *string
	Notes   *string
}

type AppointmentStore interface {
	// ListByDate returns every appointment whose current or legacy date field equals date.
	ListByDate(ctx context.Context, date string) ([]models.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	Get(ctx context.Context, id string) (models.Appointment, error)
	Insert(ctx context.Context, a models.Appointment) error
	// Upsert merges a into the document with the same id and reports whether it was created.
	Upsert(ctx context.Context, a models.Appointment) (bool, error)
	Update(ctx context.Context, id string, patch AppointmentPatch) (models.Appointment, error)
	// Rewrite stores a in canonical shape, dropping legacy field names.
	Rewrite(ctx context.Context, a models.Appointment) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type BlockStore interface {
	ListByDate(ctx context.Context, date string) ([]models.Block, error)
	List(ctx context.Context, fromDate string) ([]models.Block, error)
	Get(ctx context.Context, id string) (models.Block, error)
	Insert(ctx context.Context, b models.Block) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type PaymentStore interface {
	Get(ctx context.Context, id string) (models.Payment, error)
	// Create writes a new payment together with its staged booking.
	Create(ctx context.Context, p models.Payment) error
	// MergeStatus upserts the gateway view of p without touching staged fields.
	MergeStatus(ctx context.Context, p models.Payment) error
	ClearStaged(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (models.User, error)
	Upsert(ctx context.Context, u models.User) error
}

type Store struct {
	Appointments AppointmentStore
	Blocks       BlockStore
	Payments     PaymentStore
	Users        UserStore
}
