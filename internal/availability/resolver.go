// Package availability computes which slots of a date are taken by manual blocks or
// confirmed appointments.
package availability

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/cache"
	"agendamento-backend/internal/metrics"
	"agendamento-backend/internal/schedule"
	"agendamento-backend/internal/store"
)

const cachePrefix = "availability:"

type Resolver struct {
	blocks  store.BlockStore
	appts   store.AppointmentStore
	cache   cache.Cache
	ttl     time.Duration
	hours   schedule.BusinessHours
	loc     *time.Location
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Resolver)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
		r.ttl = ttl
	}
}

func WithHours(h schedule.BusinessHours) Option {
	return func(r *Resolver) { r.hours = h }
}

func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(blocks store.BlockStore, appts store.AppointmentStore, opts ...Option) *Resolver {
	r := &Resolver{
		blocks: blocks,
		appts:  appts,
		cache:  cache.NewNoop(),
		ttl:    60 * time.Second,
		hours:  schedule.DefaultHours(),
		loc:    time.UTC,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Location() *time.Location { return r.loc }

func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

func (r *Resolver) validateDate(date string) error {
	if _, err := schedule.ParseDate(date, r.loc); err != nil {
		return apperr.Invalid("date", "must be a valid YYYY-MM-DD date")
	}
	return nil
}

// OccupiedSlots reads blocks and appointments for date straight from the store. If either
// query fails the date is reported as fully occupied together with a StoreError.
func (r *Resolver) OccupiedSlots(ctx context.Context, date string) (Occupancy, error) {
	if err := r.validateDate(date); err != nil {
		return Occupancy{}, err
	}

	blocks, err := r.blocks.ListByDate(ctx, date)
	if err != nil {
		return r.failClosed(date, apperr.Store("list blocks", err))
	}
	appts, err := r.appts.ListByDate(ctx, date)
	if err != nil {
		return r.failClosed(date, apperr.Store("list appointments", err))
	}

	occ := NewOccupancy()
	for _, b := range blocks {
		occ.add(b.Time)
	}
	seen := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if _, dup := seen[a.ID]; dup && a.ID != "" {
			continue
		}
		seen[a.ID] = struct{}{}
		if a.Occupies() {
			occ.add(a.Time)
		}
	}
	return occ, nil
}

func (r *Resolver) failClosed(date string, err error) (Occupancy, error) {
	r.log.Error("availability occupied: store failure, failing closed",
		slog.String("date", date),
		slog.String("error", err.Error()),
	)
	r.metrics.ObserveFailClosed()
	return Closed(), err
}

// CachedOccupiedSlots serves listings. Fail-closed results are never cached.
func (r *Resolver) CachedOccupiedSlots(ctx context.Context, date string) (Occupancy, error) {
	if err := r.validateDate(date); err != nil {
		return Occupancy{}, err
	}
	key := cachePrefix + date
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		var times []string
		if err := json.Unmarshal(raw, &times); err == nil {
			r.metrics.ObserveCacheLookup(true)
			return NewOccupancy(times...), nil
		}
	} else if err != nil {
		r.log.Warn("availability cache: get failed", slog.String("date", date), slog.String("error", err.Error()))
	}
	r.metrics.ObserveCacheLookup(false)

	occ, err := r.OccupiedSlots(ctx, date)
	if err != nil {
		return occ, err
	}
	if payload, err := json.Marshal(occ.Times()); err == nil {
		if err := r.cache.Set(ctx, key, payload, r.ttl); err != nil {
			r.log.Warn("availability cache: set failed", slog.String("date", date), slog.String("error", err.Error()))
		}
	}
	return occ, nil
}

// IsSlotFree answers whether (date, tm) can be booked, always from a fresh read.
func (r *Resolver) IsSlotFree(ctx context.Context, date, tm string) (bool, error) {
	if !schedule.IsValidClock(tm) {
		return false, apperr.Invalid("time", "must be HH:MM")
	}
	occ, err := r.OccupiedSlots(ctx, date)
	if err != nil {
		return false, err
	}
	return !occ.Contains(tm), nil
}

// FreeSlots returns the business-hours grid of date minus its occupancy. Slots that already
// passed are dropped when date is today.
func (r *Resolver) FreeSlots(ctx context.Context, date string, occ Occupancy) ([]string, error) {
	if occ.AllOccupied {
		return []string{}, nil
	}
	slots, err := r.hours.Slots(date, r.loc)
	if err != nil {
		return nil, apperr.Invalid("date", "must be a valid YYYY-MM-DD date")
	}
	slots = schedule.FilterReserved(slots, occ.Contains)
	return schedule.FilterPastSlots(date, slots, r.loc, r.now())
}

// Invalidate drops every cached entry of date.
func (r *Resolver) Invalidate(ctx context.Context, date string) {
	if date == "" {
		return
	}
	if err := r.cache.DeletePrefix(ctx, cachePrefix+date); err != nil {
		r.log.Warn("availability cache: invalidate failed", slog.String("date", date), slog.String("error", err.Error()))
	}
}
