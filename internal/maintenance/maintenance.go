// Package maintenance holds the bulk admin jobs that operate on the store directly:
// duplicate cleanup, canonical rewrite of legacy records and a full reset.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/cache"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/schedule"
	"agendamento-backend/internal/store"
)

var ErrResetDisabled = errors.New("database reset is disabled")

type Service struct {
	store      *store.Store
	cache      cache.Cache
	log        *slog.Logger
	allowReset bool
}

func New(s *store.Store, c cache.Cache, logger *slog.Logger, allowReset bool) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, cache: c, log: logger, allowReset: allowReset}
}

type DuplicateReport struct {
	Scanned int `json:"scanned"`
	Groups  int `json:"groups"`
	Deleted int `json:"deleted"`
}

type NormalizeReport struct {
	Scanned   int      `json:"scanned"`
	Rewritten int      `json:"rewritten"`
	Skipped   []string `json:"skipped,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

type ResetReport struct {
	Appointments int64 `json:"appointments"`
	Blocks       int64 `json:"blocks"`
	Payments     int64 `json:"payments"`
}

// CleanDuplicates keeps one appointment per (date, time) and deletes the rest. A slot
// holder wins over other records, then the oldest record, then the lowest id.
func (s *Service) CleanDuplicates(ctx context.Context) (DuplicateReport, error) {
	var report DuplicateReport
	items, err := s.store.Appointments.List(ctx, store.AppointmentFilter{})
	if err != nil {
		return report, apperr.Store("list appointments", err)
	}
	report.Scanned = len(items)

	groups := map[string][]models.Appointment{}
	for _, a := range items {
		if a.Date == "" || a.Time == "" {
			continue
		}
		key := a.Date + " " + a.Time
		groups[key] = append(groups[key], a)
	}

	doomed := make([]string, 0)
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		report.Groups++
		sort.SliceStable(group, func(i, j int) bool { return better(group[i], group[j]) })
		for _, a := range group[1:] {
			doomed = append(doomed, a.ID)
		}
	}
	sort.Strings(doomed)

	deleted, err := s.store.Appointments.DeleteMany(ctx, doomed)
	if err != nil {
		return report, apperr.Store("delete duplicates", err)
	}
	report.Deleted = int(deleted)
	s.flushCache(ctx)
	s.log.Info("maintenance clean-duplicates: done",
		slog.Int("scanned", report.Scanned),
		slog.Int("groups", report.Groups),
		slog.Int("deleted", report.Deleted),
	)
	return report, nil
}

func better(a, b models.Appointment) bool {
	if a.Occupies() != b.Occupies() {
		return a.Occupies()
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.IsZero() || b.CreatedAt.IsZero() {
			return !a.CreatedAt.IsZero()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// NormalizeDates rewrites every appointment in canonical shape. Records whose date or time
// cannot be understood are left untouched and reported.
func (s *Service) NormalizeDates(ctx context.Context) (NormalizeReport, error) {
	var report NormalizeReport
	items, err := s.store.Appointments.List(ctx, store.AppointmentFilter{})
	if err != nil {
		return report, apperr.Store("list appointments", err)
	}
	report.Scanned = len(items)

	for _, a := range items {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if _, err := schedule.ParseDateTime(a.Date, a.Time, time.UTC); err != nil {
			report.Skipped = append(report.Skipped, a.ID)
			continue
		}
		if err := s.store.Appointments.Rewrite(ctx, a); err != nil {
			s.log.Warn("maintenance normalize: rewrite failed",
				slog.String("id", a.ID),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, a.ID)
			continue
		}
		report.Rewritten++
	}
	s.flushCache(ctx)
	s.log.Info("maintenance normalize: done",
		slog.Int("scanned", report.Scanned),
		slog.Int("rewritten", report.Rewritten),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// Reset deletes every appointment, block and payment.
func (s *Service) Reset(ctx context.Context) (ResetReport, error) {
	var report ResetReport
	if !s.allowReset {
		return report, ErrResetDisabled
	}
	var err error
	if report.Appointments, err = s.store.Appointments.DeleteAll(ctx); err != nil {
		return report, apperr.Store("reset appointments", err)
	}
	if report.Blocks, err = s.store.Blocks.DeleteAll(ctx); err != nil {
		return report, apperr.Store("reset blocks", err)
	}
	if report.Payments, err = s.store.Payments.DeleteAll(ctx); err != nil {
		return report, apperr.Store("reset payments", err)
	}
	s.flushCache(ctx)
	s.log.Warn("maintenance reset: collections wiped",
		slog.Int64("appointments", report.Appointments),
		slog.Int64("blocks", report.Blocks),
		slog.Int64("payments", report.Payments),
	)
	return report, nil
}

func (s *Service) flushCache(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, "availability:"); err != nil {
		s.log.Warn("maintenance cache: flush failed", slog.String("error", err.Error()))
	}
}
