package booking

import (
	"context"
	"errors"
	"log/slog"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/schedule"
	"agendamento-backend/internal/store"
)

func (s *Service) Get(ctx context.Context, id string) (models.Appointment, error) {
	a, err := s.appts.Get(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.Appointment{}, apperr.Store("get appointment", err)
	}
	return a, err
}

func (s *Service) List(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	if filter.Date != "" {
		if _, err := schedule.ParseDate(filter.Date, s.resolver.Location()); err != nil {
			return nil, apperr.Invalid("data", "must be a valid YYYY-MM-DD date")
		}
	}
	items, err := s.appts.List(ctx, filter)
	if err != nil {
		return nil, apperr.Store("list appointments", err)
	}
	return items, nil
}

// Update applies patch. Moving an appointment onto another slot, or confirming it, checks
// the target slot first.
func (s *Service) Update(ctx context.Context, id string, patch store.AppointmentPatch) (models.Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if err := s.validatePatch(patch); err != nil {
		return models.Appointment{}, err
	}

	next := store.ApplyPatch(current, patch, current.UpdatedAt)
	moved := next.Date != current.Date || next.Time != current.Time
	if next.Occupies() && (moved || !current.Occupies()) {
		if err := s.checkSlot(ctx, next.Date, next.Time); err != nil {
			return models.Appointment{}, err
		}
	}

	updated, err := s.appts.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Appointment{}, apperr.ErrSlotConflict
		}
		if errors.Is(err, store.ErrNotFound) {
			return models.Appointment{}, err
		}
		return models.Appointment{}, apperr.Store("update appointment", err)
	}
	s.resolver.Invalidate(ctx, current.Date)
	if moved {
		s.resolver.Invalidate(ctx, updated.Date)
	}
	s.log.Info("appointments update: saved",
		slog.String("id", id),
		slog.String("status", updated.Status),
	)
	return updated, nil
}

func (s *Service) validatePatch(patch store.AppointmentPatch) error {
	fields := map[string]string{}
	if patch.Date != nil {
		if _, err := schedule.ParseDate(*patch.Date, s.resolver.Location()); err != nil {
			fields["date"] = "must be a valid YYYY-MM-DD date"
		}
	}
	if patch.Time != nil && !schedule.IsValidClock(*patch.Time) {
		fields["time"] = "must be HH:MM"
	}
	if patch.Price != nil && *patch.Price < 0 {
		fields["price"] = "must be at least 0"
	}
	if patch.Client != nil {
		if patch.Client.Name == "" {
			fields["client.name"] = "required"
		}
		if patch.Client.Phone == "" {
			fields["client.phone"] = "required"
		}
	}
	if len(fields) > 0 {
		return apperr.NewValidation(fields)
	}
	return nil
}

// Confirm marks a cash appointment as paid and confirmed.
func (s *Service) Confirm(ctx context.Context, id string) (models.Appointment, error) {
	status := models.AppointmentStatusConfirmed
	return s.Update(ctx, id, store.AppointmentPatch{Status: &status})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return apperr.Store("delete appointment", err)
	}
	s.resolver.Invalidate(ctx, current.Date)
	s.log.Info("appointments delete: removed", slog.String("id", id), slog.String("date", current.Date))
	return nil
}
