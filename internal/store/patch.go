package store

import (
	"time"

	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
)

// ApplyPatch returns a with the patch applied. A status change keeps the confirmed flag in
// step with it.
func ApplyPatch(a models.Appointment, patch AppointmentPatch, now time.Time) models.Appointment {
	if patch.Date != nil {
		a.Date = *patch.Date
	}
	if patch.Time != nil {
		a.Time = *patch.Time
	}
	if patch.Service != nil {
		a.Service = *patch.Service
	}
	if patch.Price != nil {
		a.Price = *patch.Price
	}
	if patch.Client != nil {
		a.Client = *patch.Client
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.Status != nil {
		a.Status, a.Confirmed = ingest.NormalizeStatus(*patch.Status, a.Confirmed, false)
	}
	a.UpdatedAt = now
	return a
}
