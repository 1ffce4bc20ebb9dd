package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"agendamento-backend/internal/transport"
)

const maintenanceTimeout = 5 * time.Minute

func (s *Server) AdminResetDatabase(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), maintenanceTimeout)
	defer cancel()

	report, err := s.Maintenance.Reset(ctx)
	if err != nil {
		s.writeServiceError(w, log, "admin reset", err)
		return
	}
	log.Warn("admin reset: database cleared",
		slog.Int64("appointments", report.Appointments),
		slog.Int64("blocks", report.Blocks),
		slog.Int64("payments", report.Payments),
	)
	transport.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) AdminCleanDuplicates(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), maintenanceTimeout)
	defer cancel()

	report, err := s.Maintenance.CleanDuplicates(ctx)
	if err != nil {
		s.writeServiceError(w, log, "admin clean duplicates", err)
		return
	}
	log.Info("admin clean duplicates: ok", slog.Int("groups", report.Groups), slog.Int("deleted", report.Deleted))
	transport.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) AdminNormalizeDates(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), maintenanceTimeout)
	defer cancel()

	report, err := s.Maintenance.NormalizeDates(ctx)
	if err != nil {
		s.writeServiceError(w, log, "admin normalize dates", err)
		return
	}
	log.Info("admin normalize dates: ok", slog.Int("rewritten", report.Rewritten), slog.Int("skipped", len(report.Skipped)))
	transport.WriteJSON(w, http.StatusOK, report)
}
