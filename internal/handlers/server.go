package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/auth"
	"agendamento-backend/internal/availability"
	"agendamento-backend/internal/booking"
	"agendamento-backend/internal/config"
	"agendamento-backend/internal/httpx"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/maintenance"
	"agendamento-backend/internal/mercadopago"
	"agendamento-backend/internal/middleware"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/reconcile"
	"agendamento-backend/internal/store"
	"agendamento-backend/internal/transport"
	"agendamento-backend/internal/validation"
)

const requestTimeout = 5 * time.Second

type Server struct {
	Cfg         *config.Config
	Store       *store.Store
	Resolver    *availability.Resolver
	Booking     *booking.Service
	Reconciler  *reconcile.Reconciler
	Maintenance *maintenance.Service
	Val         *validation.Validator
	Log         *slog.Logger
	Auth        *auth.Manager
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// decodeDoc reads a JSON object of any accepted shape.
func decodeDoc(w http.ResponseWriter, r *http.Request) (ingest.Doc, error) {
	doc := ingest.Doc{}
	if err := httpx.DecodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// writeServiceError maps the error taxonomy onto status codes. Store and gateway failures
// are logged in full and answered with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Warn(op+": validation error", slog.String("error", ve.Error()))
		transport.WriteErrorCode(w, http.StatusBadRequest, transport.CodeValidation, "validation error", ve.Fields)
		return
	case errors.Is(err, apperr.ErrSlotConflict):
		log.Warn(op + ": slot not available")
		transport.WriteErrorCode(w, http.StatusConflict, transport.CodeSlotConflict, "slot not available", nil)
		return
	case errors.Is(err, store.ErrNotFound):
		log.Warn(op + ": not found")
		transport.WriteErrorCode(w, http.StatusNotFound, transport.CodeNotFound, "not found", nil)
		return
	case errors.Is(err, store.ErrDuplicate):
		log.Warn(op + ": duplicate")
		transport.WriteError(w, http.StatusConflict, "already exists", nil)
		return
	case errors.Is(err, maintenance.ErrResetDisabled):
		log.Warn(op + ": reset disabled")
		transport.WriteError(w, http.StatusForbidden, "database reset is disabled", nil)
		return
	case errors.Is(err, mercadopago.ErrNotConfigured):
		log.Error(op + ": payment gateway not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "payment gateway not configured", nil)
		return
	}

	if ge, ok := apperr.AsGateway(err); ok {
		log.Error(op+": gateway error",
			slog.String("gateway_op", ge.Op),
			slog.Int("gateway_status", ge.StatusCode),
			slog.String("gateway_cause", ge.Cause),
			slog.String("error", ge.Error()),
		)
		if ge.StatusCode == http.StatusNotFound {
			transport.WriteErrorCode(w, http.StatusNotFound, transport.CodeNotFound, "payment not found", nil)
			return
		}
		transport.WriteErrorCode(w, http.StatusInternalServerError, transport.CodeGateway, "payment gateway error", nil)
		return
	}

	log.Error(op+": internal error", slog.String("error", err.Error()))
	transport.WriteErrorCode(w, http.StatusInternalServerError, transport.CodeInternal, "internal error", nil)
}

type idResponse struct {
	ID string `json:"id"`
}

type appointmentResponse struct {
	Appointment models.Appointment `json:"agendamento"`
}
