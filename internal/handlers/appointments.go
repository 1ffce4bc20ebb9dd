package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"agendamento-backend/internal/booking"
	"agendamento-backend/internal/httpx"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/store"
	"agendamento-backend/internal/transport"
)

// CreateAppointment books a confirmed appointment without going through the gateway.
func (s *Server) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doc, err := decodeDoc(w, r)
	if err != nil {
		log.Warn("appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req := booking.RequestFrom(ingest.Booking(doc))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	a, err := s.Booking.CreateManual(ctx, req)
	if err != nil {
		s.writeServiceError(w, log, "appointments create", err)
		return
	}
	log.Info("appointments create: ok", slog.String("id", a.ID))
	transport.WriteJSON(w, http.StatusCreated, idResponse{ID: a.ID})
}

// CreatePendingAppointment books a cash appointment that waits for payment on site.
func (s *Server) CreatePendingAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doc, err := decodeDoc(w, r)
	if err != nil {
		log.Warn("appointments pending: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req := booking.RequestFrom(ingest.Booking(doc))
	req.PaymentMethod = models.PaymentMethodCash

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.Booking.Submit(ctx, req)
	if err != nil {
		s.writeServiceError(w, log, "appointments pending", err)
		return
	}
	log.Info("appointments pending: ok", slog.String("id", res.AppointmentID))
	transport.WriteJSON(w, http.StatusCreated, idResponse{ID: res.AppointmentID})
}

func (s *Server) GetAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	a, err := s.Booking.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "appointments get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	doc, err := decodeDoc(w, r)
	if err != nil {
		log.Warn("appointments update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	a, err := s.Booking.Update(ctx, id, patchFrom(doc, s.Cfg.PlaceholderEmail))
	if err != nil {
		s.writeServiceError(w, log, "appointments update", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, appointmentResponse{Appointment: a})
}

func (s *Server) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.Booking.Delete(ctx, id); err != nil {
		s.writeServiceError(w, log, "appointments delete", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) AdminListAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := r.URL.Query()
	limit, _, err := httpx.ParseLimitOffset(q, 500, 2000)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	filter := store.AppointmentFilter{
		Date:  strings.TrimSpace(q.Get("data")),
		Limit: limit,
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		filter.Status, _ = ingest.NormalizeStatus(raw, false, false)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	items, err := s.Booking.List(ctx, filter)
	if err != nil {
		s.writeServiceError(w, log, "admin appointments list", err)
		return
	}
	log.Info("admin appointments list: ok", slog.String("date", filter.Date), slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, items)
}

// AdminConfirmAppointment marks a cash appointment as paid.
func (s *Server) AdminConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	a, err := s.Booking.Confirm(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "admin appointments confirm", err)
		return
	}
	log.Info("admin appointments confirm: ok", slog.String("id", id))
	transport.WriteJSON(w, http.StatusOK, appointmentResponse{Appointment: a})
}

// patchFrom collects the fields present in doc. Both current and legacy names are accepted.
func patchFrom(doc ingest.Doc, placeholderEmail string) store.AppointmentPatch {
	var patch store.AppointmentPatch
	if has(doc, "date", "data") {
		v := ingest.FirstString(doc, "date", "data")
		if normalized, ok := ingest.NormalizeDate(v); ok {
			v = normalized
		}
		patch.Date = &v
	}
	if has(doc, "time", "horario", "hora") {
		v := ingest.FirstString(doc, "time", "horario", "hora")
		if normalized, ok := ingest.NormalizeTime(v); ok {
			v = normalized
		}
		patch.Time = &v
	}
	if has(doc, "service", "servico") {
		v := ingest.FirstString(doc, "service", "servico")
		patch.Service = &v
	}
	if price, ok := ingest.FirstFloat(doc, "price", "preco", "valor"); ok {
		patch.Price = &price
	}
	if has(doc, "notes", "observacoes") {
		v := ingest.FirstString(doc, "notes", "observacoes")
		patch.Notes = &v
	}
	if has(doc, "client", "cliente", "clientName", "cliente_nome") {
		c := ingest.ClientFrom(doc, placeholderEmail)
		patch.Client = &c
	}
	if has(doc, "status") {
		v := ingest.FirstString(doc, "status")
		patch.Status = &v
	} else if confirmed, ok := flag(doc, "confirmed", "confirmado"); ok {
		v := models.AppointmentStatusAwaitingPayment
		if confirmed {
			v = models.AppointmentStatusConfirmed
		}
		patch.Status = &v
	}
	return patch
}

func has(doc ingest.Doc, keys ...string) bool {
	for _, k := range keys {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

func flag(doc ingest.Doc, keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := doc[k].(bool); ok {
			return v, true
		}
	}
	return false, false
}
