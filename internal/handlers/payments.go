package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"agendamento-backend/internal/booking"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/transport"
)

const syncTimeout = 2 * time.Minute

type paymentStatusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StatusDetail  string `json:"statusDetail,omitempty"`
	Confirmed     bool   `json:"confirmado"`
	AppointmentID string `json:"agendamentoId,omitempty"`
}

// CreatePixPayment opens a PIX charge holding the booking as staged data. The appointment
// only exists once the payment is approved.
func (s *Server) CreatePixPayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doc, err := decodeDoc(w, r)
	if err != nil {
		log.Warn("payments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	req := booking.RequestFrom(ingest.Booking(doc))
	req.PaymentMethod = models.PaymentMethodPix

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.Booking.Submit(ctx, req)
	if err != nil {
		s.writeServiceError(w, log, "payments create", err)
		return
	}
	log.Info("payments create: ok", slog.String("payment_id", res.Payment.ID))
	transport.WriteJSON(w, http.StatusCreated, res.Payment)
}

// GetPaymentStatus refreshes the payment from the gateway, materializing the booking when it
// was approved, and reports the stored status.
func (s *Server) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	appt, err := s.Reconciler.Reconcile(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "payments status", err)
		return
	}
	payment, err := s.Store.Payments.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "payments status", err)
		return
	}

	resp := paymentStatusResponse{
		ID:           payment.ID,
		Status:       payment.Status,
		StatusDetail: payment.StatusDetail,
	}
	if appt != nil {
		resp.Confirmed = appt.Confirmed
		resp.AppointmentID = appt.ID
	}
	log.Info("payments status: ok", slog.String("payment_id", id), slog.String("status", payment.Status))
	transport.WriteJSON(w, http.StatusOK, resp)
}

// paymentView is the public shape of a payment record. Payer and staged client contact
// details are left out.
type paymentView struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	StatusDetail string    `json:"statusDetail,omitempty"`
	Amount       float64   `json:"amount"`
	Description  string    `json:"description"`
	Method       string    `json:"method"`
	DateCreated  time.Time `json:"dateCreated"`
	Date         string    `json:"data,omitempty"`
	Time         string    `json:"horario,omitempty"`
	Service      string    `json:"servico,omitempty"`
}

func newPaymentView(p models.Payment) paymentView {
	v := paymentView{
		ID:           p.ID,
		Status:       p.Status,
		StatusDetail: p.StatusDetail,
		Amount:       p.Amount,
		Description:  p.Description,
		Method:       p.Method,
		DateCreated:  p.DateCreated,
	}
	if p.Staged != nil {
		v.Date = p.Staged.Date
		v.Time = p.Staged.Time
		v.Service = p.Staged.Service
	}
	return v
}

func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	payment, err := s.Store.Payments.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "payments get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, newPaymentView(payment))
}

// AdminGetPayment returns the full stored record, payer and staged client included.
func (s *Server) AdminGetPayment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	payment, err := s.Store.Payments.Get(ctx, id)
	if err != nil {
		s.writeServiceError(w, log, "admin payments get", err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, payment)
}

// AdminSyncPayments reconciles every recent payment known to the gateway.
func (s *Server) AdminSyncPayments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	report, err := s.Reconciler.SyncRecent(ctx)
	if err != nil {
		s.writeServiceError(w, log, "payments sync", err)
		return
	}
	log.Info("payments sync: ok",
		slog.Int("seen", report.Seen),
		slog.Int("materialized", report.Materialized),
		slog.Int("failed", report.Failed),
	)
	transport.WriteJSON(w, http.StatusOK, report)
}
