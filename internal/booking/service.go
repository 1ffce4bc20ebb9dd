// Package booking validates booking submissions and turns them into PIX charges or
// appointments.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/availability"
	"agendamento-backend/internal/mercadopago"
	"agendamento-backend/internal/metrics"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/schedule"
	"agendamento-backend/internal/store"
	"agendamento-backend/internal/validation"
)

// Gateway creates PIX charges.
type Gateway interface {
	CreatePixPayment(ctx context.Context, req mercadopago.PixRequest) (*mercadopago.Payment, error)
}

type Config struct {
	Appointments     store.AppointmentStore
	Payments         store.PaymentStore
	Resolver         *availability.Resolver
	Gateway          Gateway
	Validator        *validation.Validator
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
	PlaceholderEmail string
}

type Service struct {
	appts            store.AppointmentStore
	payments         store.PaymentStore
	resolver         *availability.Resolver
	gateway          Gateway
	val              *validation.Validator
	log              *slog.Logger
	metrics          *metrics.Metrics
	placeholderEmail string
	newID            func() string
}

func New(cfg Config) *Service {
	val := cfg.Validator
	if val == nil {
		val = validation.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		appts:            cfg.Appointments,
		payments:         cfg.Payments,
		resolver:         cfg.Resolver,
		gateway:          cfg.Gateway,
		val:              val,
		log:              logger,
		metrics:          cfg.Metrics,
		placeholderEmail: cfg.PlaceholderEmail,
		newID:            func() string { return primitive.NewObjectID().Hex() },
	}
}

// Submit runs the PIX flow for pix requests and the cash flow for everything else that
// names a method. A PIX submission never writes an appointment.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	switch req.PaymentMethod {
	case models.PaymentMethodPix:
		return s.submitPix(ctx, req)
	case models.PaymentMethodCash:
		return s.submitCash(ctx, req)
	default:
		return Result{}, apperr.Invalid("paymentMethod", "must be pix or cash")
	}
}

func (s *Service) validate(req Request) error {
	err := s.val.Check(req)
	var ve *apperr.ValidationError
	if err != nil && !errors.As(err, &ve) {
		return err
	}
	if ve == nil || (ve.Fields["date"] == "" && ve.Fields["time"] == "") {
		past, perr := schedule.IsSlotPast(req.Date, req.Time, s.resolver.Location(), s.resolver.Now())
		if perr == nil && past {
			if ve == nil {
				ve = apperr.NewValidation(map[string]string{})
			}
			ve.Fields["date"] = "must not be in the past"
		}
	}
	if ve != nil {
		return ve
	}
	return nil
}

func (s *Service) checkSlot(ctx context.Context, date, tm string) error {
	free, err := s.resolver.IsSlotFree(ctx, date, tm)
	if err != nil {
		return err
	}
	if !free {
		return apperr.ErrSlotConflict
	}
	return nil
}

func (s *Service) submitPix(ctx context.Context, req Request) (Result, error) {
	if err := s.validate(req); err != nil {
		s.metrics.ObserveBooking(models.PaymentMethodPix, "invalid")
		return Result{}, err
	}
	if req.Price <= 0 {
		s.metrics.ObserveBooking(models.PaymentMethodPix, "invalid")
		return Result{}, apperr.Invalid("price", "must be greater than zero")
	}
	if err := s.checkSlot(ctx, req.Date, req.Time); err != nil {
		s.metrics.ObserveBooking(models.PaymentMethodPix, outcome(err))
		return Result{}, err
	}

	client := req.client(s.placeholderEmail)
	key := uuid.NewString()
	gp, err := s.gateway.CreatePixPayment(ctx, mercadopago.PixRequest{
		Amount:      req.Price,
		Description: fmt.Sprintf("%s - %s %s", req.Service, req.Date, req.Time),
		Payer:       client,
		Metadata: map[string]string{
			"date":    req.Date,
			"time":    req.Time,
			"service": req.Service,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		s.metrics.ObserveBooking(models.PaymentMethodPix, "gateway_error")
		return Result{}, err
	}

	payment := gp.ToModel()
	if payment.Amount == 0 {
		payment.Amount = req.Price
	}
	if payment.Description == "" {
		payment.Description = req.Service
	}
	payment.Method = models.PaymentMethodPix
	payment.Payer = client
	payment.UpdatedAt = time.Now()
	payment.Staged = &models.StagedBooking{
		Date:    req.Date,
		Time:    req.Time,
		Service: req.Service,
		Client:  &client,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.log.Error("booking pix: store payment failed",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
		s.metrics.ObserveBooking(models.PaymentMethodPix, "store_error")
		return Result{}, apperr.Store("create payment", err)
	}

	s.log.Info("booking pix: payment created",
		slog.String("payment_id", payment.ID),
		slog.String("date", req.Date),
		slog.String("time", req.Time),
		slog.String("idempotency_key", key),
	)
	s.metrics.ObserveBooking(models.PaymentMethodPix, "created")
	return Result{Payment: &PaymentInfo{
		ID:           gp.ID,
		Status:       gp.Status,
		Amount:       payment.Amount,
		QRCode:       gp.QRCode,
		QRCodeBase64: gp.QRCodeBase64,
		TicketURL:    gp.TicketURL,
	}}, nil
}

func (s *Service) submitCash(ctx context.Context, req Request) (Result, error) {
	a, err := s.insert(ctx, req, models.AppointmentStatusAwaitingPayment, models.PaymentMethodCash)
	if err != nil {
		s.metrics.ObserveBooking(models.PaymentMethodCash, outcome(err))
		return Result{}, err
	}
	s.log.Info("booking cash: appointment created",
		slog.String("id", a.ID),
		slog.String("date", a.Date),
		slog.String("time", a.Time),
	)
	s.metrics.ObserveBooking(models.PaymentMethodCash, "created")
	return Result{AppointmentID: a.ID}, nil
}

// CreateManual books a confirmed appointment directly, as the admin panel does.
func (s *Service) CreateManual(ctx context.Context, req Request) (models.Appointment, error) {
	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodManual
	}
	a, err := s.insert(ctx, req, models.AppointmentStatusConfirmed, method)
	if err != nil {
		s.metrics.ObserveBooking(models.PaymentMethodManual, outcome(err))
		return models.Appointment{}, err
	}
	s.log.Info("booking manual: appointment created",
		slog.String("id", a.ID),
		slog.String("date", a.Date),
		slog.String("time", a.Time),
	)
	s.metrics.ObserveBooking(models.PaymentMethodManual, "created")
	return a, nil
}

func (s *Service) insert(ctx context.Context, req Request, status, method string) (models.Appointment, error) {
	if err := s.validate(req); err != nil {
		return models.Appointment{}, err
	}
	if err := s.checkSlot(ctx, req.Date, req.Time); err != nil {
		return models.Appointment{}, err
	}
	now := time.Now()
	a := models.Appointment{
		ID:            s.newID(),
		Date:          req.Date,
		Time:          req.Time,
		Service:       req.Service,
		Price:         req.Price,
		Client:        req.client(s.placeholderEmail),
		Status:        status,
		Confirmed:     status == models.AppointmentStatusConfirmed,
		PaymentMethod: method,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.appts.Insert(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Appointment{}, apperr.ErrSlotConflict
		}
		return models.Appointment{}, apperr.Store("insert appointment", err)
	}
	s.resolver.Invalidate(ctx, a.Date)
	return a, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrSlotConflict):
		return "conflict"
	case apperr.IsValidation(err):
		return "invalid"
	case apperr.IsStore(err):
		return "store_error"
	default:
		return "error"
	}
}
