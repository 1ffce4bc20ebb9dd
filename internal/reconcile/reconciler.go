// Package reconcile turns approved PIX payments into confirmed appointments.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/availability"
	"agendamento-backend/internal/mercadopago"
	"agendamento-backend/internal/metrics"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/retry"
	"agendamento-backend/internal/schedule"
	"agendamento-backend/internal/store"
)

type Gateway interface {
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
	SearchRecentPayments(ctx context.Context, lookback time.Duration, limit int) ([]mercadopago.Payment, error)
}

type Mailer interface {
	SendAppointmentConfirmation(ctx context.Context, appointment models.Appointment) (string, error)
}

type Config struct {
	Appointments     store.AppointmentStore
	Payments         store.PaymentStore
	Gateway          Gateway
	Resolver         *availability.Resolver
	Mailer           Mailer
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
	Retry            retry.Policy
	PlaceholderEmail string
	Lookback         time.Duration
	BatchSize        int
}

type Reconciler struct {
	appts            store.AppointmentStore
	payments         store.PaymentStore
	gateway          Gateway
	resolver         *availability.Resolver
	mailer           Mailer
	log              *slog.Logger
	metrics          *metrics.Metrics
	retry            retry.Policy
	placeholderEmail string
	lookback         time.Duration
	batch            int
	now              func() time.Time
}

// SyncReport summarizes one bulk reconciliation pass.
type SyncReport struct {
	Seen         int `json:"seen"`
	Approved     int `json:"approved"`
	Materialized int `json:"materialized"`
	Existing     int `json:"existing"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Retry
	if policy == (retry.Policy{}) {
		policy = retry.DefaultPolicy()
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Reconciler{
		appts:            cfg.Appointments,
		payments:         cfg.Payments,
		gateway:          cfg.Gateway,
		resolver:         cfg.Resolver,
		mailer:           cfg.Mailer,
		log:              logger,
		metrics:          cfg.Metrics,
		retry:            policy,
		placeholderEmail: cfg.PlaceholderEmail,
		lookback:         lookback,
		batch:            batch,
		now:              time.Now,
	}
}

// Reconcile fetches the gateway status of paymentID, mirrors it onto the payment record and,
// once approved, materializes the staged booking as a confirmed appointment whose id is the
// payment id. It returns nil when there is nothing to materialize. Missing or malformed
// staged data is logged and reported as nil without an error. A staged slot that was
// blocked or booked since the payment was created yields ErrSlotConflict and the staged
// fields are kept.
func (r *Reconciler) Reconcile(ctx context.Context, paymentID string) (*models.Appointment, error) {
	gp, err := r.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		r.metrics.ObserveReconcile("gateway_error")
		return nil, err
	}
	if gp.ID == "" {
		gp.ID = paymentID
	}
	if err := r.persist(ctx, *gp); err != nil {
		r.metrics.ObserveReconcile("store_error")
		return nil, err
	}
	a, _, err := r.materialize(ctx, gp.ID, gp.Status)
	return a, err
}

func (r *Reconciler) persist(ctx context.Context, gp mercadopago.Payment) error {
	p := gp.ToModel()
	p.UpdatedAt = r.now()
	if err := r.payments.MergeStatus(ctx, p); err != nil {
		r.log.Error("reconcile persist: merge status failed",
			slog.String("payment_id", gp.ID),
			slog.String("error", err.Error()),
		)
		return apperr.Store("merge payment status", err)
	}
	return nil
}

func (r *Reconciler) materialize(ctx context.Context, id, status string) (*models.Appointment, bool, error) {
	log := r.log.With(slog.String("payment_id", id))
	if status != models.PaymentStatusApproved {
		log.Info("reconcile: payment not approved", slog.String("status", status))
		r.metrics.ObserveReconcile("not_approved")
		return nil, false, nil
	}

	payment, err := r.payments.Get(ctx, id)
	if err != nil {
		r.metrics.ObserveReconcile("store_error")
		return nil, false, apperr.Store("get payment", err)
	}

	existing, err := r.appts.Get(ctx, id)
	switch {
	case err == nil:
		// Never overwritten here: it may have been edited or canceled since.
		if payment.Staged != nil {
			r.clearStaged(ctx, log, id)
		}
		r.metrics.ObserveReconcile("existing")
		return &existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		r.metrics.ObserveReconcile("store_error")
		return nil, false, apperr.Store("get appointment", err)
	}

	if reason := stagedProblem(payment.Staged); reason != "" {
		ierr := &apperr.IntegrityError{PaymentID: id, Reason: reason}
		log.Error("reconcile: integrity error", slog.String("error", ierr.Error()))
		r.metrics.ObserveReconcile("integrity_error")
		return nil, false, nil
	}

	if r.resolver != nil {
		free, err := r.resolver.IsSlotFree(ctx, payment.Staged.Date, payment.Staged.Time)
		if err != nil {
			r.metrics.ObserveReconcile("store_error")
			return nil, false, err
		}
		if !free {
			log.Error("reconcile: staged slot no longer available",
				slog.String("date", payment.Staged.Date),
				slog.String("time", payment.Staged.Time),
			)
			r.metrics.ObserveReconcile("conflict")
			return nil, false, apperr.ErrSlotConflict
		}
	}

	staged := payment.Staged
	client := *staged.Client
	if client.Email == "" {
		client.Email = r.placeholderEmail
	}
	now := r.now()
	a := models.Appointment{
		ID:            id,
		Date:          staged.Date,
		Time:          staged.Time,
		Service:       staged.Service,
		Price:         payment.Amount,
		Client:        client,
		Status:        models.AppointmentStatusConfirmed,
		Confirmed:     true,
		PaymentMethod: models.PaymentMethodPix,
		PaymentID:     id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := r.appts.Upsert(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Error("reconcile: slot already confirmed for another appointment",
				slog.String("date", a.Date),
				slog.String("time", a.Time),
			)
			r.metrics.ObserveReconcile("conflict")
			return nil, false, apperr.ErrSlotConflict
		}
		r.metrics.ObserveReconcile("store_error")
		return nil, false, apperr.Store("upsert appointment", err)
	}

	r.clearStaged(ctx, log, id)
	if r.resolver != nil {
		r.resolver.Invalidate(ctx, a.Date)
	}

	if created {
		log.Info("reconcile: appointment materialized", slog.String("date", a.Date), slog.String("time", a.Time))
		r.metrics.ObserveReconcile("materialized")
		r.notify(a)
	} else {
		r.metrics.ObserveReconcile("existing")
	}
	return &a, created, nil
}

func (r *Reconciler) clearStaged(ctx context.Context, log *slog.Logger, id string) {
	if err := r.payments.ClearStaged(ctx, id); err != nil {
		log.Warn("reconcile: clear staged fields failed", slog.String("error", err.Error()))
	}
}

func stagedProblem(staged *models.StagedBooking) string {
	switch {
	case staged == nil:
		return "staged booking missing"
	case staged.Client == nil:
		return "staged client missing"
	case strings.TrimSpace(staged.Client.Name) == "":
		return "staged client name missing"
	case strings.TrimSpace(staged.Client.Phone) == "":
		return "staged client phone missing"
	case staged.Date == "" || staged.Time == "":
		return "staged date or time missing"
	case !validStagedSlot(staged.Date, staged.Time):
		return "staged date or time malformed"
	default:
		return ""
	}
}

func validStagedSlot(date, tm string) bool {
	if _, err := schedule.ParseDate(date, time.UTC); err != nil {
		return false
	}
	return schedule.IsValidClock(tm)
}

func (r *Reconciler) notify(a models.Appointment) {
	if r.mailer == nil || a.Client.Email == "" || a.Client.Email == r.placeholderEmail {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		messageID, err := r.mailer.SendAppointmentConfirmation(ctx, a)
		if err != nil {
			r.log.Error("reconcile notify: email failed",
				slog.String("payment_id", a.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		r.log.Info("reconcile notify: email sent",
			slog.String("payment_id", a.ID),
			slog.String("message_id", messageID),
		)
	}()
}

// SyncRecent reconciles every payment in the gateway's recent listing. Per-record failures
// are counted, never returned.
func (r *Reconciler) SyncRecent(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	items, err := retry.Do(ctx, r.retry, func() ([]mercadopago.Payment, error) {
		items, err := r.gateway.SearchRecentPayments(ctx, r.lookback, r.batch)
		if gerr, ok := apperr.AsGateway(err); ok && gerr.StatusCode >= 400 && gerr.StatusCode < 500 && gerr.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return items, err
	}, func(err error, wait time.Duration) {
		r.log.Warn("reconcile sync: listing failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	})
	if err != nil {
		r.log.Error("reconcile sync: listing failed", slog.String("error", err.Error()))
		return report, err
	}

	for _, gp := range items {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Seen++
		if gp.ID == "" {
			report.Skipped++
			continue
		}
		if err := r.persist(ctx, gp); err != nil {
			report.Failed++
			continue
		}
		if gp.Status != models.PaymentStatusApproved {
			continue
		}
		report.Approved++
		a, created, err := r.materialize(ctx, gp.ID, gp.Status)
		switch {
		case err != nil:
			report.Failed++
			r.log.Error("reconcile sync: payment failed",
				slog.String("payment_id", gp.ID),
				slog.String("error", err.Error()),
			)
		case a == nil:
			report.Skipped++
		case created:
			report.Materialized++
		default:
			report.Existing++
		}
	}

	r.log.Info("reconcile sync: done",
		slog.Int("seen", report.Seen),
		slog.Int("approved", report.Approved),
		slog.Int("materialized", report.Materialized),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
