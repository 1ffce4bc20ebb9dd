package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/availability"
	"agendamento-backend/internal/mercadopago"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/retry"
	"agendamento-backend/internal/store"
)

const placeholder = "sem-email@agendamento.local"

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]mercadopago.Payment
	searchErr []error
	searches  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]mercadopago.Payment{}}
}

func (g *fakeGateway) set(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[id] = mercadopago.Payment{ID: id, Status: status, Amount: 40, Method: "pix"}
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[id]
	if !ok {
		return nil, &apperr.GatewayError{Op: "get_payment", StatusCode: 404, Message: "Payment not found"}
	}
	return &p, nil
}

func (g *fakeGateway) SearchRecentPayments(ctx context.Context, lookback time.Duration, limit int) ([]mercadopago.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searches++
	if len(g.searchErr) > 0 {
		err := g.searchErr[0]
		g.searchErr = g.searchErr[1:]
		return nil, err
	}
	out := make([]mercadopago.Payment, 0, len(g.payments))
	for _, p := range g.payments {
		out = append(out, p)
	}
	return out, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []models.Appointment
}

func (m *recordingMailer) SendAppointmentConfirmation(ctx context.Context, a models.Appointment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, a)
	return "msg-1", nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newReconciler(s *store.Store, gw Gateway, mailer Mailer) *Reconciler {
	return New(Config{
		Appointments:     s.Appointments,
		Payments:         s.Payments,
		Gateway:          gw,
		Mailer:           mailer,
		PlaceholderEmail: placeholder,
		Retry:            retry.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxTries: 3},
	})
}

func stagePayment(t *testing.T, s *store.Store, id string, client *models.Client) {
	t.Helper()
	require.NoError(t, s.Payments.Create(context.Background(), models.Payment{
		ID:     id,
		Status: models.PaymentStatusPending,
		Amount: 40,
		Staged: &models.StagedBooking{
			Date:    "2025-03-12",
			Time:    "09:00",
			Service: "Corte",
			Client:  client,
		},
	}))
}

func juan() *models.Client {
	return &models.Client{Name: "Juan", Phone: "(22)97402-9231", Email: "juan@example.com"}
}

func countByPayment(t *testing.T, s *store.Store, id string) int {
	t.Helper()
	items, err := s.Appointments.List(context.Background(), store.AppointmentFilter{})
	require.NoError(t, err)
	n := 0
	for _, a := range items {
		if a.PaymentID == id {
			n++
		}
	}
	return n
}

func TestReconcileApprovedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	mailer := &recordingMailer{}
	rec := newReconciler(s, gw, mailer)

	stagePayment(t, s, "pay-1", juan())
	gw.set("pay-1", models.PaymentStatusApproved)

	a, err := rec.Reconcile(ctx, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "pay-1", a.ID)
	assert.Equal(t, "pay-1", a.PaymentID)
	assert.Equal(t, models.AppointmentStatusConfirmed, a.Status)
	assert.True(t, a.Confirmed)
	assert.Equal(t, "2025-03-12", a.Date)
	assert.Equal(t, "09:00", a.Time)
	assert.Equal(t, models.PaymentMethodPix, a.PaymentMethod)
	assert.Equal(t, 40.0, a.Price)

	for i := 0; i < 3; i++ {
		again, err := rec.Reconcile(ctx, "pay-1")
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, "pay-1", again.ID)
	}
	assert.Equal(t, 1, countByPayment(t, s, "pay-1"))

	p, err := s.Payments.Get(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusApproved, p.Status)
	assert.Nil(t, p.Staged, "staged fields are consumed")

	assert.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestReconcileNotApprovedIsNoop(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	for _, status := range []string{
		models.PaymentStatusPending,
		models.PaymentStatusInProcess,
		models.PaymentStatusRejected,
		models.PaymentStatusCancelled,
	} {
		stagePayment(t, s, "pay-"+status, juan())
		gw.set("pay-"+status, status)

		a, err := rec.Reconcile(ctx, "pay-"+status)
		require.NoError(t, err)
		assert.Nil(t, a)

		p, err := s.Payments.Get(ctx, "pay-"+status)
		require.NoError(t, err)
		assert.Equal(t, status, p.Status, "status is mirrored regardless of value")
		assert.NotNil(t, p.Staged, "staged fields survive the merge")
	}

	items, err := s.Appointments.List(ctx, store.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReconcileMissingClientReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	cases := map[string]*models.Client{
		"pay-nil":      nil,
		"pay-empty":    {},
		"pay-no-phone": {Name: "Juan"},
		"pay-no-name":  {Phone: "(22)97402-9231"},
	}
	for id, client := range cases {
		stagePayment(t, s, id, client)
		gw.set(id, models.PaymentStatusApproved)

		a, err := rec.Reconcile(ctx, id)
		assert.NoError(t, err, id)
		assert.Nil(t, a, id)
		assert.Equal(t, 0, countByPayment(t, s, id), id)
	}
}

func TestReconcileMalformedStagedSlotReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	require.NoError(t, s.Payments.Create(ctx, models.Payment{
		ID:     "pay-bad",
		Status: models.PaymentStatusPending,
		Amount: 40,
		Staged: &models.StagedBooking{Date: "2025-13-45", Time: "25:99", Service: "Corte", Client: juan()},
	}))
	gw.set("pay-bad", models.PaymentStatusApproved)

	a, err := rec.Reconcile(ctx, "pay-bad")
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 0, countByPayment(t, s, "pay-bad"))
}

func TestReconcileBlockedSlotIsConflict(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)
	rec.resolver = availability.NewResolver(s.Blocks, s.Appointments)

	stagePayment(t, s, "pay-b", juan())
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "blk-1", Date: "2025-03-12", Time: "09:00", Reason: "folga"}))
	gw.set("pay-b", models.PaymentStatusApproved)

	a, err := rec.Reconcile(ctx, "pay-b")
	assert.Nil(t, a)
	assert.ErrorIs(t, err, apperr.ErrSlotConflict)
	assert.Equal(t, 0, countByPayment(t, s, "pay-b"))

	p, err := s.Payments.Get(ctx, "pay-b")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusApproved, p.Status)
	require.NotNil(t, p.Staged, "staged fields are kept for follow-up")
	assert.Equal(t, "09:00", p.Staged.Time)
}

func TestReconcileKeepsCanceledAppointment(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	mailer := &recordingMailer{}
	rec := newReconciler(s, gw, mailer)

	// Staged fields left behind by an earlier pass whose cleanup failed.
	stagePayment(t, s, "pay-4", juan())
	require.NoError(t, s.Appointments.Insert(ctx, models.Appointment{
		ID:            "pay-4",
		Date:          "2025-03-12",
		Time:          "09:00",
		Client:        *juan(),
		Status:        models.AppointmentStatusCanceled,
		PaymentMethod: models.PaymentMethodPix,
		PaymentID:     "pay-4",
	}))
	gw.set("pay-4", models.PaymentStatusApproved)

	a, err := rec.Reconcile(ctx, "pay-4")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.AppointmentStatusCanceled, a.Status)
	assert.False(t, a.Confirmed)

	stored, err := s.Appointments.Get(ctx, "pay-4")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCanceled, stored.Status)

	p, err := s.Payments.Get(ctx, "pay-4")
	require.NoError(t, err)
	assert.Nil(t, p.Staged)
	assert.Never(t, func() bool { return mailer.count() > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestReconcileUnknownPaymentIsGatewayError(t *testing.T) {
	s := store.NewMemory(placeholder)
	rec := newReconciler(s, newFakeGateway(), nil)

	_, err := rec.Reconcile(context.Background(), "missing")
	gerr, ok := apperr.AsGateway(err)
	require.True(t, ok)
	assert.Equal(t, 404, gerr.StatusCode)
}

func TestReconcileSlotTakenByAnotherAppointment(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	require.NoError(t, s.Appointments.Insert(ctx, models.Appointment{
		ID: "manual", Date: "2025-03-12", Time: "09:00", Status: models.AppointmentStatusConfirmed, Confirmed: true,
	}))
	stagePayment(t, s, "pay-3", juan())
	gw.set("pay-3", models.PaymentStatusApproved)

	a, err := rec.Reconcile(ctx, "pay-3")
	assert.Nil(t, a)
	assert.ErrorIs(t, err, apperr.ErrSlotConflict)
}

func TestSyncRecentCountsEachRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	stagePayment(t, s, "ok", juan())
	gw.set("ok", models.PaymentStatusApproved)
	stagePayment(t, s, "broken", nil)
	gw.set("broken", models.PaymentStatusApproved)
	stagePayment(t, s, "waiting", juan())
	gw.set("waiting", models.PaymentStatusPending)
	gw.set("external", models.PaymentStatusRejected)
	gw.searchErr = []error{errors.New("temporary outage")}

	report, err := rec.SyncRecent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.searches, "listing is retried")
	assert.Equal(t, 4, report.Seen)
	assert.Equal(t, 2, report.Approved)
	assert.Equal(t, 1, report.Materialized)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	p, err := s.Payments.Get(ctx, "external")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRejected, p.Status)

	report, err = rec.SyncRecent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Materialized)
	assert.Equal(t, 1, report.Existing)
	assert.Equal(t, 1, countByPayment(t, s, "ok"))
}

func TestSyncRecentClientErrorIsNotRetried(t *testing.T) {
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	gw.searchErr = []error{&apperr.GatewayError{Op: "search_payments", StatusCode: 401, Message: "invalid token"}}
	rec := newReconciler(s, gw, nil)

	_, err := rec.SyncRecent(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, gw.searches)
}

func TestWorkerDisabledReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewWorker(nil, time.Second, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
}

func TestWorkerRunsUntilCanceled(t *testing.T) {
	s := store.NewMemory(placeholder)
	gw := newFakeGateway()
	rec := newReconciler(s, gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(rec, 5*time.Millisecond, nil).Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.searches >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
