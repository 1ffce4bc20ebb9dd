package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/cache"
	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/store"
)

var saoPaulo = mustLoad("America/Sao_Paulo")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 10, 8, 0, 0, 0, saoPaulo)
}

type failingBlocks struct {
	store.BlockStore
}

func (failingBlocks) ListByDate(ctx context.Context, date string) ([]models.Block, error) {
	return nil, errors.New("connection refused")
}

func newResolver(s *store.Store, opts ...Option) *Resolver {
	opts = append([]Option{WithLocation(saoPaulo), WithClock(fixedClock)}, opts...)
	return NewResolver(s.Blocks, s.Appointments, opts...)
}

func confirmed(id, date, tm string) models.Appointment {
	return models.Appointment{
		ID:        id,
		Date:      date,
		Time:      tm,
		Service:   "Corte",
		Client:    models.Client{Name: "Juan", Phone: "(22)97402-9231"},
		Status:    models.AppointmentStatusConfirmed,
		Confirmed: true,
	}
}

func TestOccupiedSlotsUnionOfBlocksAndConfirmed(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b2", Date: "2025-03-11", Time: "14:00"}))
	require.NoError(t, s.Appointments.Insert(ctx, confirmed("a1", "2025-03-11", "14:00")))
	require.NoError(t, s.Appointments.Insert(ctx, confirmed("a2", "2025-03-11", "16:00")))

	pending := confirmed("a3", "2025-03-11", "11:00")
	pending.Status = models.AppointmentStatusAwaitingPayment
	pending.Confirmed = false
	require.NoError(t, s.Appointments.Insert(ctx, pending))
	require.NoError(t, s.Appointments.Insert(ctx, confirmed("other-day", "2025-03-12", "09:00")))

	occ, err := newResolver(s).OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.False(t, occ.AllOccupied)
	assert.Equal(t, []string{"10:00", "14:00", "16:00"}, occ.Times())
	assert.False(t, occ.Contains("11:00"))
	assert.False(t, occ.Contains("09:00"))
}

func TestOccupiedSlotsReadsLegacyRecords(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	mem := s.Appointments.(*store.MemoryAppointments)
	mem.SeedDoc(ingest.Doc{"_id": "old-1", "data": "2025-03-11", "horario": "9:00", "status": "confirmado"})
	mem.SeedDoc(ingest.Doc{"_id": "old-2", "data": "2025-03-11", "horario": "13:00", "status": "cancelado", "confirmado": true})

	occ, err := newResolver(s).OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, occ.Times())
}

func TestOccupiedSlotsBlockLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	r := newResolver(s)

	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	occ, err := r.OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.True(t, occ.Contains("10:00"))

	require.NoError(t, s.Blocks.Delete(ctx, "b1"))
	occ, err = r.OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.False(t, occ.Contains("10:00"))
	assert.Equal(t, 0, occ.Len())
}

func TestOccupiedSlotsRejectsMalformedDate(t *testing.T) {
	s := store.NewMemory("")
	for _, date := range []string{"", "11/03/2025", "2025-02-30", "2025-3-11"} {
		_, err := newResolver(s).OccupiedSlots(context.Background(), date)
		assert.True(t, apperr.IsValidation(err), "date %q", date)
	}
}

func TestOccupiedSlotsFailsClosed(t *testing.T) {
	s := store.NewMemory("")
	r := NewResolver(failingBlocks{s.Blocks}, s.Appointments, WithLocation(saoPaulo))

	occ, err := r.OccupiedSlots(context.Background(), "2025-03-11")
	require.Error(t, err)
	assert.True(t, apperr.IsStore(err))
	assert.True(t, occ.AllOccupied)
	assert.True(t, occ.Contains("10:00"))

	free, err := r.IsSlotFree(context.Background(), "2025-03-11", "10:00")
	assert.Error(t, err)
	assert.False(t, free)
}

func TestIsSlotFree(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	r := newResolver(s)

	free, err := r.IsSlotFree(ctx, "2025-03-11", "10:00")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = r.IsSlotFree(ctx, "2025-03-11", "11:00")
	require.NoError(t, err)
	assert.True(t, free)

	_, err = r.IsSlotFree(ctx, "2025-03-11", "25:00")
	assert.True(t, apperr.IsValidation(err))
}

func TestFreeSlots(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	r := newResolver(s)

	occ, err := r.OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	free, err := r.FreeSlots(ctx, "2025-03-11", occ)
	require.NoError(t, err)
	assert.NotContains(t, free, "10:00")
	assert.Contains(t, free, "09:00")
	assert.Len(t, free, 8)

	free, err = r.FreeSlots(ctx, "2025-03-11", Closed())
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestCachedOccupiedSlotsAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.NewRedis(mr.Addr(), "", 0)
	s := store.NewMemory("")
	r := newResolver(s, WithCache(rc, time.Minute))

	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	occ, err := r.CachedOccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, occ.Times())
	assert.True(t, mr.Exists("availability:2025-03-11"))

	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b2", Date: "2025-03-11", Time: "15:00"}))
	occ, err = r.CachedOccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, occ.Times(), "served from cache")

	fresh, err := r.OccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "15:00"}, fresh.Times())

	r.Invalidate(ctx, "2025-03-11")
	occ, err = r.CachedOccupiedSlots(ctx, "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "15:00"}, occ.Times())
}

func TestOccupancyWithoutDuplicates(t *testing.T) {
	occ := NewOccupancy("10:00", "09:00", "10:00", "")
	assert.Equal(t, []string{"09:00", "10:00"}, occ.Times())
	assert.Equal(t, 2, occ.Len())
}
