package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/store"
)

func seed(s *store.Store, docs ...ingest.Doc) {
	mem := s.Appointments.(*store.MemoryAppointments)
	for _, d := range docs {
		mem.SeedDoc(d)
	}
}

func TestCleanDuplicatesKeepsConfirmedThenOldest(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(s,
		ingest.Doc{"_id": "pending-old", "date": "2025-03-11", "time": "10:00", "status": "awaiting-payment", "createdAt": old},
		ingest.Doc{"_id": "confirmed-new", "data": "2025-03-11", "horario": "10:00", "status": "confirmado", "createdAt": old.Add(time.Hour)},
		ingest.Doc{"_id": "a-old", "date": "2025-03-12", "time": "09:00", "status": "awaiting-payment", "createdAt": old},
		ingest.Doc{"_id": "b-new", "date": "2025-03-12", "time": "09:00", "status": "awaiting-payment", "createdAt": old.Add(time.Hour)},
		ingest.Doc{"_id": "alone", "date": "2025-03-13", "time": "09:00", "status": "confirmed"},
	)

	report, err := New(s, nil, nil, false).CleanDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 2, report.Deleted)

	for _, id := range []string{"confirmed-new", "a-old", "alone"} {
		_, err := s.Appointments.Get(ctx, id)
		assert.NoError(t, err, id)
	}
	for _, id := range []string{"pending-old", "b-new"} {
		_, err := s.Appointments.Get(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, id)
	}
}

func TestNormalizeDatesRewritesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("sem-email@agendamento.local")
	seed(s,
		ingest.Doc{"_id": "legacy", "data": "11/03/2025", "horario": "9h", "status": "agendado", "cliente": map[string]interface{}{"nome": "Ana", "telefone": "22999990000"}},
		ingest.Doc{"_id": "garbage", "data": "someday", "horario": "soon"},
	)

	report, err := New(s, nil, nil, false).NormalizeDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Rewritten)
	assert.Equal(t, []string{"garbage"}, report.Skipped)

	items, err := s.Appointments.ListByDate(ctx, "2025-03-11")
	require.NoError(t, err)
	require.Len(t, items, 1)
	a := items[0]
	assert.Equal(t, "09:00", a.Time)
	assert.Equal(t, models.AppointmentStatusConfirmed, a.Status)
	assert.True(t, a.Confirmed)
	assert.Equal(t, "Ana", a.Client.Name)
}

func TestResetRequiresFlag(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory("")
	require.NoError(t, s.Blocks.Insert(ctx, models.Block{ID: "b1", Date: "2025-03-11", Time: "10:00"}))
	seed(s, ingest.Doc{"_id": "a1", "date": "2025-03-11", "time": "11:00"})

	_, err := New(s, nil, nil, false).Reset(ctx)
	assert.ErrorIs(t, err, ErrResetDisabled)

	report, err := New(s, nil, nil, true).Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Appointments)
	assert.Equal(t, int64(1), report.Blocks)

	blocks, err := s.Blocks.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
