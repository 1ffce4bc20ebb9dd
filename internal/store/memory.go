package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"agendamento-backend/internal/ingest"
	"agendamento-backend/internal/models"
)

// NewMemory returns a process-local store with the same document semantics as the Mongo
// store, including the confirmed-slot uniqueness constraint. It backs STORE_ENABLED=false.
func NewMemory(placeholderEmail string) *Store {
	return &Store{
		Appointments: &MemoryAppointments{docs: map[string]ingest.Doc{}, placeholderEmail: placeholderEmail},
		Blocks:       &MemoryBlocks{docs: map[string]ingest.Doc{}},
		Payments:     &MemoryPayments{docs: map[string]ingest.Doc{}},
		Users:        &MemoryUsers{users: map[string]models.User{}},
	}
}

func overlay(dst ingest.Doc, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyDoc(src map[string]interface{}) ingest.Doc {
	dst := make(ingest.Doc, len(src))
	overlay(dst, src)
	return dst
}

func rawDateMatches(doc ingest.Doc, date string) bool {
	return ingest.FirstString(doc, "date") == date || ingest.FirstString(doc, "data") == date
}

type MemoryAppointments struct {
	mu               sync.Mutex
	docs             map[string]ingest.Doc
	placeholderEmail string
}

// SeedDoc stores a raw document as-is, bypassing canonical encoding.
func (m *MemoryAppointments) SeedDoc(doc ingest.Doc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[ingest.FirstString(doc, "_id")] = copyDoc(doc)
}

func (m *MemoryAppointments) decode(doc ingest.Doc) models.Appointment {
	return ingest.Appointment(doc, m.placeholderEmail)
}

// conflicts mirrors the partial unique index on confirmed (date, time).
func (m *MemoryAppointments) conflicts(a models.Appointment) bool {
	if !a.Confirmed {
		return false
	}
	for id, doc := range m.docs {
		if id == a.ID {
			continue
		}
		if _, ok := doc["date"]; !ok {
			continue
		}
		other := m.decode(doc)
		if other.Confirmed && other.Date == a.Date && other.Time == a.Time {
			return true
		}
	}
	return false
}

func (m *MemoryAppointments) sorted(match func(ingest.Doc) bool) []models.Appointment {
	items := make([]models.Appointment, 0)
	for _, doc := range m.docs {
		if match(doc) {
			items = append(items, m.decode(doc))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		if items[i].Time != items[j].Time {
			return items[i].Time < items[j].Time
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (m *MemoryAppointments) ListByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(doc ingest.Doc) bool { return rawDateMatches(doc, date) }), nil
}

func (m *MemoryAppointments) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.sorted(func(doc ingest.Doc) bool {
		return filter.Date == "" || rawDateMatches(doc, filter.Date)
	})
	out := items[:0]
	for _, a := range items {
		if filter.Status == "" || a.Status == filter.Status {
			out = append(out, a)
		}
	}
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryAppointments) Get(ctx context.Context, id string) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Appointment{}, ErrNotFound
	}
	return m.decode(doc), nil
}

func (m *MemoryAppointments) Insert(ctx context.Context, a models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[a.ID]; ok || m.conflicts(a) {
		return ErrDuplicate
	}
	m.docs[a.ID] = copyDoc(appointmentDoc(a))
	return nil
}

func (m *MemoryAppointments) Upsert(ctx context.Context, a models.Appointment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(a) {
		return false, ErrDuplicate
	}
	if doc, ok := m.docs[a.ID]; ok {
		overlay(doc, appointmentSet(a))
		return false, nil
	}
	m.docs[a.ID] = copyDoc(appointmentDoc(a))
	return true, nil
}

func (m *MemoryAppointments) Update(ctx context.Context, id string, patch AppointmentPatch) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Appointment{}, ErrNotFound
	}
	updated := ApplyPatch(m.decode(doc), patch, time.Now())
	if m.conflicts(updated) {
		return models.Appointment{}, ErrDuplicate
	}
	overlay(doc, appointmentSet(updated))
	return updated, nil
}

func (m *MemoryAppointments) Rewrite(ctx context.Context, a models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[a.ID]
	if !ok {
		return nil
	}
	if m.conflicts(a) {
		return ErrDuplicate
	}
	for _, f := range legacyAppointmentFields {
		delete(doc, f)
	}
	overlay(doc, appointmentSet(a))
	if !a.CreatedAt.IsZero() {
		doc["createdAt"] = a.CreatedAt
	}
	return nil
}

func (m *MemoryAppointments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryAppointments) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryAppointments) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.docs))
	m.docs = map[string]ingest.Doc{}
	return n, nil
}

type MemoryBlocks struct {
	mu   sync.Mutex
	docs map[string]ingest.Doc
}

func (m *MemoryBlocks) list(match func(models.Block) bool) []models.Block {
	items := make([]models.Block, 0)
	for _, doc := range m.docs {
		b := ingest.Block(doc)
		if match(b) {
			items = append(items, b)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].Time < items[j].Time
	})
	return items
}

func (m *MemoryBlocks) ListByDate(ctx context.Context, date string) ([]models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(b models.Block) bool { return b.Date == date }), nil
}

func (m *MemoryBlocks) List(ctx context.Context, fromDate string) ([]models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(b models.Block) bool { return fromDate == "" || b.Date >= fromDate }), nil
}

func (m *MemoryBlocks) Get(ctx context.Context, id string) (models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Block{}, ErrNotFound
	}
	return ingest.Block(doc), nil
}

func (m *MemoryBlocks) Insert(ctx context.Context, b models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[b.ID]; ok {
		return ErrDuplicate
	}
	for _, doc := range m.docs {
		other := ingest.Block(doc)
		if other.Date == b.Date && other.Time == b.Time {
			return ErrDuplicate
		}
	}
	m.docs[b.ID] = copyDoc(blockDoc(b))
	return nil
}

func (m *MemoryBlocks) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryBlocks) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.docs))
	m.docs = map[string]ingest.Doc{}
	return n, nil
}

type MemoryPayments struct {
	mu   sync.Mutex
	docs map[string]ingest.Doc
}

// SeedDoc stores a raw payment document as-is.
func (m *MemoryPayments) SeedDoc(doc ingest.Doc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[ingest.FirstString(doc, "_id")] = copyDoc(doc)
}

func (m *MemoryPayments) Get(ctx context.Context, id string) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return models.Payment{}, ErrNotFound
	}
	return ingest.Payment(doc), nil
}

func (m *MemoryPayments) Create(ctx context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.ID]; ok {
		return ErrDuplicate
	}
	m.docs[p.ID] = copyDoc(paymentDoc(p))
	return nil
}

func (m *MemoryPayments) MergeStatus(ctx context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[p.ID]
	if !ok {
		doc = ingest.Doc{"_id": p.ID}
		m.docs[p.ID] = doc
	}
	overlay(doc, paymentSet(p))
	return nil
}

func (m *MemoryPayments) ClearStaged(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[id]; ok {
		for _, f := range stagedFields {
			delete(doc, f)
		}
	}
	return nil
}

func (m *MemoryPayments) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.docs))
	m.docs = map[string]ingest.Doc{}
	return n, nil
}

type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *MemoryUsers) GetByUsername(ctx context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryUsers) Upsert(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.Username]; ok {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	}
	m.users[u.Username] = u
	return nil
}
