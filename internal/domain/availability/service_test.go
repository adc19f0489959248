package availability

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/hms/internal/domain/directory"
)

// -- Mocks --

type memStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*Slot
}

func newMemStore() *memStore {
	return &memStore{slots: make(map[uuid.UUID]*Slot)}
}

func (m *memStore) ReplaceWindow(_ context.Context, w Window, slots []Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.slots {
		if s.DoctorID == w.DoctorID && s.HospitalID == w.HospitalID &&
			!s.FromTime.Before(w.From) && !s.ToTime.After(w.To) {
			delete(m.slots, id)
		}
	}
	for i := range slots {
		if slots[i].ID == uuid.Nil {
			slots[i].ID = uuid.New()
		}
		cp := slots[i]
		m.slots[cp.ID] = &cp
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) FindFree(_ context.Context, doctorID uuid.UUID, hospitalID string, startsAt, dayStart, dayEnd time.Time) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []*Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.HospitalID == hospitalID && s.IsAvailable &&
			s.FromTime.Equal(startsAt) && !s.FromTime.Before(dayStart) && s.FromTime.Before(dayEnd) {
			cp := *s
			matches = append(matches, &cp)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrSlotNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousSlot
	}
}

func (m *memStore) Claim(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.IsAvailable {
		return ErrSlotAlreadyBooked
	}
	s.IsAvailable = false
	return nil
}

func (m *memStore) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || s.IsAvailable {
		return ErrSlotNotFound
	}
	s.IsAvailable = true
	return nil
}

func (m *memStore) ListAvailable(_ context.Context, hospitalID string, dayStart, dayEnd time.Time, doctorID *uuid.UUID) ([]*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Slot
	for _, s := range m.slots {
		if s.HospitalID != hospitalID || !s.IsAvailable {
			continue
		}
		if s.FromTime.Before(dayStart) || !s.FromTime.Before(dayEnd) {
			continue
		}
		if doctorID != nil && s.DoctorID != *doctorID {
			continue
		}
		cp := *s
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].DoctorID != items[j].DoctorID {
			return items[i].DoctorID.String() < items[j].DoctorID.String()
		}
		return items[i].FromTime.Before(items[j].FromTime)
	})
	return items, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

type memDirectory struct {
	users map[uuid.UUID]*directory.User
}

func newMemDirectory() *memDirectory {
	return &memDirectory{users: make(map[uuid.UUID]*directory.User)}
}

func (m *memDirectory) FindUser(_ context.Context, id uuid.UUID) (*directory.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return u, nil
}

func (m *memDirectory) addDoctor(hospitalID, name string) *directory.User {
	u := &directory.User{
		ID:         uuid.New(),
		HospitalID: hospitalID,
		UserType:   directory.UserTypeDoctor,
		Name:       name,
		Email:      name + "@example.org",
	}
	m.users[u.ID] = u
	return u
}

// -- Tests --

func TestDeclareWindow_PersistsSlots(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(2 * time.Hour)}

	slots, err := svc.DeclareWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("DeclareWindow: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if store.count() != 4 {
		t.Errorf("expected 4 persisted slots, got %d", store.count())
	}
}

func TestDeclareWindow_Idempotent(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(2 * time.Hour)}

	if _, err := svc.DeclareWindow(context.Background(), w); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if _, err := svc.DeclareWindow(context.Background(), w); err != nil {
		t.Fatalf("second declare: %v", err)
	}
	if store.count() != 4 {
		t.Errorf("redeclaring the same window must not duplicate slots, got %d", store.count())
	}
}

func TestDeclareWindow_InvalidRange(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(10 * time.Minute)}

	_, err := svc.DeclareWindow(context.Background(), w)
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if store.count() != 0 {
		t.Error("invalid window must not persist slots")
	}
}

func TestDeclareWindow_UnknownDoctor(t *testing.T) {
	svc := NewService(newMemStore(), newMemDirectory())
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: uuid.New(), HospitalID: "st-marys", From: base, To: base.Add(time.Hour)}

	_, err := svc.DeclareWindow(context.Background(), w)
	if !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeclareWindow_WrongHospital(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("city-general", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(time.Hour)}

	_, err := svc.DeclareWindow(context.Background(), w)
	if !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound for cross-hospital doctor, got %v", err)
	}
}

func TestDeclareWindow_NotADoctor(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	staff := dir.addDoctor("st-marys", "front-desk")
	staff.UserType = directory.UserTypeStaff
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: staff.ID, HospitalID: "st-marys", From: base, To: base.Add(time.Hour)}

	_, err := svc.DeclareWindow(context.Background(), w)
	if !errors.Is(err, directory.ErrRoleMismatch) {
		t.Errorf("expected ErrRoleMismatch, got %v", err)
	}
}

func TestListForDay_GroupsByDoctor(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	asha := dir.addDoctor("st-marys", "asha")
	ravi := dir.addDoctor("st-marys", "ravi")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for _, doc := range []uuid.UUID{asha.ID, ravi.ID} {
		w := Window{DoctorID: doc, HospitalID: "st-marys", From: base, To: base.Add(time.Hour)}
		if _, err := svc.DeclareWindow(context.Background(), w); err != nil {
			t.Fatalf("DeclareWindow: %v", err)
		}
	}

	days, err := svc.ListForDay(context.Background(), "st-marys", base, nil)
	if err != nil {
		t.Fatalf("ListForDay: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 doctors, got %d", len(days))
	}
	for _, d := range days {
		if len(d.Slots) != 2 {
			t.Errorf("doctor %s has %d slots, want 2", d.Doctor.Name, len(d.Slots))
		}
		for _, sv := range d.Slots {
			if sv.Label == "" {
				t.Error("expected a display label")
			}
		}
	}
}

func TestListForDay_OmitsFullyBookedDoctors(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(30 * time.Minute)}
	slots, err := svc.DeclareWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("DeclareWindow: %v", err)
	}
	if err := store.Claim(context.Background(), slots[0].ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	days, err := svc.ListForDay(context.Background(), "st-marys", base, nil)
	if err != nil {
		t.Fatalf("ListForDay: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("fully booked doctor must be omitted, got %d entries", len(days))
	}
}

func TestListForDay_EmptyDay(t *testing.T) {
	svc := NewService(newMemStore(), newMemDirectory())
	days, err := svc.ListForDay(context.Background(), "st-marys", time.Now(), nil)
	if err != nil {
		t.Fatalf("ListForDay: %v", err)
	}
	if days == nil || len(days) != 0 {
		t.Errorf("expected empty, non-nil list, got %#v", days)
	}
}

func TestClaim_ExactlyOneWinner(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(30 * time.Minute)}
	slots, err := svc.DeclareWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("DeclareWindow: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Claim(context.Background(), slots[0].ID)
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrSlotAlreadyBooked) {
			losses++
		} else {
			t.Errorf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if losses != racers-1 {
		t.Errorf("expected %d losers, got %d", racers-1, losses)
	}
}

func TestRelease_RestoresClaimedSlot(t *testing.T) {
	store := newMemStore()
	dir := newMemDirectory()
	doc := dir.addDoctor("st-marys", "asha")
	svc := NewService(store, dir)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	w := Window{DoctorID: doc.ID, HospitalID: "st-marys", From: base, To: base.Add(30 * time.Minute)}
	slots, err := svc.DeclareWindow(context.Background(), w)
	if err != nil {
		t.Fatalf("DeclareWindow: %v", err)
	}

	id := slots[0].ID
	if err := store.Claim(context.Background(), id); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.Release(context.Background(), id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	s, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !s.IsAvailable {
		t.Error("released slot must be available again")
	}
	if err := store.Claim(context.Background(), id); err != nil {
		t.Errorf("released slot must be claimable: %v", err)
	}
}
