package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcore/hms/internal/domain/availability"
	"github.com/medcore/hms/internal/domain/directory"
	"github.com/medcore/hms/internal/platform/clock"
)

// -- Mocks --

type memSlotStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*availability.Slot
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{slots: make(map[uuid.UUID]*availability.Slot)}
}

func (m *memSlotStore) ReplaceWindow(_ context.Context, w availability.Window, slots []availability.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range slots {
		if slots[i].ID == uuid.Nil {
			slots[i].ID = uuid.New()
		}
		cp := slots[i]
		m.slots[cp.ID] = &cp
	}
	return nil
}

func (m *memSlotStore) GetByID(_ context.Context, id uuid.UUID) (*availability.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, availability.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlotStore) FindFree(_ context.Context, doctorID uuid.UUID, hospitalID string, startsAt, dayStart, dayEnd time.Time) (*availability.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []*availability.Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.HospitalID == hospitalID && s.IsAvailable &&
			s.FromTime.Equal(startsAt) && !s.FromTime.Before(dayStart) && s.FromTime.Before(dayEnd) {
			cp := *s
			matches = append(matches, &cp)
		}
	}
	switch len(matches) {
	case 0:
		return nil, availability.ErrSlotNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, availability.ErrAmbiguousSlot
	}
}

func (m *memSlotStore) Claim(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.IsAvailable {
		return availability.ErrSlotAlreadyBooked
	}
	s.IsAvailable = false
	return nil
}

func (m *memSlotStore) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || s.IsAvailable {
		return availability.ErrSlotNotFound
	}
	s.IsAvailable = true
	return nil
}

func (m *memSlotStore) ListAvailable(_ context.Context, hospitalID string, dayStart, dayEnd time.Time, doctorID *uuid.UUID) ([]*availability.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*availability.Slot
	for _, s := range m.slots {
		if s.HospitalID == hospitalID && s.IsAvailable {
			cp := *s
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *memSlotStore) isAvailable(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		t.Fatalf("slot %s missing", id)
	}
	return s.IsAvailable
}

type memApptRepo struct {
	mu        sync.Mutex
	appts     map[uuid.UUID]*Appointment
	createErr error
}

func newMemApptRepo() *memApptRepo {
	return &memApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memApptRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memApptRepo) ExistsScheduledForDoctorAt(_ context.Context, doctorID uuid.UUID, t time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.AppointmentTime.Equal(t) && a.Status == StatusScheduled {
			return true, nil
		}
	}
	return false, nil
}

func (m *memApptRepo) ExistsScheduledForPatientAt(_ context.Context, patientID uuid.UUID, t time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.PatientID == patientID && a.AppointmentTime.Equal(t) && a.Status == StatusScheduled {
			return true, nil
		}
	}
	return false, nil
}

func (m *memApptRepo) List(_ context.Context, opts ListOptions) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if opts.HospitalID != "" && a.HospitalID != opts.HospitalID {
			continue
		}
		if opts.DoctorID != nil && a.DoctorID != *opts.DoctorID {
			continue
		}
		if opts.PatientID != nil && a.PatientID != *opts.PatientID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *memApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return ErrInvalidTransition
	}
	a.Status = to
	return nil
}

func (m *memApptRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts)
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

func (m *memDirectory) add(hospitalID, userType, name string) *directory.User {
	u := &directory.User{
		ID:         uuid.New(),
		HospitalID: hospitalID,
		UserType:   userType,
		Name:       name,
		Email:      name + "@example.org",
	}
	m.users[u.ID] = u
	return u
}

// -- Fixture --

type fixture struct {
	svc    *Service
	slots  *memSlotStore
	appts  *memApptRepo
	dir    *memDirectory
	doctor *directory.User
	patient *directory.User
	slot   availability.Slot
	now    time.Time
}

// newFixture seeds one doctor, one patient, and one free 30-minute slot
// starting one hour after the fixed clock's now.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	slots := newMemSlotStore()
	appts := newMemApptRepo()
	dir := newMemDirectory()
	doctor := dir.add("st-marys", directory.UserTypeDoctor, "asha")
	patient := dir.add("st-marys", directory.UserTypePatient, "ravi")

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	w := availability.Window{
		DoctorID:   doctor.ID,
		HospitalID: "st-marys",
		From:       now.Add(time.Hour),
		To:         now.Add(time.Hour + 30*time.Minute),
	}
	generated := w.Slots()
	if err := slots.ReplaceWindow(context.Background(), w, generated); err != nil {
		t.Fatalf("seeding slots: %v", err)
	}
	var seeded availability.Slot
	for _, s := range slots.slots {
		seeded = *s
	}

	svc := NewService(appts, slots, dir, clock.Fixed(now), zerolog.Nop())
	return &fixture{
		svc: svc, slots: slots, appts: appts, dir: dir,
		doctor: doctor, patient: patient, slot: seeded, now: now,
	}
}

func (f *fixture) bookByID() BookRequest {
	id := f.slot.ID
	return BookRequest{
		HospitalID: "st-marys",
		DoctorID:   f.doctor.ID,
		PatientID:  f.patient.ID,
		SlotID:     &id,
	}
}

func (f *fixture) bookByLabel() BookRequest {
	return BookRequest{
		HospitalID: "st-marys",
		DoctorID:   f.doctor.ID,
		PatientID:  f.patient.ID,
		SlotLabel:  f.slot.Label(),
		Date:       f.slot.SlotDate,
	}
}

// -- Tests --

func TestBook_ByID(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.bookByID())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	appt := result.Appointment
	if appt.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", appt.Status)
	}
	if !appt.AppointmentTime.Equal(f.slot.FromTime) {
		t.Errorf("appointment time %v, want slot start %v", appt.AppointmentTime, f.slot.FromTime)
	}
	if appt.DurationMinutes != 30 {
		t.Errorf("duration = %d, want 30", appt.DurationMinutes)
	}
	if result.Doctor.Name != "asha" || result.Patient.Name != "ravi" {
		t.Error("participant summaries missing")
	}
	if f.slots.isAvailable(t, f.slot.ID) {
		t.Error("booked slot must be unavailable")
	}
}

func TestBook_ByLabelResolvesSameSlot(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.bookByLabel())
	if err != nil {
		t.Fatalf("Book by label: %v", err)
	}
	if result.Appointment.SlotID == nil || *result.Appointment.SlotID != f.slot.ID {
		t.Errorf("label resolution picked slot %v, want %s", result.Appointment.SlotID, f.slot.ID)
	}
}

func TestBook_SameSlotByIDThenLabel(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Book(context.Background(), f.bookByID()); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// The label path must not create a second appointment for the same
	// underlying slot: the slot is gone from the free set.
	other := f.dir.add("st-marys", directory.UserTypePatient, "meena")
	req := f.bookByLabel()
	req.PatientID = other.ID
	_, err := f.svc.Book(context.Background(), req)
	if !errors.Is(err, availability.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
	if f.appts.count() != 1 {
		t.Errorf("expected 1 appointment, got %d", f.appts.count())
	}
}

func TestBook_MissingSlotReference(t *testing.T) {
	f := newFixture(t)
	req := f.bookByID()
	req.SlotID = nil
	_, err := f.svc.Book(context.Background(), req)
	if !errors.Is(err, ErrMissingSlotRef) {
		t.Errorf("expected ErrMissingSlotRef, got %v", err)
	}
}

func TestBook_ConcurrentDoubleBooking(t *testing.T) {
	f := newFixture(t)
	second := f.dir.add("st-marys", directory.UserTypePatient, "meena")

	reqA := f.bookByID()
	reqB := f.bookByID()
	reqB.PatientID = second.ID

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, req := range []BookRequest{reqA, reqB} {
		wg.Add(1)
		go func(r BookRequest) {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), r)
			results <- err
		}(req)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, availability.ErrSlotAlreadyBooked):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("expected 1 win and 1 conflict, got %d and %d", wins, conflicts)
	}
	if f.appts.count() != 1 {
		t.Errorf("expected exactly 1 appointment, got %d", f.appts.count())
	}
}

func TestBook_PastSlot(t *testing.T) {
	f := newFixture(t)

	// Move the clock past the slot's start.
	f.svc.clock = clock.Fixed(f.slot.FromTime.Add(time.Minute))

	_, err := f.svc.Book(context.Background(), f.bookByID())
	if !errors.Is(err, ErrPastSlot) {
		t.Fatalf("expected ErrPastSlot, got %v", err)
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("past-slot rejection must not claim the slot")
	}
	if f.appts.count() != 0 {
		t.Error("past-slot rejection must not create an appointment")
	}
}

func TestBook_SlotStartingNowIsPast(t *testing.T) {
	f := newFixture(t)
	f.svc.clock = clock.Fixed(f.slot.FromTime)

	_, err := f.svc.Book(context.Background(), f.bookByID())
	if !errors.Is(err, ErrPastSlot) {
		t.Errorf("a slot starting exactly now is not bookable, got %v", err)
	}
}

func TestBook_DoctorConflictReleasesSlot(t *testing.T) {
	f := newFixture(t)

	// The doctor already holds a scheduled appointment at the slot time,
	// created through another path.
	other := f.dir.add("st-marys", directory.UserTypePatient, "meena")
	if err := f.appts.Create(context.Background(), &Appointment{
		DoctorID:        f.doctor.ID,
		PatientID:       other.ID,
		HospitalID:      "st-marys",
		AppointmentTime: f.slot.FromTime,
		DurationMinutes: 30,
		Status:          StatusScheduled,
	}); err != nil {
		t.Fatalf("seeding conflict: %v", err)
	}

	_, err := f.svc.Book(context.Background(), f.bookByID())
	if !errors.Is(err, ErrDoctorSlotConflict) {
		t.Fatalf("expected ErrDoctorSlotConflict, got %v", err)
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("failed booking must release the claimed slot")
	}
	if f.appts.count() != 1 {
		t.Errorf("expected only the seeded appointment, got %d", f.appts.count())
	}
}

func TestBook_PatientDoubleBookingReleasesSlot(t *testing.T) {
	f := newFixture(t)

	otherDoctor := f.dir.add("st-marys", directory.UserTypeDoctor, "vikram")
	if err := f.appts.Create(context.Background(), &Appointment{
		DoctorID:        otherDoctor.ID,
		PatientID:       f.patient.ID,
		HospitalID:      "st-marys",
		AppointmentTime: f.slot.FromTime,
		DurationMinutes: 30,
		Status:          StatusScheduled,
	}); err != nil {
		t.Fatalf("seeding conflict: %v", err)
	}

	_, err := f.svc.Book(context.Background(), f.bookByID())
	if !errors.Is(err, ErrPatientDoubleBooking) {
		t.Fatalf("expected ErrPatientDoubleBooking, got %v", err)
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("failed booking must release the claimed slot")
	}
}

func TestBook_PersistFailureReleasesSlot(t *testing.T) {
	f := newFixture(t)
	f.appts.createErr = fmt.Errorf("connection reset")

	_, err := f.svc.Book(context.Background(), f.bookByID())
	if err == nil {
		t.Fatal("expected error from failed create")
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("failed persist must release the claimed slot")
	}
}

func TestBook_RoleMismatch(t *testing.T) {
	f := newFixture(t)

	req := f.bookByID()
	req.PatientID = f.doctor.ID
	_, err := f.svc.Book(context.Background(), req)
	if !errors.Is(err, directory.ErrRoleMismatch) {
		t.Errorf("expected ErrRoleMismatch booking for a doctor-as-patient, got %v", err)
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("validation failure must not claim the slot")
	}
}

func TestBook_CrossHospitalPatient(t *testing.T) {
	f := newFixture(t)

	outsider := f.dir.add("city-general", directory.UserTypePatient, "arjun")
	req := f.bookByID()
	req.PatientID = outsider.ID
	_, err := f.svc.Book(context.Background(), req)
	if !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("expected ErrNotFound for cross-hospital patient, got %v", err)
	}
}

func TestCancel_ReleasesSlot(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.bookByID())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	appt, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "st-marys")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if appt.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", appt.Status)
	}
	if !f.slots.isAvailable(t, f.slot.ID) {
		t.Error("cancelling must free the slot")
	}

	// The freed slot can be booked again.
	other := f.dir.add("st-marys", directory.UserTypePatient, "meena")
	req := f.bookByID()
	req.PatientID = other.ID
	if _, err := f.svc.Book(context.Background(), req); err != nil {
		t.Errorf("rebooking a cancelled slot failed: %v", err)
	}
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Book(context.Background(), f.bookByID())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "st-marys"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, err = f.svc.Cancel(context.Background(), result.Appointment.ID, "st-marys")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestComplete_KeepsSlotClaimed(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Book(context.Background(), f.bookByID())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	appt, err := f.svc.Complete(context.Background(), result.Appointment.ID, "st-marys")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if appt.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", appt.Status)
	}
	if f.slots.isAvailable(t, f.slot.ID) {
		t.Error("completing must not free the slot")
	}

	// Completed is terminal.
	if _, err := f.svc.Cancel(context.Background(), result.Appointment.ID, "st-marys"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling a completed appointment, got %v", err)
	}
}

func TestGet_ScopedToHospital(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Book(context.Background(), f.bookByID())
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), result.Appointment.ID, "city-general"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across hospitals, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), result.Appointment.ID, "st-marys"); err != nil {
		t.Errorf("expected lookup in own hospital to succeed, got %v", err)
	}
}
