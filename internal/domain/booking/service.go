package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcore/hms/internal/domain/availability"
	"github.com/medcore/hms/internal/domain/directory"
	"github.com/medcore/hms/internal/platform/clock"
)

// UserDirectory resolves booking participants.
type UserDirectory interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
}

type Service struct {
	appts Repository
	slots availability.Store
	users UserDirectory
	clock clock.Clock
	log   zerolog.Logger
}

func NewService(appts Repository, slots availability.Store, users UserDirectory, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{appts: appts, slots: slots, users: users, clock: clk, log: log}
}

// BookRequest references a slot either directly by SlotID or by the
// (doctor, date, label) triple shown to clients.
type BookRequest struct {
	HospitalID string
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	SlotID     *uuid.UUID
	SlotLabel  string
	Date       time.Time
}

// BookResult carries the created appointment plus participant summaries.
type BookResult struct {
	Appointment *Appointment      `json:"appointment"`
	Doctor      directory.Summary `json:"doctor"`
	Patient     directory.Summary `json:"patient"`
}

// Book runs the booking flow: resolve the slot, validate the participants and
// the start time, claim the slot, then persist the appointment. Once the claim
// has succeeded, any later failure releases the slot before the error reaches
// the caller, so a failed booking never strands an unavailable slot.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	slot, err := s.resolveSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	doctor, patient, err := s.validate(ctx, req, slot)
	if err != nil {
		return nil, err
	}

	if err := s.slots.Claim(ctx, slot.ID); err != nil {
		return nil, err
	}

	appt, err := s.persist(ctx, req, slot)
	if err != nil {
		s.release(ctx, slot.ID)
		return nil, err
	}

	return &BookResult{
		Appointment: appt,
		Doctor:      doctor.Summary(),
		Patient:     patient.Summary(),
	}, nil
}

func (s *Service) resolveSlot(ctx context.Context, req BookRequest) (*availability.Slot, error) {
	if req.SlotID != nil {
		slot, err := s.slots.GetByID(ctx, *req.SlotID)
		if err != nil {
			return nil, err
		}
		if slot.DoctorID != req.DoctorID || slot.HospitalID != req.HospitalID {
			return nil, availability.ErrSlotNotFound
		}
		return slot, nil
	}

	if req.SlotLabel == "" || req.Date.IsZero() {
		return nil, ErrMissingSlotRef
	}
	offset, _, err := availability.ParseLabel(req.SlotLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", availability.ErrSlotNotFound, err)
	}
	dayStart, dayEnd := availability.DayWindow(req.Date)
	return s.slots.FindFree(ctx, req.DoctorID, req.HospitalID, dayStart.Add(offset), dayStart, dayEnd)
}

func (s *Service) validate(ctx context.Context, req BookRequest, slot *availability.Slot) (doctor, patient *directory.User, err error) {
	doctor, err = s.users.FindUser(ctx, req.DoctorID)
	if err != nil {
		return nil, nil, err
	}
	if doctor.HospitalID != req.HospitalID {
		return nil, nil, directory.ErrNotFound
	}
	if !doctor.IsDoctor() {
		return nil, nil, fmt.Errorf("%w: appointments are booked with doctors", directory.ErrRoleMismatch)
	}

	patient, err = s.users.FindUser(ctx, req.PatientID)
	if err != nil {
		return nil, nil, err
	}
	if patient.HospitalID != req.HospitalID {
		return nil, nil, directory.ErrNotFound
	}
	if !patient.IsPatient() {
		return nil, nil, fmt.Errorf("%w: appointments are booked for patients", directory.ErrRoleMismatch)
	}

	if !slot.FromTime.After(s.clock.Now()) {
		return nil, nil, ErrPastSlot
	}
	return doctor, patient, nil
}

func (s *Service) persist(ctx context.Context, req BookRequest, slot *availability.Slot) (*Appointment, error) {
	taken, err := s.appts.ExistsScheduledForDoctorAt(ctx, req.DoctorID, slot.FromTime)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDoctorSlotConflict
	}

	taken, err = s.appts.ExistsScheduledForPatientAt(ctx, req.PatientID, slot.FromTime)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrPatientDoubleBooking
	}

	slotID := slot.ID
	appt := &Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		HospitalID:      req.HospitalID,
		SlotID:          &slotID,
		AppointmentTime: slot.FromTime,
		DurationMinutes: int(slot.ToTime.Sub(slot.FromTime) / time.Minute),
		Status:          StatusScheduled,
	}
	if err := s.appts.Create(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// release compensates a claim after a failed booking step. A failed release
// leaves the slot unavailable with no appointment; that is logged loudly
// because it needs operator attention.
func (s *Service) release(ctx context.Context, slotID uuid.UUID) {
	if err := s.slots.Release(ctx, slotID); err != nil {
		s.log.Error().Err(err).Str("slot_id", slotID.String()).
			Msg("failed to release slot after aborted booking")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, hospitalID string) (*Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hospitalID != "" && appt.HospitalID != hospitalID {
		return nil, ErrNotFound
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Appointment, int, error) {
	return s.appts.List(ctx, opts)
}

// Cancel moves a scheduled appointment to cancelled and frees its slot so it
// can be booked again. Cancelling an already terminal appointment fails with
// ErrInvalidTransition.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, hospitalID string) (*Appointment, error) {
	appt, err := s.Get(ctx, id, hospitalID)
	if err != nil {
		return nil, err
	}
	if err := s.appts.UpdateStatus(ctx, id, StatusScheduled, StatusCancelled); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled

	// The slot may have been deleted by a re-declared window in the meantime.
	if appt.SlotID != nil {
		if err := s.slots.Release(ctx, *appt.SlotID); err != nil &&
			!errors.Is(err, availability.ErrSlotNotFound) {
			s.log.Error().Err(err).Str("slot_id", appt.SlotID.String()).
				Msg("failed to release slot for cancelled appointment")
		}
	}
	return appt, nil
}

// Complete moves a scheduled appointment to completed. The slot stays
// unavailable; the consultation happened.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, hospitalID string) (*Appointment, error) {
	appt, err := s.Get(ctx, id, hospitalID)
	if err != nil {
		return nil, err
	}
	if err := s.appts.UpdateStatus(ctx, id, StatusScheduled, StatusCompleted); err != nil {
		return nil, err
	}
	appt.Status = StatusCompleted
	return appt, nil
}
