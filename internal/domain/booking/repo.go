package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListOptions narrows List results. Nil or zero-valued fields are ignored.
type ListOptions struct {
	HospitalID string
	DoctorID   *uuid.UUID
	PatientID  *uuid.UUID
	From       *time.Time
	To         *time.Time
	Status     string
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ExistsScheduledForDoctorAt reports whether the doctor already holds a
	// scheduled appointment starting at t.
	ExistsScheduledForDoctorAt(ctx context.Context, doctorID uuid.UUID, t time.Time) (bool, error)

	// ExistsScheduledForPatientAt reports whether the patient already holds a
	// scheduled appointment starting at t.
	ExistsScheduledForPatientAt(ctx context.Context, patientID uuid.UUID, t time.Time) (bool, error)

	List(ctx context.Context, opts ListOptions) ([]*Appointment, int, error)

	// UpdateStatus moves the appointment from one status to another. The
	// update is guarded on the current status; ErrInvalidTransition is
	// returned when the appointment is not in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
}
