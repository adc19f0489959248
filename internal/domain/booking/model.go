package booking

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Scheduled is the only non-terminal state.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointments table. AppointmentTime equals the
// claimed slot's start time; DurationMinutes equals the slot granularity.
// SlotID references the claimed slot and becomes nil if the slot is later
// deleted by a re-declared availability window.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	HospitalID      string     `db:"hospital_id" json:"hospital_id"`
	SlotID          *uuid.UUID `db:"slot_id" json:"slot_id,omitempty"`
	AppointmentTime time.Time  `db:"appointment_time" json:"appointment_time"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CanTransition reports whether an appointment may move between the two
// statuses. Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	if from != StatusScheduled {
		return false
	}
	return to == StatusCompleted || to == StatusCancelled
}

// IsScheduled reports whether the appointment still occupies its slot.
func (a *Appointment) IsScheduled() bool { return a.Status == StatusScheduled }
