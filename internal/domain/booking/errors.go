package booking

import "errors"

var (
	// ErrNotFound is returned when no appointment matches the lookup.
	ErrNotFound = errors.New("appointment not found")

	// ErrPastSlot is returned when the requested slot starts at or before the
	// current time. Appointments are only created for future slots.
	ErrPastSlot = errors.New("slot is in the past")

	// ErrDoctorSlotConflict is returned when the doctor already holds a
	// scheduled appointment at the requested time.
	ErrDoctorSlotConflict = errors.New("doctor already booked at this time")

	// ErrPatientDoubleBooking is returned when the patient already holds a
	// scheduled appointment at the requested time.
	ErrPatientDoubleBooking = errors.New("patient already booked at this time")

	// ErrInvalidTransition is returned when a status change is not permitted
	// from the appointment's current state.
	ErrInvalidTransition = errors.New("invalid appointment status transition")

	// ErrMissingSlotRef is returned when a booking request carries neither a
	// slot id nor a label+date pair.
	ErrMissingSlotRef = errors.New("slot reference is required")
)
