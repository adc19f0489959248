package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists doctor availability. Claim and Release are the concurrency
// primitives the booking flow is built on: Claim flips is_available
// true→false atomically and never overwrites a taken slot.
type Store interface {
	// ReplaceWindow deletes the doctor's existing slots contained in the
	// window and inserts the generated ones. Declaring a window twice yields
	// the same slots, not duplicates.
	ReplaceWindow(ctx context.Context, w Window, slots []Slot) error

	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// FindFree returns the single free slot for the doctor starting at
	// startsAt within [dayStart, dayEnd). ErrSlotNotFound when none matches,
	// ErrAmbiguousSlot when more than one does.
	FindFree(ctx context.Context, doctorID uuid.UUID, hospitalID string, startsAt, dayStart, dayEnd time.Time) (*Slot, error)

	// Claim marks the slot unavailable if and only if it is currently free.
	Claim(ctx context.Context, id uuid.UUID) error

	// Release marks a claimed slot available again. Used to compensate a
	// booking that failed after its claim succeeded.
	Release(ctx context.Context, id uuid.UUID) error

	// ListAvailable returns free slots in [dayStart, dayEnd) for the
	// hospital, ascending by doctor then start time. doctorID narrows the
	// result to one doctor when non-nil.
	ListAvailable(ctx context.Context, hospitalID string, dayStart, dayEnd time.Time, doctorID *uuid.UUID) ([]*Slot, error)
}
