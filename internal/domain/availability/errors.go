package availability

import "errors"

var (
	// ErrInvalidRange is returned when a declared window does not span at
	// least one granularity unit or its bounds are malformed.
	ErrInvalidRange = errors.New("invalid availability window")

	// ErrSlotNotFound is returned when a slot reference resolves to nothing.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrAmbiguousSlot is returned when a doctor+date+label reference matches
	// more than one slot. The triple is expected to be unique per doctor and
	// day; duplicates indicate overlapping declarations.
	ErrAmbiguousSlot = errors.New("slot reference is ambiguous")

	// ErrSlotAlreadyBooked is returned when a claim loses the race: the slot
	// was free when resolved but taken by the time the claim executed.
	ErrSlotAlreadyBooked = errors.New("slot already booked")

	// ErrVerificationFailed is returned when the number of slots persisted by
	// a window replacement does not match the number generated.
	ErrVerificationFailed = errors.New("slot persistence verification failed")
)
