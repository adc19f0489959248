package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultGranularity is the slot length used when a window does not specify
// one.
const DefaultGranularity = 30 * time.Minute

// Window is a doctor's declared availability interval. Slots() cuts it into
// contiguous slots of Granularity length; any remainder shorter than one
// granularity unit is dropped.
type Window struct {
	DoctorID    uuid.UUID
	HospitalID  string
	From        time.Time
	To          time.Time
	Granularity time.Duration
}

// Validate checks the window bounds. A window must span at least one
// granularity unit.
func (w Window) Validate() error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor id is required", ErrInvalidRange)
	}
	if w.HospitalID == "" {
		return fmt.Errorf("%w: hospital id is required", ErrInvalidRange)
	}
	if w.From.IsZero() || w.To.IsZero() {
		return fmt.Errorf("%w: window bounds are required", ErrInvalidRange)
	}
	if !w.From.Before(w.To) {
		return fmt.Errorf("%w: from %s is not before to %s", ErrInvalidRange,
			w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	if w.granularity() <= 0 {
		return fmt.Errorf("%w: granularity must be positive", ErrInvalidRange)
	}
	if w.To.Sub(w.From) < w.granularity() {
		return fmt.Errorf("%w: window %s is shorter than one slot", ErrInvalidRange,
			w.To.Sub(w.From))
	}
	return nil
}

func (w Window) granularity() time.Duration {
	if w.Granularity == 0 {
		return DefaultGranularity
	}
	return w.Granularity
}

// Count returns the number of slots the window produces.
func (w Window) Count() int {
	if w.granularity() <= 0 || !w.From.Before(w.To) {
		return 0
	}
	return int(w.To.Sub(w.From) / w.granularity())
}

// Slots materializes the window into ascending, contiguous slots. The
// computation is pure; identifiers and persistence flags are assigned by the
// store.
func (w Window) Slots() []Slot {
	g := w.granularity()
	n := w.Count()
	slots := make([]Slot, 0, n)
	start := w.From.UTC()
	for i := 0; i < n; i++ {
		from := start.Add(time.Duration(i) * g)
		day, _ := DayWindow(from)
		slots = append(slots, Slot{
			DoctorID:    w.DoctorID,
			HospitalID:  w.HospitalID,
			SlotDate:    day,
			FromTime:    from,
			ToTime:      from.Add(g),
			IsAvailable: true,
		})
	}
	return slots
}
