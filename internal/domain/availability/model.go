package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot maps to the availability_slots table. A slot is one bookable unit of a
// doctor's declared availability. All timestamps are stored and compared in
// UTC.
type Slot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	HospitalID  string    `db:"hospital_id" json:"hospital_id"`
	SlotDate    time.Time `db:"slot_date" json:"slot_date"`
	FromTime    time.Time `db:"from_time" json:"from_time"`
	ToTime      time.Time `db:"to_time" json:"to_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Label renders the presentation form of the slot, "HH:MM-HH:MM" in UTC. The
// label is derived, never stored, and is not an identity field on its own; it
// identifies a slot only together with a doctor and a date.
func (s *Slot) Label() string {
	return fmt.Sprintf("%s-%s", s.FromTime.UTC().Format("15:04"), s.ToTime.UTC().Format("15:04"))
}

// ParseLabel parses a "HH:MM-HH:MM" display label and returns the start and
// end offsets from midnight.
func ParseLabel(label string) (from, to time.Duration, err error) {
	var fh, fm, th, tm int
	if _, err := fmt.Sscanf(label, "%d:%d-%d:%d", &fh, &fm, &th, &tm); err != nil {
		return 0, 0, fmt.Errorf("malformed slot label %q", label)
	}
	if fh < 0 || fh > 23 || th < 0 || th > 24 || fm < 0 || fm > 59 || tm < 0 || tm > 59 {
		return 0, 0, fmt.Errorf("slot label %q out of range", label)
	}
	from = time.Duration(fh)*time.Hour + time.Duration(fm)*time.Minute
	to = time.Duration(th)*time.Hour + time.Duration(tm)*time.Minute
	return from, to, nil
}

// DayWindow returns the [start, end) UTC day bounds containing t.
func DayWindow(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
