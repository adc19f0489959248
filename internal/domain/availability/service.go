package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/hms/internal/domain/directory"
)

// UserDirectory resolves the doctors whose availability is being declared or
// listed.
type UserDirectory interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
}

type Service struct {
	store Store
	users UserDirectory
}

func NewService(store Store, users UserDirectory) *Service {
	return &Service{store: store, users: users}
}

// DeclareWindow validates the doctor and the window, generates the slots and
// replaces any previously declared slots the window contains. Declaring the
// same window twice yields the same slots.
func (s *Service) DeclareWindow(ctx context.Context, w Window) ([]Slot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	doctor, err := s.users.FindUser(ctx, w.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor.HospitalID != w.HospitalID {
		return nil, directory.ErrNotFound
	}
	if !doctor.IsDoctor() {
		return nil, fmt.Errorf("%w: availability belongs to doctors", directory.ErrRoleMismatch)
	}

	slots := w.Slots()
	if err := s.store.ReplaceWindow(ctx, w, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// SlotView is the per-slot payload in day listings.
type SlotView struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	StartsAt time.Time `json:"starts_at"`
}

// DoctorDay groups a doctor's free slots for one day.
type DoctorDay struct {
	Doctor directory.Summary `json:"doctor"`
	Slots  []SlotView        `json:"slots"`
}

// ListForDay returns each doctor's free slots for the UTC day containing
// date. Doctors with no free slots are omitted; a day with no slots at all
// yields an empty list.
func (s *Service) ListForDay(ctx context.Context, hospitalID string, date time.Time, doctorID *uuid.UUID) ([]DoctorDay, error) {
	dayStart, dayEnd := DayWindow(date)
	slots, err := s.store.ListAvailable(ctx, hospitalID, dayStart, dayEnd, doctorID)
	if err != nil {
		return nil, err
	}

	days := []DoctorDay{}
	index := map[uuid.UUID]int{}
	for _, slot := range slots {
		i, ok := index[slot.DoctorID]
		if !ok {
			doctor, err := s.users.FindUser(ctx, slot.DoctorID)
			if err != nil {
				return nil, err
			}
			days = append(days, DoctorDay{Doctor: doctor.Summary()})
			i = len(days) - 1
			index[slot.DoctorID] = i
		}
		days[i].Slots = append(days[i].Slots, SlotView{
			ID:       slot.ID,
			Label:    slot.Label(),
			StartsAt: slot.FromTime,
		})
	}
	return days, nil
}
