package directory

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// User types recognized by the directory.
const (
	UserTypeDoctor  = "doctor"
	UserTypePatient = "patient"
	UserTypeStaff   = "staff"
)

var validUserTypes = map[string]bool{
	UserTypeDoctor: true, UserTypePatient: true, UserTypeStaff: true,
}

// User maps to the users table. The directory is the single registry for
// doctors, patients and hospital staff; availability and booking resolve
// participants through it.
type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	HospitalID     string    `db:"hospital_id" json:"hospital_id"`
	UserType       string    `db:"user_type" json:"user_type"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields a caller controls.
func (u *User) Validate() error {
	if u.HospitalID == "" {
		return fmt.Errorf("hospital_id is required")
	}
	if !validUserTypes[u.UserType] {
		return fmt.Errorf("invalid user type: %s", u.UserType)
	}
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email: %s", u.Email)
	}
	return nil
}

// IsDoctor reports whether the user is registered as a doctor.
func (u *User) IsDoctor() bool { return u.UserType == UserTypeDoctor }

// IsPatient reports whether the user is registered as a patient.
func (u *User) IsPatient() bool { return u.UserType == UserTypePatient }

// Summary is the participant view embedded in availability and booking
// responses.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization *string   `json:"specialization,omitempty"`
}

// Summary returns the participant view of the user.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Specialization: u.Specialization}
}
