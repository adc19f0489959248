package directory

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Zero-valued fields are ignored.
type ListFilter struct {
	HospitalID     string
	UserType       string
	Specialization string
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*User, int, error)
}
