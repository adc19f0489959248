package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medcore/hms/internal/platform/auth"
)

type Service struct {
	users Repository
}

func NewService(users Repository) *Service {
	return &Service{users: users}
}

// CreateUser validates and registers a user, hashing the supplied password.
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.users.Create(ctx, u)
}

// FindUser is the lookup consumed by availability and booking.
func (s *Service) FindUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, filter, limit, offset)
}
