package masterdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pms/internal/domain/auth"
)

type Service struct {
	store *Store
	Now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, Now: time.Now}
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalid, field, reason)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return s.store.GetCategory(ctx, id)
}

// CreateCategory stores a category whose limits are fractions of 1.0.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, invalid("name", "is required")
	}
	for field, limit := range map[string]float64{
		"routineLimit":    c.RoutineLimit,
		"nonRoutineLimit": c.NonRoutineLimit,
		"projectLimit":    c.ProjectLimit,
	} {
		if limit < 0 || limit > 1 {
			return Category{}, invalid(field, "must be between 0 and 1")
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.Now().UTC()
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) GetDepartment(ctx context.Context, id string) (Department, error) {
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Department{}, invalid("name", "is required")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = s.Now().UTC()
	if err := s.store.CreateDepartment(ctx, d); err != nil {
		return Department{}, err
	}
	return d, nil
}

func (s *Service) GetUserProfile(ctx context.Context, user auth.UserContext, npk string) (UserProfile, error) {
	profile, err := s.store.GetUser(ctx, npk)
	if err != nil {
		return UserProfile{}, err
	}
	FilterProfileFields(&profile, user)
	return profile, nil
}

func (s *Service) ListUsers(ctx context.Context, departmentID string, limit, offset int) ([]UserProfile, error) {
	return s.store.ListUsers(ctx, departmentID, limit, offset)
}

func (s *Service) CreateUser(ctx context.Context, in NewUser) (UserProfile, error) {
	u := in.UserProfile
	u.NPK = strings.TrimSpace(u.NPK)
	u.Name = strings.TrimSpace(u.Name)
	switch {
	case u.NPK == "":
		return UserProfile{}, invalid("npk", "is required")
	case u.Name == "":
		return UserProfile{}, invalid("name", "is required")
	case !auth.ValidRole(u.Role):
		return UserProfile{}, invalid("role", "must be USER, OPERATION or ADMIN")
	case len(in.Password) < 8:
		return UserProfile{}, invalid("password", "must be at least 8 characters")
	}
	if u.DepartmentID != "" {
		if _, err := s.store.GetDepartment(ctx, u.DepartmentID); err != nil {
			return UserProfile{}, err
		}
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserProfile{}, err
	}
	u.CreatedAt = s.Now().UTC()
	if err := s.store.CreateUser(ctx, u, hash); err != nil {
		return UserProfile{}, err
	}
	return u, nil
}
