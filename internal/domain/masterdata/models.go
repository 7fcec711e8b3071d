package masterdata

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInvalid   = errors.New("invalid input")
)

var (
	ErrCategoryNotFound   = fmt.Errorf("%w: category", ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("%w: department", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
)

type Category struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	RoutineLimit    float64   `json:"routineLimit"`
	NonRoutineLimit float64   `json:"nonRoutineLimit"`
	ProjectLimit    float64   `json:"projectLimit"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserProfile struct {
	NPK          string    `json:"npk"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Section      string    `json:"section"`
	Position     string    `json:"position"`
	Grade        string    `json:"grade,omitempty"`
	DepartmentID string    `json:"departmentId"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser is a profile plus the initial password.
type NewUser struct {
	UserProfile
	Password string `json:"password"`
}
