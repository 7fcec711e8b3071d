package auth

import (
	"context"

	"pms/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type Credentials struct {
	NPK          string
	Name         string
	Role         string
	PasswordHash string
}

func (s *Store) FindCredentials(ctx context.Context, npk string) (Credentials, error) {
	var out Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT npk, name, role, password_hash
    FROM users
    WHERE npk = $1
  `, npk).Scan(&out.NPK, &out.Name, &out.Role, &out.PasswordHash)
	return out, err
}
