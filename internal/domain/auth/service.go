package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pms/internal/platform/querier"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	Store  *Store
	Secret string
	TTL    time.Duration
}

func NewService(store *Store, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Secret: secret, TTL: ttl}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	NPK       string    `json:"npk"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

func (s *Service) Login(ctx context.Context, npk, password string) (LoginResult, error) {
	npk = strings.TrimSpace(npk)
	if npk == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	creds, err := s.Store.FindCredentials(ctx, npk)
	if err != nil {
		if errors.Is(err, querier.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find credentials: %w", err)
	}
	if err := CheckPassword(creds.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.Secret, Claims{NPK: creds.NPK, Role: creds.Role}, s.TTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.TTL).UTC(),
		NPK:       creds.NPK,
		Name:      creds.Name,
		Role:      creds.Role,
	}, nil
}
