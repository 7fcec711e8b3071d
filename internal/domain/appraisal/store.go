package appraisal

import (
	"errors"
	"fmt"

	"pms/internal/platform/querier"
)

// Store persists plans through a querier.DB; the same statements run on
// Postgres and SQLite.
type Store struct {
	DB querier.DB
}

func NewStore(db querier.DB) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)

func transportErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func lookupErr(err, notFound error) error {
	if errors.Is(err, querier.ErrNoRows) {
		return notFound
	}
	return transportErr(err)
}

func affectedErr(n int64, err, notFound error) error {
	if err != nil {
		return transportErr(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
