package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// NonceRepository backs replay protection. Consume is a bare insert against
// the (scope, nonce) primary key: the unique-constraint conflict IS the
// replay signal, so there is no check-then-insert window.
type NonceRepository struct {
	DB *sql.DB
}

func NewNonceRepository(db *sql.DB) *NonceRepository {
	return &NonceRepository{DB: db}
}

func (r *NonceRepository) Consume(ctx context.Context, scope, nonce string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO request_nonces (scope, nonce, created_at)
		VALUES ($1, $2, NOW())
	`, scope, nonce)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrNonceReused
		}
		return err
	}

	return nil
}
