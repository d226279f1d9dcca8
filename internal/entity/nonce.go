package entity

import (
	"context"
	"errors"
	"time"
)

// ErrNonceReused signals that the nonce insert hit the unique constraint,
// which means the request is a replay.
var ErrNonceReused = errors.New("nonce already consumed")

// NonceRecord is a single-use token scoped to a tenant. Rows are ephemeral
// and pruned independently of lead data.
type NonceRecord struct {
	Scope     string    `json:"scope"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}

type NonceStoreInterface interface {

	// Consume inserts the nonce and returns ErrNonceReused when it was
	// already present. Detection is atomic with the insert; there is no
	// separate existence check.
	Consume(ctx context.Context, scope, nonce string) error
}
