package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEvent signals the event id was already recorded; the replayed
// delivery is skipped wholesale.
var ErrDuplicateEvent = errors.New("payment: duplicate event")

// IdempotencyStore records processed webhook event ids. Insert reserves the
// id; Delete compensates when processing fails after the reservation so the
// provider's retry is not silently swallowed.
type IdempotencyStore interface {
	Insert(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// PGIdempotencyStore backs the ledger with a unique-keyed table.
type PGIdempotencyStore struct {
	pool *pgxpool.Pool
}

func NewPGIdempotencyStore(pool *pgxpool.Pool) *PGIdempotencyStore {
	return &PGIdempotencyStore{pool: pool}
}

func (s *PGIdempotencyStore) Insert(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("payment: empty idempotency key")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO webhook_idempotency (key) VALUES ($1)`, key)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("payment: insert idempotency key: %w", err)
	}
	return nil
}

func (s *PGIdempotencyStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM webhook_idempotency WHERE key = $1`, key); err != nil {
		return fmt.Errorf("payment: delete idempotency key: %w", err)
	}
	return nil
}

// MemoryIdempotencyStore is the map-backed equivalent.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{seen: make(map[string]struct{})}
}

func (s *MemoryIdempotencyStore) Insert(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("payment: empty idempotency key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return ErrDuplicateEvent
	}
	s.seen[key] = struct{}{}
	return nil
}

func (s *MemoryIdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}
