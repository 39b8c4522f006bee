package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested store does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateSlug signals a slug collision on create.
var ErrDuplicateSlug = errors.New("store: slug already taken")

const profileColumns = `id, owner_user_id::text, name, slug, verified, created_at`

// Repository provides access to store profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.Slug, &p.Verified, &p.CreatedAt)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Create inserts a new unverified store for a seller.
func (r *Repository) Create(ctx context.Context, ownerUserID, name, slug string) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO stores (owner_user_id, name, slug, verified)
		VALUES ($1, $2, $3, false)
		RETURNING `+profileColumns, ownerUserID, name, slug))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Profile{}, ErrDuplicateSlug
		}
		return Profile{}, fmt.Errorf("store: insert: %w", err)
	}
	return p, nil
}

// GetByID fetches a store profile by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM stores WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("store: query by id: %w", err)
	}
	return p, nil
}

// GetBySlug fetches a store profile by its public slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM stores WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("store: query by slug: %w", err)
	}
	return p, nil
}

// GetByOwner fetches the store owned by a user.
func (r *Repository) GetByOwner(ctx context.Context, ownerUserID string) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM stores WHERE owner_user_id = $1`, ownerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("store: query by owner: %w", err)
	}
	return p, nil
}

// List fetches up to limit store profiles ordered by name.
func (r *Repository) List(ctx context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM stores ORDER BY name ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	profiles := make([]Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate profiles: %w", err)
	}
	return profiles, nil
}
