package buses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/platform/db"
)

// Repository persists buses.
type Repository interface {
	Create(ctx context.Context, b Bus) (Bus, error)
	List(ctx context.Context) ([]Bus, error)
	Delete(ctx context.Context, slug string) error
}

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a bus; a duplicate number is ErrNumberTaken.
func (r *PGRepository) Create(ctx context.Context, b Bus) (Bus, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO buses (slug, bus_number, preferred_days, description)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING created_at`,
		b.Slug, b.BusNumber, int32s(b.PreferredDays), b.Description,
	).Scan(&b.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Bus{}, ErrNumberTaken
		}
		return Bus{}, err
	}
	return b, nil
}

// List returns all buses ordered by number.
func (r *PGRepository) List(ctx context.Context) ([]Bus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slug, bus_number, preferred_days, COALESCE(description, ''), created_at
		FROM buses ORDER BY bus_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bus
	for rows.Next() {
		var b Bus
		var days []int32
		if err := rows.Scan(&b.Slug, &b.BusNumber, &days, &b.Description, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.PreferredDays = make([]int, len(days))
		for i, d := range days {
			b.PreferredDays[i] = int(d)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes a bus. Shipments keep their row with the bus cleared.
func (r *PGRepository) Delete(ctx context.Context, slug string) error {
	var deleted string
	err := r.pool.QueryRow(ctx, `DELETE FROM buses WHERE slug = $1 RETURNING slug`, slug).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func int32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

var _ Repository = (*PGRepository)(nil)
