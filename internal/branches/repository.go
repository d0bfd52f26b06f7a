package branches

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/auth"
	"github.com/parcelhub/parcelhub/internal/platform/db"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// Repository persists branches.
type Repository interface {
	Create(ctx context.Context, b Branch, owner NewOwner) (Branch, error)
	Get(ctx context.Context, slug string) (Branch, error)
	List(ctx context.Context, exclude string) ([]Branch, error)
	Delete(ctx context.Context, slug string) error
	// AdvanceDay moves the operational date forward once per calendar day of now.
	AdvanceDay(ctx context.Context, slug string, now time.Time) (Branch, error)
}

// PGRepository implements Repository on postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectBranch = `
	SELECT b.slug, b.title, COALESCE(b.description, ''), COALESCE(b.owner_id, 0), COALESCE(u.username, ''),
	       b.current_operational_date, b.last_day_end_at, b.created_at
	FROM branches b
	LEFT JOIN users u ON u.id = b.owner_id`

// Create inserts the owner account and the branch in one transaction.
func (r *PGRepository) Create(ctx context.Context, b Branch, owner NewOwner) (Branch, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ownerID, err := auth.CreateUser(ctx, tx, owner.Username, owner.Name, owner.PasswordHash, shared.RoleOfficeAdmin)
		if err != nil {
			return err
		}
		b.OwnerID = ownerID
		b.OwnerUsername = owner.Username
		return tx.QueryRow(ctx, `
			INSERT INTO branches (slug, title, description, owner_id, current_operational_date)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			RETURNING created_at`,
			b.Slug, b.Title, b.Description, b.OwnerID, b.CurrentOperationalDate,
		).Scan(&b.CreatedAt)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Branch{}, ErrSlugTaken
		}
		return Branch{}, err
	}
	return b, nil
}

// Get loads one branch.
func (r *PGRepository) Get(ctx context.Context, slug string) (Branch, error) {
	b, err := scanBranch(r.pool.QueryRow(ctx, selectBranch+` WHERE b.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

// List returns every branch except exclude, ordered by title.
func (r *PGRepository) List(ctx context.Context, exclude string) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, selectBranch+` WHERE b.slug <> $1 ORDER BY b.title, b.slug`, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the branch and its owner account.
func (r *PGRepository) Delete(ctx context.Context, slug string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var ownerID *int64
		err := tx.QueryRow(ctx, `DELETE FROM branches WHERE slug = $1 RETURNING owner_id`, slug).Scan(&ownerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			if db.IsForeignKeyViolation(err) {
				return ErrInUse
			}
			return err
		}
		if ownerID == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, *ownerID)
		return err
	})
}

// AdvanceDay is a single conditional update so two concurrent day ends cannot both succeed.
func (r *PGRepository) AdvanceDay(ctx context.Context, slug string, now time.Time) (Branch, error) {
	var advanced string
	err := r.pool.QueryRow(ctx, `
		UPDATE branches
		SET current_operational_date = current_operational_date + 1, last_day_end_at = $2
		WHERE slug = $1 AND (last_day_end_at IS NULL OR (last_day_end_at AT TIME ZONE 'UTC')::date <> ($2::timestamptz AT TIME ZONE 'UTC')::date)
		RETURNING slug`, slug, now).Scan(&advanced)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, err
		}
		if _, getErr := r.Get(ctx, slug); getErr != nil {
			return Branch{}, getErr
		}
		return Branch{}, ErrDayEndDone
	}
	return r.Get(ctx, advanced)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (Branch, error) {
	var b Branch
	err := row.Scan(&b.Slug, &b.Title, &b.Description, &b.OwnerID, &b.OwnerUsername,
		&b.CurrentOperationalDate, &b.LastDayEndAt, &b.CreatedAt)
	return b, err
}

var _ Repository = (*PGRepository)(nil)
