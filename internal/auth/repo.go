package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parcelhub/parcelhub/internal/platform/db"
	"github.com/parcelhub/parcelhub/internal/platform/httpx"
	"github.com/parcelhub/parcelhub/internal/shared"
)

// ErrUsernameTaken is returned when creating an account whose username exists.
var ErrUsernameTaken = fmt.Errorf("%w: username already taken", httpx.ErrDuplicate)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.username, u.name, u.password_hash, u.role, COALESCE(b.slug, ''),
	       u.is_active, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN branches b ON b.owner_id = u.id`

// FindByUsername fetches a user by login name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE u.username = $1`, username)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

func (r *PGRepository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	var (
		u    User
		role string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Name, &u.PasswordHash, &role, &u.OfficeID,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	u.Role = shared.ParseRole(role)
	return &u, nil
}

// CreateUser inserts an account inside an existing transaction and returns its id.
func CreateUser(ctx context.Context, tx pgx.Tx, username, name, passwordHash string, role shared.Role) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO users (username, name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`, username, name, passwordHash, string(role)).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
