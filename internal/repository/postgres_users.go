package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tixit/internal/domain"
)

const pgUniqueViolation = "23505"

type postgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository returns a Postgres-backed implementation.
func NewPostgresUserRepository(pool *pgxpool.Pool) UserRepository {
	return &postgresUserRepository{pool: pool}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	if !user.Credentials.Usable() {
		return domain.ErrNoCredential
	}
	const query = `
        INSERT INTO users (name, email, password_hash, google_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id::text, email, created_at, updated_at`

	hash, _ := user.Credentials.PasswordHash()
	externalID, _ := user.Credentials.ExternalID()
	err := r.pool.QueryRow(ctx, query,
		user.Name,
		NormalizeEmail(user.Email),
		nullable(hash),
		nullable(externalID),
	).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	return mapPgError(err)
}

const selectUser = `
        SELECT id::text, name, email, password_hash, google_id, created_at, updated_at
        FROM users`

func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, selectUser+` WHERE id::text=$1`, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, selectUser+` WHERE email=$1`, NormalizeEmail(email))
}

func (r *postgresUserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, domain.ErrNotFound
	}
	return r.fetchSingle(ctx, selectUser+` WHERE google_id=$1`, externalID)
}

func (r *postgresUserRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user       domain.User
		hash       *string
		externalID *string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&hash,
		&externalID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	user.Credentials = domain.RestoreCredentials(deref(hash), deref(externalID))
	return &user, nil
}

func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return domain.ErrNoCredential
	}
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id::text=$2`
	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresUserRepository) LinkExternalID(ctx context.Context, id, externalID string) error {
	if externalID == "" {
		return domain.ErrNoCredential
	}
	const query = `
        UPDATE users SET google_id=$1, updated_at=NOW()
        WHERE id::text=$2 AND (google_id IS NULL OR google_id=$1)`
	cmd, err := r.pool.Exec(ctx, query, externalID, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id::text=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicate
	}
	return domain.ErrNotFound
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicate
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
