package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// UserRepository persists users for the local credential provider.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, display_name, email_verified, is_anonymous,
	anonymous_session_id, auth_methods, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, u *user.User, passwordHash string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, email_verified, is_anonymous,
			anonymous_session_id, auth_methods, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.DisplayName, u.EmailVerified, u.IsAnonymous,
		u.AnonymousSessionID, methodsToStrings(u.AuthMethods), passwordHash,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) GetCredentials(ctx context.Context, email string) (*user.Credentials, error) {
	var creds user.Credentials
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email,
	).Scan(&creds.UserID, &creds.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credentials")
	}
	return &creds, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check user existence")
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET email = $2, display_name = $3, email_verified = $4, is_anonymous = $5,
			anonymous_session_id = $6, auth_methods = $7, updated_at = $8
		WHERE id = $1`,
		u.ID, u.Email, u.DisplayName, u.EmailVerified, u.IsAnonymous,
		u.AnonymousSessionID, methodsToStrings(u.AuthMethods), u.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update password")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete user")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var methods []string
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.EmailVerified, &u.IsAnonymous,
		&u.AnonymousSessionID, &methods, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan user")
	}
	u.AuthMethods = stringsToMethods(methods)
	return &u, nil
}

func methodsToStrings(methods []user.AuthMethod) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}

func stringsToMethods(values []string) []user.AuthMethod {
	out := make([]user.AuthMethod, len(values))
	for i, v := range values {
		out[i] = user.AuthMethod(v)
	}
	return out
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
