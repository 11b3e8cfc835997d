package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodiehub/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const userColumns = `
	id, first_name, last_name, email, password_hash, is_admin, is_active,
	banned_at, bio, avatar_url, location, is_public, email_notifications,
	last_login_at, created_at, updated_at`

func scanUser(row pgx.Row, user *User) error {
	var hash []byte

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&hash,
		&user.IsAdmin,
		&user.IsActive,
		&user.BannedAt,
		&user.Bio,
		&user.AvatarURL,
		&user.Location,
		&user.IsPublic,
		&user.EmailNotifications,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	user.Password.SetHash(hash)
	return nil
}

func (r *Repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_admin, is_active, is_public, email_notifications, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Password.Hash(),
	).Scan(
		&user.ID,
		&user.IsAdmin,
		&user.IsActive,
		&user.IsPublic,
		&user.EmailNotifications,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err, "users_email_key") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	var user User
	if err := scanUser(r.db.QueryRow(ctx, query, userID), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`

	var user User
	if err := scanUser(r.db.QueryRow(ctx, query, email), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Update(ctx context.Context, userID int64, updateData map[string]interface{}) error {
	set := []string{}
	args := []any{}
	argCounter := 1

	for key, value := range updateData {
		switch key {
		case "first_name", "last_name", "bio", "location":
			set = append(set, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
			argCounter++
		case "is_public", "email_notifications":
			flag, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid %s value", key)
			}
			set = append(set, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, flag)
			argCounter++
		default:
			return fmt.Errorf("unknown user field: %s", key)
		}
	}

	if len(set) == 0 {
		return fmt.Errorf("no fields to update")
	}

	set = append(set, "updated_at = now()")

	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d AND deleted_at IS NULL",
		strings.Join(set, ", "), argCounter,
	)
	args = append(args, userID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetAvatar(ctx context.Context, userID int64, avatarURL string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET avatar_url = $1, updated_at = now() WHERE id = $2`,
		avatarURL, userID,
	)
	return err
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token = $1 WHERE id = $2`,
		refreshToken, userID,
	)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	var token string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(refresh_token, '') FROM users WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token = NULL WHERE id = $1`,
		userID,
	)
	return err
}

func (r *Repository) RecordLogin(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_login_at = now() WHERE id = $1`,
		userID,
	)
	return err
}

func (r *Repository) Ban(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET banned_at = now(), is_active = false, refresh_token = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Unban(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET banned_at = NULL, is_active = true, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("unban user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET deleted_at = now(), is_active = false, refresh_token = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListAdmin(ctx context.Context, filters AdminListFilters, limit, offset int) ([]User, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	argCounter := 1

	if filters.Search != nil {
		pattern := "%" + *filters.Search + "%"
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)",
			argCounter, argCounter, argCounter,
		))
		args = append(args, pattern)
		argCounter++
	}
	if filters.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", argCounter))
		args = append(args, *filters.IsActive)
		argCounter++
	}
	if filters.IsAdmin != nil {
		where = append(where, fmt.Sprintf("is_admin = $%d", argCounter))
		args = append(args, *filters.IsAdmin)
		argCounter++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE "+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, userColumns, whereClause, argCounter, argCounter+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var user User
		if err := scanUser(rows, &user); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
