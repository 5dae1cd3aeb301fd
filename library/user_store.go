package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const userColumns = `id,name,email,password_hash,role,created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func insertUser(ctx context.Context, q querier, u *User) error {
	res, err := q.ExecContext(ctx, `INSERT INTO users(name,email,password_hash,role,created_at) VALUES(?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%s: %w", u.Email, ErrEmailTaken)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func getUser(ctx context.Context, q querier, id int64) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// findUserByLogin looks a user up by email (case-insensitive) or, failing
// that, by display name. The oldest matching account wins.
func findUserByLogin(ctx context.Context, q querier, identifier string) (*User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `
        SELECT `+userColumns+` FROM users
        WHERE email = ? OR name = ?
        ORDER BY (email = ?) DESC, id
        LIMIT 1`, strings.ToLower(identifier), identifier, strings.ToLower(identifier)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", identifier, err)
	}
	return u, nil
}

func emailExists(ctx context.Context, q querier, email string) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=?)`, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}
