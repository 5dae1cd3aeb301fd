package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const maxPasswordBytes = 72

// Registration is the sign-up form.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     Role   `json:"role" validate:"omitempty,oneof=user admin"`
}

// Accounts registers and authenticates users.
type Accounts struct {
	db         *Database
	logger     *slog.Logger
	now        func() time.Time
	bcryptCost int
}

// Register creates a user. The password is hashed before it is stored.
func (a *Accounts) Register(ctx context.Context, reg Registration) (*User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if err := validateStruct(reg); err != nil {
		return nil, err
	}
	// bcrypt rejects passwords longer than 72 bytes; max=72 above counts runes.
	if len(reg.Password) > maxPasswordBytes {
		return nil, invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if reg.Role == "" {
		reg.Role = RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), a.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: string(hash),
		Role:         reg.Role,
		CreatedAt:    a.now().UTC(),
	}
	err = a.db.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := emailExists(ctx, tx, user.Email)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%s: %w", user.Email, ErrEmailTaken)
		}
		return insertUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate checks a password for the account identified by email or
// display name.
func (a *Accounts) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, invalid("name", "is required")
	}

	user, err := findUserByLogin(ctx, a.db.db, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			a.logger.Warn("failed login", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return user, nil
}

// User fetches a user by id.
func (a *Accounts) User(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, a.db.db, id)
}
