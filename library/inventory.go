package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Inventory mediates every change to book stock and loan records.
type Inventory struct {
	db             *Database
	logger         *slog.Logger
	now            func() time.Time
	maxActiveLoans int
	loanPeriod     time.Duration
}

// Borrow lends a book to the calling user.
//
// Preconditions are checked in order inside one transaction: the caller must
// be a signed-in non-admin user, the book must exist and be in stock, the
// user must not already hold it and must be under the loan quota. On success
// a loan due after the loan period is created and the stock decremented.
func (inv *Inventory) Borrow(ctx context.Context, rc RequestContext, bookID int64) (*Loan, error) {
	if !rc.Authenticated() || rc.Role == RoleAdmin {
		return nil, fmt.Errorf("only signed-in readers can borrow books: %w", ErrUnauthorized)
	}

	var loan *Loan
	err := inv.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getUser(ctx, tx, rc.UserID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("unknown user %d: %w", rc.UserID, ErrUnauthorized)
			}
			return err
		}

		book, err := getBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.Quantity <= 0 {
			return fmt.Errorf("%q is not available right now: %w", book.Title, ErrOutOfStock)
		}

		held, err := hasLoan(ctx, tx, rc.UserID, bookID)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("you have already borrowed %q: %w", book.Title, ErrAlreadyBorrowed)
		}

		active, err := countUserLoans(ctx, tx, rc.UserID)
		if err != nil {
			return err
		}
		if active >= inv.maxActiveLoans {
			return fmt.Errorf("you can borrow at most %d books at a time: %w", inv.maxActiveLoans, ErrQuotaExceeded)
		}

		now := inv.now().UTC()
		loan = &Loan{
			UserID:     rc.UserID,
			BookID:     bookID,
			BookTitle:  book.Title,
			BorrowedAt: now,
			DueAt:      now.Add(inv.loanPeriod),
		}
		if err := insertLoan(ctx, tx, loan); err != nil {
			return err
		}
		return adjustQuantity(ctx, tx, bookID, -1)
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info("book borrowed", "loan_id", loan.ID, "user_id", loan.UserID, "book_id", loan.BookID, "due_at", loan.DueAt)
	return loan, nil
}

// Return hands a borrowed book back. The loan must exist and belong to the
// caller; its book's stock is incremented and the loan deleted.
func (inv *Inventory) Return(ctx context.Context, rc RequestContext, loanID int64) (*Book, error) {
	if !rc.Authenticated() {
		return nil, fmt.Errorf("sign in to return books: %w", ErrUnauthorized)
	}

	var book *Book
	err := inv.db.withTx(ctx, func(tx *sql.Tx) error {
		loan, err := getLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if loan.UserID != rc.UserID {
			return fmt.Errorf("loan %d belongs to another user: %w", loanID, ErrForbidden)
		}

		if err := adjustQuantity(ctx, tx, loan.BookID, 1); err != nil {
			return err
		}
		if err := deleteLoan(ctx, tx, loanID); err != nil {
			return err
		}
		book, err = getBook(ctx, tx, loan.BookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info("book returned", "loan_id", loanID, "user_id", rc.UserID, "book_id", book.ID, "quantity", book.Quantity)
	return book, nil
}

// ActiveLoans lists the caller's loans, oldest first.
func (inv *Inventory) ActiveLoans(ctx context.Context, rc RequestContext) ([]*Loan, error) {
	if !rc.Authenticated() {
		return nil, fmt.Errorf("sign in to view loans: %w", ErrUnauthorized)
	}
	return listUserLoans(ctx, inv.db.db, rc.UserID)
}

// Loan fetches one of the caller's loans.
func (inv *Inventory) Loan(ctx context.Context, rc RequestContext, loanID int64) (*Loan, error) {
	if !rc.Authenticated() {
		return nil, fmt.Errorf("sign in to view loans: %w", ErrUnauthorized)
	}
	loan, err := getLoan(ctx, inv.db.db, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != rc.UserID {
		return nil, fmt.Errorf("loan %d belongs to another user: %w", loanID, ErrForbidden)
	}
	return loan, nil
}
