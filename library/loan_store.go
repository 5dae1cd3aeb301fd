package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func insertLoan(ctx context.Context, q querier, l *Loan) error {
	res, err := q.ExecContext(ctx, `INSERT INTO loans(user_id,book_id,borrowed_at,due_at) VALUES(?,?,?,?)`,
		l.UserID, l.BookID, l.BorrowedAt, l.DueAt)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

func getLoan(ctx context.Context, q querier, id int64) (*Loan, error) {
	var l Loan
	err := q.QueryRowContext(ctx, `
        SELECT l.id, l.user_id, l.book_id, b.title, l.borrowed_at, l.due_at
        FROM loans l JOIN books b ON b.id = l.book_id
        WHERE l.id=?`, id).
		Scan(&l.ID, &l.UserID, &l.BookID, &l.BookTitle, &l.BorrowedAt, &l.DueAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}
	return &l, nil
}

func deleteLoan(ctx context.Context, q querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM loans WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Errorf("loan %d: %w", id, ErrNotFound))
}

// deleteBookLoans removes every loan of a book and reports how many there were.
func deleteBookLoans(ctx context.Context, q querier, bookID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM loans WHERE book_id=?`, bookID)
	if err != nil {
		return 0, fmt.Errorf("delete loans of book %d: %w", bookID, err)
	}
	return res.RowsAffected()
}

func hasLoan(ctx context.Context, q querier, userID, bookID int64) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=? AND book_id=?)`, userID, bookID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check loan: %w", err)
	}
	return exists, nil
}

func countUserLoans(ctx context.Context, q querier, userID int64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans WHERE user_id=?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count loans: %w", err)
	}
	return n, nil
}

func countBookLoans(ctx context.Context, q querier, bookID int64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans WHERE book_id=?`, bookID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count loans: %w", err)
	}
	return n, nil
}

// listUserLoans returns a user's loans, oldest first.
func listUserLoans(ctx context.Context, q querier, userID int64) ([]*Loan, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT l.id, l.user_id, l.book_id, b.title, l.borrowed_at, l.due_at
        FROM loans l JOIN books b ON b.id = l.book_id
        WHERE l.user_id = ?
        ORDER BY l.borrowed_at ASC, l.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := []*Loan{}
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookTitle, &l.BorrowedAt, &l.DueAt); err != nil {
			return nil, err
		}
		loans = append(loans, &l)
	}
	return loans, rows.Err()
}
