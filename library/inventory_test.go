package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowAndReturnRoundTrip(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	book := addBook(t, mgr, "Test Book", "Test Author", 5)

	loan, err := mgr.Borrow(ctx, alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, loan.UserID)
	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, "Test Book", loan.BookTitle)
	assert.True(t, loan.BorrowedAt.Equal(fixedNow))
	assert.True(t, loan.DueAt.Equal(fixedNow.Add(DefaultLoanPeriod)))

	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Quantity)

	returned, err := mgr.Return(ctx, alice, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, returned.Quantity)

	_, err = mgr.GetLoan(ctx, alice, loan.ID)
	require.ErrorIs(t, err, ErrNotFound)

	loans, err := mgr.ActiveLoans(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestBorrowLastCopy(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	bob := addReader(t, mgr, "bob")
	book := addBook(t, mgr, "Only Copy", "Someone", 1)

	loan, err := mgr.Borrow(ctx, alice, book.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.BorrowedAt.Add(60*24*time.Hour), loan.DueAt)

	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Quantity)

	_, err = mgr.Borrow(ctx, bob, book.ID)
	require.ErrorIs(t, err, ErrOutOfStock)

	view, err = mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Quantity)
}

func TestBorrowSameBookTwice(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	book := addBook(t, mgr, "Popular", "Someone", 5)

	_, err := mgr.Borrow(ctx, alice, book.ID)
	require.NoError(t, err)

	_, err = mgr.Borrow(ctx, alice, book.ID)
	require.ErrorIs(t, err, ErrAlreadyBorrowed)

	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Quantity)

	loans, err := mgr.ActiveLoans(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestBorrowQuota(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")

	var books []*Book
	for i := 0; i < 4; i++ {
		books = append(books, addBook(t, mgr, fmt.Sprintf("Book %d", i), "Author", 2))
	}
	for _, b := range books[:3] {
		_, err := mgr.Borrow(ctx, alice, b.ID)
		require.NoError(t, err)
	}

	_, err := mgr.Borrow(ctx, alice, books[3].ID)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	view, err := mgr.GetBook(ctx, books[3].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Quantity)

	loans, err := mgr.ActiveLoans(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, loans, 3)
}

func TestBorrowQuotaIsConfigurable(t *testing.T) {
	mgr := newManager(t, func(o *Options) { o.MaxActiveLoans = 1 })
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	first := addBook(t, mgr, "First", "Author", 1)
	second := addBook(t, mgr, "Second", "Author", 1)

	_, err := mgr.Borrow(ctx, alice, first.ID)
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, alice, second.ID)
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestBorrowPreconditionOrder(t *testing.T) {
	mgr := newManager(t, func(o *Options) { o.MaxActiveLoans = 1 })
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	held := addBook(t, mgr, "Held", "Author", 1)
	empty := addBook(t, mgr, "Empty", "Author", 1)

	_, err := mgr.Borrow(ctx, alice, held.ID)
	require.NoError(t, err)

	// alice is at quota and the book she holds is out of stock: stock is
	// checked before the duplicate and quota rules.
	_, err = mgr.Borrow(ctx, alice, held.ID)
	require.ErrorIs(t, err, ErrOutOfStock)

	// empty is in stock but alice is at quota.
	_, err = mgr.Borrow(ctx, alice, empty.ID)
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// a missing book beats every other rule except authorization.
	_, err = mgr.Borrow(ctx, alice, 999)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = mgr.Borrow(ctx, RequestContext{}, 999)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestBorrowRequiresReader(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	book := addBook(t, mgr, "Book", "Author", 1)

	tests := []struct {
		name string
		rc   RequestContext
	}{
		{"anonymous", RequestContext{}},
		{"admin", adminCtx},
		{"unknown user", RequestContext{UserID: 42, Role: RoleUser}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Borrow(ctx, tt.rc, book.ID)
			require.ErrorIs(t, err, ErrUnauthorized)
		})
	}

	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Quantity)
}

func TestReturnChecksOwnership(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	bob := addReader(t, mgr, "bob")
	book := addBook(t, mgr, "Book", "Author", 2)

	loan, err := mgr.Borrow(ctx, alice, book.ID)
	require.NoError(t, err)

	_, err = mgr.Return(ctx, bob, loan.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = mgr.Return(ctx, bob, 12345)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Return(ctx, RequestContext{}, loan.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = mgr.GetLoan(ctx, bob, loan.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// The failed attempts left the loan and the stock untouched.
	got, err := mgr.GetLoan(ctx, alice, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)
	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Quantity)
}

func TestActiveLoansOldestFirst(t *testing.T) {
	clock := fixedNow
	mgr := newManager(t, func(o *Options) {
		o.Now = func() time.Time { return clock }
	})
	seedAdmin(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")
	first := addBook(t, mgr, "First", "Author", 1)
	second := addBook(t, mgr, "Second", "Author", 1)
	third := addBook(t, mgr, "Third", "Author", 1)

	for _, b := range []*Book{second, first, third} {
		_, err := mgr.Borrow(ctx, alice, b.ID)
		require.NoError(t, err)
		clock = clock.Add(time.Hour)
	}

	loans, err := mgr.ActiveLoans(ctx, alice)
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, []string{"Second", "First", "Third"}, []string{loans[0].BookTitle, loans[1].BookTitle, loans[2].BookTitle})
	assert.True(t, loans[0].BorrowedAt.Before(loans[1].BorrowedAt))
}

func TestActiveLoansRequiresSignIn(t *testing.T) {
	mgr := newManager(t)
	_, err := mgr.ActiveLoans(context.Background(), RequestContext{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestConcurrentBorrowsNeverOverdraw(t *testing.T) {
	mgr := newManager(t)
	seedAdmin(t, mgr)
	ctx := context.Background()
	book := addBook(t, mgr, "Scarce", "Author", 2)

	readers := make([]RequestContext, 6)
	for i := range readers {
		readers[i] = addReader(t, mgr, fmt.Sprintf("reader%d", i))
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for _, rc := range readers {
		wg.Add(1)
		go func(rc RequestContext) {
			defer wg.Done()
			_, err := mgr.Borrow(ctx, rc, book.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(rc)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 4, outOfStock)

	view, err := mgr.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Quantity)
}
