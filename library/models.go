package library

import "time"

// Role distinguishes regular borrowers from catalog administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// RequestContext identifies the caller of a core operation. It is supplied by
// the session layer and treated as read-only input.
type RequestContext struct {
	UserID int64
	Role   Role
}

// Authenticated reports whether the context carries a user.
func (rc RequestContext) Authenticated() bool { return rc.UserID > 0 }

// IsAdmin reports whether the caller is an authenticated administrator.
func (rc RequestContext) IsAdmin() bool { return rc.Authenticated() && rc.Role == RoleAdmin }

// Book is a catalog entry together with its current stock.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Category groups books for browsing and search.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookCategory associates a book with a category.
type BookCategory struct {
	BookID     int64 `json:"book_id"`
	CategoryID int64 `json:"category_id"`
}

// BookView is a book as shown on the browse page: the record plus the names
// of its categories.
type BookView struct {
	Book
	Categories []string `json:"categories"`
}

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Don't serialize password hash
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Loan is an active borrow. Returning a book deletes its loan.
type Loan struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id"`
	BookTitle  string    `json:"book_title,omitempty"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

// DeletePolicy decides what happens to active loans when a book is deleted.
type DeletePolicy string

const (
	// DeleteBlock refuses to delete a book that is still on loan.
	DeleteBlock DeletePolicy = "block"
	// DeleteForceReturn drops the outstanding loans together with the book.
	DeleteForceReturn DeletePolicy = "force_return"
)

// Valid reports whether p is one of the known policies.
func (p DeletePolicy) Valid() bool { return p == DeleteBlock || p == DeleteForceReturn }

const (
	// DefaultMaxActiveLoans is the per-user quota of concurrent loans.
	DefaultMaxActiveLoans = 3
	// DefaultLoanPeriod is the time between borrowing and the due date.
	DefaultLoanPeriod = 60 * 24 * time.Hour
)
