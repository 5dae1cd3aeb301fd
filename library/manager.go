package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Options tunes the lending rules and collaborators of a LibraryManager.
// Zero values fall back to the defaults.
type Options struct {
	MaxActiveLoans int
	LoanPeriod     time.Duration
	DeletePolicy   DeletePolicy
	BcryptCost     int
	Logger         *slog.Logger
	Now            func() time.Time
}

func (o *Options) applyDefaults() error {
	if o.MaxActiveLoans == 0 {
		o.MaxActiveLoans = DefaultMaxActiveLoans
	}
	if o.LoanPeriod == 0 {
		o.LoanPeriod = DefaultLoanPeriod
	}
	if o.DeletePolicy == "" {
		o.DeletePolicy = DeleteBlock
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	if o.MaxActiveLoans < 0 {
		return fmt.Errorf("max active loans must be positive, got %d", o.MaxActiveLoans)
	}
	if o.LoanPeriod < 0 {
		return fmt.Errorf("loan period must be positive, got %s", o.LoanPeriod)
	}
	if !o.DeletePolicy.Valid() {
		return fmt.Errorf("unknown delete policy %q", o.DeletePolicy)
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range", o.BcryptCost)
	}
	return nil
}

// LibraryManager is a thin façade over the Database and the services built
// on it, keeping CLI and HTTP code simple.
type LibraryManager struct {
	db        *Database
	logger    *slog.Logger
	inventory *Inventory
	catalog   *Catalog
	accounts  *Accounts
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts Options) (*LibraryManager, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	return &LibraryManager{
		db:     db,
		logger: logger,
		inventory: &Inventory{
			db:             db,
			logger:         logger.With("component", "inventory"),
			now:            opts.Now,
			maxActiveLoans: opts.MaxActiveLoans,
			loanPeriod:     opts.LoanPeriod,
		},
		catalog: &Catalog{
			db:           db,
			logger:       logger.With("component", "catalog"),
			deletePolicy: opts.DeletePolicy,
		},
		accounts: &Accounts{
			db:         db,
			logger:     logger.With("component", "accounts"),
			now:        opts.Now,
			bcryptCost: opts.BcryptCost,
		},
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, rc RequestContext, bookID int64) (*Loan, error) {
	return lm.inventory.Borrow(ctx, rc, bookID)
}

func (lm *LibraryManager) Return(ctx context.Context, rc RequestContext, loanID int64) (*Book, error) {
	return lm.inventory.Return(ctx, rc, loanID)
}

func (lm *LibraryManager) ActiveLoans(ctx context.Context, rc RequestContext) ([]*Loan, error) {
	return lm.inventory.ActiveLoans(ctx, rc)
}

func (lm *LibraryManager) GetLoan(ctx context.Context, rc RequestContext, loanID int64) (*Loan, error) {
	return lm.inventory.Loan(ctx, rc, loanID)
}

// ------------------ Catalog administration ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, rc RequestContext, in BookInput) (*Book, error) {
	return lm.catalog.AddBook(ctx, rc, in)
}

func (lm *LibraryManager) UpdateBook(ctx context.Context, rc RequestContext, id int64, in BookInput) (*Book, error) {
	return lm.catalog.UpdateBook(ctx, rc, id, in)
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, rc RequestContext, id int64) error {
	return lm.catalog.DeleteBook(ctx, rc, id)
}

func (lm *LibraryManager) AddCategory(ctx context.Context, rc RequestContext, name string) (*Category, error) {
	return lm.catalog.AddCategory(ctx, rc, name)
}

func (lm *LibraryManager) AssignCategory(ctx context.Context, rc RequestContext, bookID, categoryID int64) (*BookCategory, error) {
	return lm.catalog.AssignCategory(ctx, rc, bookID, categoryID)
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*BookView, error) {
	return lm.catalog.Book(ctx, id)
}

func (lm *LibraryManager) Categories(ctx context.Context) ([]*Category, error) {
	return lm.catalog.Categories(ctx)
}

// ------------------ Accounts ------------------

func (lm *LibraryManager) Register(ctx context.Context, reg Registration) (*User, error) {
	return lm.accounts.Register(ctx, reg)
}

func (lm *LibraryManager) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	return lm.accounts.Authenticate(ctx, identifier, password)
}

func (lm *LibraryManager) GetUser(ctx context.Context, id int64) (*User, error) {
	return lm.accounts.User(ctx, id)
}

// ------------------ Bulk import ------------------

// LoadCatalogFrom parses a catalog document from r and imports it.
func (lm *LibraryManager) LoadCatalogFrom(ctx context.Context, r io.Reader) (*LoadSummary, error) {
	doc, err := ParseCatalogDocument(r)
	if err != nil {
		return nil, err
	}
	return lm.LoadCatalog(ctx, doc)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *BookView) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-5d %s", b.ID, truncate(b.Title, 30), truncate(b.Author, 25), b.Quantity, joinNames(b.Categories))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
