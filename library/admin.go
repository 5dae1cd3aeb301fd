package library

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// BookInput is the admin form for creating or editing a book.
type BookInput struct {
	Title     string `json:"title" validate:"required,max=100"`
	Author    string `json:"author" validate:"required,max=100"`
	Thumbnail string `json:"thumbnail" validate:"omitempty,url"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

func (in *BookInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
}

// Catalog holds the administrator operations on books and categories.
type Catalog struct {
	db           *Database
	logger       *slog.Logger
	deletePolicy DeletePolicy
}

func requireAdmin(rc RequestContext) error {
	if !rc.IsAdmin() {
		return fmt.Errorf("administrator access required: %w", ErrUnauthorized)
	}
	return nil
}

// AddBook creates a book.
func (c *Catalog) AddBook(ctx context.Context, rc RequestContext, in BookInput) (*Book, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	book := &Book{Title: in.Title, Author: in.Author, Thumbnail: in.Thumbnail, Quantity: in.Quantity}
	if err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		return insertBook(ctx, tx, book)
	}); err != nil {
		return nil, err
	}

	c.logger.Info("book added", "book_id", book.ID, "title", book.Title, "quantity", book.Quantity)
	return book, nil
}

// UpdateBook replaces the fields of an existing book.
func (c *Catalog) UpdateBook(ctx context.Context, rc RequestContext, id int64, in BookInput) (*Book, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	book := &Book{ID: id, Title: in.Title, Author: in.Author, Thumbnail: in.Thumbnail, Quantity: in.Quantity}
	if err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		return updateBook(ctx, tx, book)
	}); err != nil {
		return nil, err
	}

	c.logger.Info("book updated", "book_id", book.ID, "title", book.Title, "quantity", book.Quantity)
	return book, nil
}

// DeleteBook removes a book and its category links. Active loans of the book
// are handled according to the catalog's delete policy.
func (c *Catalog) DeleteBook(ctx context.Context, rc RequestContext, id int64) error {
	if err := requireAdmin(rc); err != nil {
		return err
	}

	var dropped int64
	err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getBook(ctx, tx, id); err != nil {
			return err
		}

		switch c.deletePolicy {
		case DeleteForceReturn:
			n, err := deleteBookLoans(ctx, tx, id)
			if err != nil {
				return err
			}
			dropped = n
		default:
			n, err := countBookLoans(ctx, tx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("book %d is on loan to %d user(s): %w", id, n, ErrBookOnLoan)
			}
		}
		return deleteBook(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	c.logger.Info("book deleted", "book_id", id, "loans_force_returned", dropped)
	return nil
}

// AddCategory creates a category.
func (c *Catalog) AddCategory(ctx context.Context, rc RequestContext, name string) (*Category, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	var category *Category
	err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		category, err = insertCategory(ctx, tx, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("category added", "category_id", category.ID, "name", category.Name)
	return category, nil
}

// AssignCategory links a book to a category. Assigning the same pair twice
// leaves a single association.
func (c *Catalog) AssignCategory(ctx context.Context, rc RequestContext, bookID, categoryID int64) (*BookCategory, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}

	err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getBook(ctx, tx, bookID); err != nil {
			return err
		}
		if _, err := getCategory(ctx, tx, categoryID); err != nil {
			return err
		}
		_, err := linkCategory(ctx, tx, bookID, categoryID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BookCategory{BookID: bookID, CategoryID: categoryID}, nil
}

// Book returns a single book with its category names.
func (c *Catalog) Book(ctx context.Context, id int64) (*BookView, error) {
	book, err := getBook(ctx, c.db.db, id)
	if err != nil {
		return nil, err
	}
	names, err := bookCategoryNames(ctx, c.db.db, id)
	if err != nil {
		return nil, err
	}
	return &BookView{Book: *book, Categories: names}, nil
}

// Categories lists all categories in creation order.
func (c *Catalog) Categories(ctx context.Context) ([]*Category, error) {
	return listCategories(ctx, c.db.db)
}
