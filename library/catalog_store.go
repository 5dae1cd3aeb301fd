package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func insertBook(ctx context.Context, q querier, b *Book) error {
	res, err := q.ExecContext(ctx, `INSERT INTO books(title,author,thumbnail,quantity) VALUES(?,?,?,?)`,
		b.Title, b.Author, b.Thumbnail, b.Quantity)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

func getBook(ctx context.Context, q querier, id int64) (*Book, error) {
	var b Book
	err := q.QueryRowContext(ctx, `SELECT id,title,author,thumbnail,quantity FROM books WHERE id=?`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Thumbnail, &b.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &b, nil
}

func findBookByTitle(ctx context.Context, q querier, title string) (*Book, error) {
	var b Book
	err := q.QueryRowContext(ctx, `SELECT id,title,author,thumbnail,quantity FROM books WHERE title=? ORDER BY id LIMIT 1`, title).
		Scan(&b.ID, &b.Title, &b.Author, &b.Thumbnail, &b.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %q: %w", title, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find book %q: %w", title, err)
	}
	return &b, nil
}

func updateBook(ctx context.Context, q querier, b *Book) error {
	res, err := q.ExecContext(ctx, `UPDATE books SET title=?, author=?, thumbnail=?, quantity=? WHERE id=?`,
		b.Title, b.Author, b.Thumbnail, b.Quantity, b.ID)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return expectOneRow(res, fmt.Errorf("book %d: %w", b.ID, ErrNotFound))
}

// adjustQuantity adds delta to the stock of a book.
func adjustQuantity(ctx context.Context, q querier, bookID int64, delta int) error {
	res, err := q.ExecContext(ctx, `UPDATE books SET quantity = quantity + ? WHERE id=?`, delta, bookID)
	if err != nil {
		return fmt.Errorf("adjust quantity of book %d: %w", bookID, err)
	}
	return expectOneRow(res, fmt.Errorf("book %d: %w", bookID, ErrNotFound))
}

func deleteBook(ctx context.Context, q querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Errorf("book %d: %w", id, ErrNotFound))
}

// listBookViews returns every book with its category names, in insertion order.
func listBookViews(ctx context.Context, q querier) ([]*BookView, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT b.id, b.title, b.author, b.thumbnail, b.quantity, c.name
        FROM books b
        LEFT JOIN book_categories bc ON bc.book_id = b.id
        LEFT JOIN categories c ON c.id = bc.category_id
        ORDER BY b.id, c.id;`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	views := []*BookView{}
	var last *BookView
	for rows.Next() {
		var b Book
		var category sql.NullString
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Thumbnail, &b.Quantity, &category); err != nil {
			return nil, err
		}
		if last == nil || last.ID != b.ID {
			last = &BookView{Book: b, Categories: []string{}}
			views = append(views, last)
		}
		if category.Valid {
			last.Categories = append(last.Categories, category.String)
		}
	}
	return views, rows.Err()
}

func bookCategoryNames(ctx context.Context, q querier, bookID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT c.name FROM book_categories bc
        JOIN categories c ON c.id = bc.category_id
        WHERE bc.book_id = ?
        ORDER BY c.id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("categories of book %d: %w", bookID, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func insertCategory(ctx context.Context, q querier, name string) (*Category, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO categories(name) VALUES(?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Category{ID: id, Name: name}, nil
}

func getCategory(ctx context.Context, q querier, id int64) (*Category, error) {
	var c Category
	err := q.QueryRowContext(ctx, `SELECT id,name FROM categories WHERE id=?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &c, nil
}

func findCategoryByName(ctx context.Context, q querier, name string) (*Category, error) {
	var c Category
	err := q.QueryRowContext(ctx, `SELECT id,name FROM categories WHERE name=? ORDER BY id LIMIT 1`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	return &c, nil
}

func listCategories(ctx context.Context, q querier) ([]*Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// linkCategory associates a book with a category. It reports whether a new
// association was created; linking twice is a no-op.
func linkCategory(ctx context.Context, q querier, bookID, categoryID int64) (bool, error) {
	res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO book_categories(book_id,category_id) VALUES(?,?)`, bookID, categoryID)
	if err != nil {
		return false, fmt.Errorf("link book %d to category %d: %w", bookID, categoryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
