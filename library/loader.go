package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CatalogDocument is the bulk import format. Category ids are local to the
// document and only used to link books to categories.
type CatalogDocument struct {
	Categories []struct {
		ID   int64  `json:"id"`
		Name string `json:"category_name"`
	} `json:"categories"`
	Books []struct {
		Title      string  `json:"book_name"`
		Author     string  `json:"author"`
		Quantity   *int    `json:"quantity"`
		Thumbnail  string  `json:"thumbnail"`
		Categories []int64 `json:"categories"`
	} `json:"books"`
}

// LoadSummary counts the records a load created.
type LoadSummary struct {
	CategoriesCreated int
	BooksCreated      int
	LinksCreated      int
}

// ParseCatalogDocument decodes a bulk import document.
func ParseCatalogDocument(r io.Reader) (*CatalogDocument, error) {
	var doc CatalogDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &doc, nil
}

// LoadCatalog imports a document in one transaction. Categories are matched
// by name and books by title, so loading the same document twice creates
// nothing the second time. Existing books keep their stock.
func (lm *LibraryManager) LoadCatalog(ctx context.Context, doc *CatalogDocument) (*LoadSummary, error) {
	var sum LoadSummary
	err := lm.db.withTx(ctx, func(tx *sql.Tx) error {
		byDocID := make(map[int64]int64, len(doc.Categories))
		for _, c := range doc.Categories {
			name := strings.TrimSpace(c.Name)
			if name == "" {
				return invalid("category_name", fmt.Sprintf("category %d has no name", c.ID))
			}
			category, err := findCategoryByName(ctx, tx, name)
			if errors.Is(err, ErrNotFound) {
				category, err = insertCategory(ctx, tx, name)
				sum.CategoriesCreated++
			}
			if err != nil {
				return err
			}
			byDocID[c.ID] = category.ID
		}

		for i, b := range doc.Books {
			title := strings.TrimSpace(b.Title)
			if title == "" {
				return invalid("book_name", fmt.Sprintf("book #%d has no name", i+1))
			}
			book, err := findBookByTitle(ctx, tx, title)
			if errors.Is(err, ErrNotFound) {
				book = &Book{Title: title, Author: strings.TrimSpace(b.Author), Thumbnail: strings.TrimSpace(b.Thumbnail), Quantity: 1}
				if b.Quantity != nil {
					book.Quantity = *b.Quantity
				}
				if book.Quantity < 0 {
					return invalid("quantity", fmt.Sprintf("book %q has a negative quantity", title))
				}
				err = insertBook(ctx, tx, book)
				sum.BooksCreated++
			}
			if err != nil {
				return err
			}

			for _, docID := range b.Categories {
				categoryID, ok := byDocID[docID]
				if !ok {
					lm.logger.Warn("skipping unknown category", "book", title, "category", docID)
					continue
				}
				created, err := linkCategory(ctx, tx, book.ID, categoryID)
				if err != nil {
					return err
				}
				if created {
					sum.LinksCreated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lm.logger.Info("catalog loaded", "categories_created", sum.CategoriesCreated, "books_created", sum.BooksCreated, "links_created", sum.LinksCreated)
	return &sum, nil
}
