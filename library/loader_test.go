package library

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "categories": [
    {"id": 1, "category_name": "Programming"},
    {"id": 2, "category_name": "Software Design"}
  ],
  "books": [
    {"book_name": "Clean Code", "author": "Robert C. Martin", "quantity": 3,
     "thumbnail": "http://example.com/clean.jpg", "categories": [1, 2]},
    {"book_name": "Refactoring", "author": "Martin Fowler", "categories": [2, 9]}
  ]
}`

func TestLoadCatalog(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	sum, err := mgr.LoadCatalogFrom(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{CategoriesCreated: 2, BooksCreated: 2, LinksCreated: 3}, *sum)

	views, err := mgr.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Clean Code", views[0].Title)
	assert.Equal(t, 3, views[0].Quantity)
	assert.Equal(t, "http://example.com/clean.jpg", views[0].Thumbnail)
	assert.Equal(t, []string{"Programming", "Software Design"}, views[0].Categories)
	assert.Equal(t, 1, views[1].Quantity, "quantity defaults to one")
	assert.Equal(t, []string{"Software Design"}, views[1].Categories)
}

func TestLoadCatalogIsIdempotent(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	_, err := mgr.LoadCatalogFrom(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	sum, err := mgr.LoadCatalogFrom(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{}, *sum)

	categories, err := mgr.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}

func TestLoadCatalogIsAtomic(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	doc := `{"categories": [{"id": 1, "category_name": "Poetry"}],
	         "books": [{"book_name": "Ok", "author": "A", "categories": [1]},
	                   {"book_name": "", "author": "B", "categories": []}]}`
	_, err := mgr.LoadCatalogFrom(ctx, strings.NewReader(doc))
	require.ErrorIs(t, err, ErrValidation)

	views, err := mgr.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, views)
	categories, err := mgr.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestParseCatalogDocumentRejectsBadJSON(t *testing.T) {
	_, err := ParseCatalogDocument(strings.NewReader(`{"books": [`))
	require.Error(t, err)
}
