package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, mgr *LibraryManager) {
	t.Helper()
	ctx := context.Background()
	seedAdmin(t, mgr)

	clean := addBook(t, mgr, "Clean Code", "Robert C. Martin", 2)
	dune := addBook(t, mgr, "Dune", "Frank Herbert", 1)
	addBook(t, mgr, "The Pragmatic Programmer", "Andrew Hunt", 1)

	programming, err := mgr.AddCategory(ctx, adminCtx, "Programming")
	require.NoError(t, err)
	scifi, err := mgr.AddCategory(ctx, adminCtx, "Science Fiction")
	require.NoError(t, err)
	classics, err := mgr.AddCategory(ctx, adminCtx, "Classics")
	require.NoError(t, err)

	for _, link := range [][2]int64{
		{clean.ID, programming.ID},
		{dune.ID, scifi.ID},
		{dune.ID, classics.ID},
	} {
		_, err := mgr.AssignCategory(ctx, adminCtx, link[0], link[1])
		require.NoError(t, err)
	}
}

func titles(views []*BookView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Title)
	}
	return out
}

func TestSearchEmptyQueryListsEverything(t *testing.T) {
	mgr := newManager(t)
	seedCatalog(t, mgr)
	ctx := context.Background()
	alice := addReader(t, mgr, "alice")

	views, err := mgr.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Clean Code", "Dune", "The Pragmatic Programmer"}, titles(views))
	assert.Equal(t, []string{"Science Fiction", "Classics"}, views[1].Categories)
	assert.Empty(t, views[2].Categories)

	// Out-of-stock books stay visible.
	_, err = mgr.Borrow(ctx, alice, views[1].ID)
	require.NoError(t, err)
	views, err = mgr.Search(ctx, "   ")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Zero(t, views[1].Quantity)
}

func TestSearchMatching(t *testing.T) {
	mgr := newManager(t)
	seedCatalog(t, mgr)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"clean code", []string{"Clean Code"}},
		{"clean xyz", []string{}},
		{"CLEAN", []string{"Clean Code"}},
		{"programm", []string{"Clean Code", "The Pragmatic Programmer"}},
		{"martin programming", []string{"Clean Code"}},
		{"fiction herbert", []string{"Dune"}},
		{"classics", []string{"Dune"}},
		{"  dune\tfrank  ", []string{"Dune"}},
		{"hunt dune", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			views, err := mgr.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(views))
		})
	}
}

func TestSearchReturnsEachBookOnce(t *testing.T) {
	mgr := newManager(t)
	seedCatalog(t, mgr)

	// Dune matches "c" through both of its categories.
	views, err := mgr.Search(context.Background(), "c")
	require.NoError(t, err)
	seen := map[int64]bool{}
	for _, v := range views {
		assert.False(t, seen[v.ID], "duplicate book %d", v.ID)
		seen[v.ID] = true
	}
	assert.Contains(t, titles(views), "Dune")
}
