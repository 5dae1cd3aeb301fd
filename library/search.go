package library

import (
	"context"
	"strings"
)

// Search returns the books shown on the browse page. An empty query lists
// the whole catalog, out-of-stock books included. Otherwise the query is
// split on whitespace and a book matches when every term is a
// case-insensitive substring of its title, its author or one of its
// category names. Results keep catalog insertion order.
func (lm *LibraryManager) Search(ctx context.Context, query string) ([]*BookView, error) {
	views, err := listBookViews(ctx, lm.db.db)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return views, nil
	}

	results := []*BookView{}
	for _, v := range views {
		if matchesAll(v, terms) {
			results = append(results, v)
		}
	}
	return results, nil
}

func matchesAll(v *BookView, terms []string) bool {
	title := strings.ToLower(v.Title)
	author := strings.ToLower(v.Author)
	categories := make([]string, len(v.Categories))
	for i, c := range v.Categories {
		categories[i] = strings.ToLower(c)
	}

	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(author, term) {
			continue
		}
		found := false
		for _, c := range categories {
			if strings.Contains(c, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
