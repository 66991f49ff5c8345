package services

import (
	"context"
)

// Page is one page returned by a fetcher. An empty NextCursor means the
// upstream has no further pages.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// FetchFunc fetches one page. cursor is empty for the first page; remaining
// is the item budget still open, which fetchers may use to cap page size.
type FetchFunc[T any] func(ctx context.Context, cursor string, remaining int) (Page[T], error)

// PageResult is the outcome of a paginated walk. NextCursor is set when the
// walk was truncated by the item budget and the upstream had more pages; it
// always points at a page boundary.
type PageResult[T any] struct {
	Items      []T
	NextCursor string
}

// Paginate walks a cursored upstream until the item budget is filled, the
// pages run out, or maxPages fetches have been made, whichever comes first.
// Items are deduplicated across pages by the id function; duplicates are
// dropped without counting against the budget. A fetcher error aborts the
// walk and is returned unchanged.
func Paginate[T any](
	ctx context.Context,
	desired int,
	maxPages int,
	startCursor string,
	fetch FetchFunc[T],
	id func(T) string,
) (PageResult[T], error) {
	var result PageResult[T]
	if desired <= 0 || maxPages <= 0 {
		return result, nil
	}

	seen := make(map[string]struct{})
	cursor := startCursor
	for page := 0; page < maxPages; page++ {
		remaining := desired - len(result.Items)
		fetched, err := fetch(ctx, cursor, remaining)
		if err != nil {
			return PageResult[T]{}, err
		}

		for _, item := range fetched.Items {
			key := id(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Items = append(result.Items, item)
			if len(result.Items) == desired {
				// Truncated by budget. Resume at the next page boundary.
				result.NextCursor = fetched.NextCursor
				return result, nil
			}
		}

		if fetched.NextCursor == "" {
			return result, nil
		}
		cursor = fetched.NextCursor
	}
	// Page cap reached with pages still available.
	result.NextCursor = cursor
	return result, nil
}
