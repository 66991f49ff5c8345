package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedFetcher returns pages of pageSize items with cursors "1", "2", ...
// until totalPages pages have been served.
func fixedFetcher(pageSize, totalPages int, calls *int) FetchFunc[string] {
	return func(_ context.Context, cursor string, _ int) (Page[string], error) {
		*calls++
		page := 0
		if cursor != "" {
			page, _ = strconv.Atoi(cursor)
		}
		items := make([]string, 0, pageSize)
		for i := 0; i < pageSize; i++ {
			items = append(items, fmt.Sprintf("item-%d-%d", page, i))
		}
		next := ""
		if page+1 < totalPages {
			next = strconv.Itoa(page + 1)
		}
		return Page[string]{Items: items, NextCursor: next}, nil
	}
}

func identity(s string) string { return s }

func TestPaginateBudgetTruncation(t *testing.T) {
	// Pages of 3 and a budget of 5: two fetches, five items, and the
	// cursor that would fetch page three.
	calls := 0
	result, err := Paginate(context.Background(), 5, 10, "", fixedFetcher(3, 10, &calls), identity)
	require.NoError(t, err)

	assert.Len(t, result.Items, 5)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "2", result.NextCursor)
}

func TestPaginateFetchCount(t *testing.T) {
	// With budget N over pages of k, the fetcher runs at most ceil(N/k)
	// times.
	calls := 0
	result, err := Paginate(context.Background(), 10, 100, "", fixedFetcher(4, 100, &calls), identity)
	require.NoError(t, err)

	assert.Len(t, result.Items, 10)
	assert.Equal(t, 3, calls)
}

func TestPaginatePageCap(t *testing.T) {
	calls := 0
	result, err := Paginate(context.Background(), 1000, 2, "", fixedFetcher(3, 100, &calls), identity)
	require.NoError(t, err)

	assert.Len(t, result.Items, 6)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "2", result.NextCursor, "page cap truncation still reports where to resume")
}

func TestPaginateEmptyPage(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ string, _ int) (Page[string], error) {
		calls++
		return Page[string]{}, nil
	}
	result, err := Paginate(context.Background(), 50, 10, "", fetch, identity)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.Empty(t, result.NextCursor)
	assert.Equal(t, 1, calls)
}

func TestPaginateZeroBudget(t *testing.T) {
	calls := 0
	result, err := Paginate(context.Background(), 0, 10, "", fixedFetcher(3, 10, &calls), identity)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.Empty(t, result.NextCursor)
	assert.Zero(t, calls, "zero budget must not invoke the fetcher")
}

func TestPaginateDedupAcrossPages(t *testing.T) {
	// Upstreams may overlap page boundaries; duplicates are dropped but
	// order is preserved.
	pages := []Page[string]{
		{Items: []string{"a", "b", "c"}, NextCursor: "1"},
		{Items: []string{"c", "d", "e"}, NextCursor: ""},
	}
	call := 0
	fetch := func(_ context.Context, _ string, _ int) (Page[string], error) {
		page := pages[call]
		call++
		return page, nil
	}
	result, err := Paginate(context.Background(), 10, 10, "", fetch, identity)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, result.Items)
}

func TestPaginateRemainingBudgetPassed(t *testing.T) {
	var remainings []int
	fetch := func(_ context.Context, cursor string, remaining int) (Page[string], error) {
		remainings = append(remainings, remaining)
		next := ""
		if cursor == "" {
			next = "1"
		}
		return Page[string]{Items: []string{"x" + cursor}, NextCursor: next}, nil
	}
	_, err := Paginate(context.Background(), 7, 10, "", fetch, identity)
	require.NoError(t, err)

	assert.Equal(t, []int{7, 6}, remainings)
}

func TestPaginateCursorThreading(t *testing.T) {
	var cursors []string
	fetch := func(_ context.Context, cursor string, _ int) (Page[string], error) {
		cursors = append(cursors, cursor)
		switch cursor {
		case "":
			return Page[string]{Items: []string{"a"}, NextCursor: "c1"}, nil
		case "c1":
			return Page[string]{Items: []string{"b"}, NextCursor: "c2"}, nil
		default:
			return Page[string]{Items: []string{"c"}}, nil
		}
	}
	result, err := Paginate(context.Background(), 10, 10, "", fetch, identity)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "c1", "c2"}, cursors)
	assert.Equal(t, []string{"a", "b", "c"}, result.Items)
}

func TestPaginateFetcherErrorBubbles(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, cursor string, _ int) (Page[string], error) {
		if cursor == "" {
			return Page[string]{Items: []string{"a"}, NextCursor: "c1"}, nil
		}
		return Page[string]{}, boom
	}
	_, err := Paginate(context.Background(), 10, 10, "", fetch, identity)
	assert.ErrorIs(t, err, boom)
}
