package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memvfs/internal/logging"
	"memvfs/internal/metrics"
)

// collect runs a text search and gathers everything it reports.
func collect(t *testing.T, ts *TextSearcher, ctx context.Context, q TextQuery, opts TextSearchOptions) ([]TextSearchResult, TextSearchComplete) {
	t.Helper()

	var results []TextSearchResult
	done, err := ts.Search(ctx, q, opts, func(r TextSearchResult) {
		results = append(results, r)
	})
	require.NoError(t, err)
	return results, done
}

func matchesOnly(results []TextSearchResult) []TextSearchResult {
	var out []TextSearchResult
	for _, r := range results {
		if !r.IsContext() {
			out = append(out, r)
		}
	}
	return out
}

func lineNumbers(results []TextSearchResult) []int {
	out := make([]int, 0, len(results))
	for _, r := range results {
		out = append(out, r.LineNumber)
	}
	return out
}

func newTextSearcher(t *testing.T, files map[string]string, opts ...Option) *TextSearcher {
	st := setupTestStore(t, files)
	return NewTextSearcher(st, append([]Option{WithLogger(logging.NewNop())}, opts...)...)
}

func TestTextSearchLiteral(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.txt": "one.two\nonextwo\nONE.TWO",
	})
	ctx := context.Background()

	t.Run("metacharacters are literal", func(t *testing.T) {
		results, done := collect(t, ts, ctx, TextQuery{Pattern: "one.two", IsCaseSensitive: true}, TextSearchOptions{})
		require.Len(t, results, 1)
		assert.Equal(t, 0, results[0].LineNumber)
		assert.Equal(t, []Range{{Start: 0, End: 7}}, results[0].Ranges)
		assert.False(t, done.LimitHit)
	})

	t.Run("case insensitive by default", func(t *testing.T) {
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "one.two"}, TextSearchOptions{})
		assert.Equal(t, []int{0, 2}, lineNumbers(results))
	})

	t.Run("regex mode", func(t *testing.T) {
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "one.two", IsRegExp: true, IsCaseSensitive: true}, TextSearchOptions{})
		assert.Equal(t, []int{0, 1}, lineNumbers(results))
	})
}

func TestTextSearchWordMatch(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/cats.txt": "a cat sat\nconcatenate",
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "cat", IsWordMatch: true}, TextSearchOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "a cat sat", results[0].Text)
	assert.Equal(t, []Range{{Start: 2, End: 5}}, results[0].Ranges)

	t.Run("word boundaries are not added to regex patterns", func(t *testing.T) {
		results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "cat", IsRegExp: true, IsWordMatch: true}, TextSearchOptions{})
		assert.Equal(t, []int{0, 1}, lineNumbers(results))
	})
}

func TestTextSearchMultipleMatchesPerLine(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.txt": "ab ab ab",
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "ab"}, TextSearchOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, []Range{{0, 2}, {3, 5}, {6, 8}}, results[0].Ranges)
}

func TestTextSearchZeroWidthMatches(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.txt": "abc",
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "x*", IsRegExp: true}, TextSearchOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, []Range{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, results[0].Ranges)
}

func TestTextSearchRangesCountCharacters(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/u.txt": "héllo wörld",
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "wörld"}, TextSearchOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, []Range{{Start: 6, End: 11}}, results[0].Ranges)
}

func TestTextSearchJavaScriptSyntax(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.js": "const price = 100;\nconst tax = 7;",
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: `\d+(?=;)`, IsRegExp: true}, TextSearchOptions{})
	require.Len(t, results, 2)
	assert.Equal(t, []Range{{Start: 14, End: 17}}, results[0].Ranges)
	assert.Equal(t, []Range{{Start: 12, End: 13}}, results[1].Ranges)
}

func TestTextSearchInvalidPattern(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{"/a.txt": "(("})

	reported := 0
	_, err := ts.Search(context.Background(), TextQuery{Pattern: "((", IsRegExp: true}, TextSearchOptions{}, func(TextSearchResult) {
		reported++
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Zero(t, reported)

	t.Run("same text as a literal is fine", func(t *testing.T) {
		results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "(("}, TextSearchOptions{})
		assert.Len(t, results, 1)
	})
}

func TestTextSearchEmptyPattern(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{"/a.txt": "anything"})

	results, done := collect(t, ts, context.Background(), TextQuery{}, TextSearchOptions{})
	assert.Empty(t, results)
	assert.False(t, done.LimitHit)
}

func TestTextSearchMaxFileSize(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/small.txt": "needle",
		"/big.txt":   "needle" + strings.Repeat(" ", 100),
	})

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: "needle"}, TextSearchOptions{MaxFileSize: 10})
	require.Len(t, results, 1)
	assert.Equal(t, "/small.txt", results[0].Path)
}

func TestTextSearchFilters(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/src/a.ts":          "needle",
		"/src/b.js":          "needle",
		"/docs/c.md":         "needle",
		"/node_modules/d.ts": "needle",
	})
	ctx := context.Background()

	results, _ := collect(t, ts, ctx, TextQuery{Pattern: "needle"}, TextSearchOptions{
		Includes: []string{"**/*.ts"},
		Excludes: []string{"/node_modules/**"},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "/src/a.ts", results[0].Path)

	results, _ = collect(t, ts, ctx, TextQuery{Pattern: "needle"}, TextSearchOptions{Folder: "/docs"})
	require.Len(t, results, 1)
	assert.Equal(t, "/docs/c.md", results[0].Path)
}

func TestTextSearchLimit(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.txt": "hit\nhit\nhit",
		"/b.txt": "hit",
	})

	results, done := collect(t, ts, context.Background(), TextQuery{Pattern: "hit"}, TextSearchOptions{MaxResults: 2})
	assert.True(t, done.LimitHit)
	assert.Len(t, matchesOnly(results), 2)
	for _, r := range results {
		assert.Equal(t, "/a.txt", r.Path, "scan must stop before the next file")
	}

	t.Run("after context still follows the last match", func(t *testing.T) {
		ts := newTextSearcher(t, map[string]string{
			"/a.txt": "hit\nafter\nmore\nhit",
		})
		results, done := collect(t, ts, context.Background(), TextQuery{Pattern: "hit"}, TextSearchOptions{MaxResults: 1, AfterContext: 1})
		assert.True(t, done.LimitHit)
		assert.Equal(t, []int{0, 1}, lineNumbers(results))
	})

	t.Run("exact count is still a limit hit", func(t *testing.T) {
		ts := newTextSearcher(t, map[string]string{"/a.txt": "hit"})
		_, done := collect(t, ts, context.Background(), TextQuery{Pattern: "hit"}, TextSearchOptions{MaxResults: 1})
		assert.True(t, done.LimitHit)
	})
}

func TestTextSearchCancelled(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/a.txt": "hit",
		"/b.txt": "hit",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, done := collect(t, ts, ctx, TextQuery{Pattern: "hit"}, TextSearchOptions{MaxResults: 1})
	assert.Empty(t, results)
	assert.False(t, done.LimitHit)

	t.Run("cancel from inside report", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var results []TextSearchResult
		done, err := ts.Search(ctx, TextQuery{Pattern: "hit"}, TextSearchOptions{}, func(r TextSearchResult) {
			results = append(results, r)
			cancel()
		})
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.False(t, done.LimitHit)
	})
}

func TestTextSearchContext(t *testing.T) {
	content := strings.Join([]string{
		"l0",
		"l1",
		"match a",
		"l3",
		"match b",
		"l5",
		"l6",
		"l7",
	}, "\n")
	ts := newTextSearcher(t, map[string]string{"/ctx.txt": content})
	ctx := context.Background()

	t.Run("before and after", func(t *testing.T) {
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "match"}, TextSearchOptions{BeforeContext: 1, AfterContext: 1})
		assert.Equal(t, []int{1, 2, 3, 4, 5}, lineNumbers(results))

		for _, r := range results {
			isMatch := r.LineNumber == 2 || r.LineNumber == 4
			assert.Equal(t, !isMatch, r.IsContext(), "line %d", r.LineNumber)
			if r.IsContext() {
				assert.Empty(t, r.Ranges)
			}
		}
	})

	t.Run("overlapping context is not repeated", func(t *testing.T) {
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "match"}, TextSearchOptions{BeforeContext: 3, AfterContext: 3})
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, lineNumbers(results))
	})

	t.Run("after context stops at the next match", func(t *testing.T) {
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "match"}, TextSearchOptions{AfterContext: 5})
		assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, lineNumbers(results))
		assert.Len(t, matchesOnly(results), 2)
	})

	t.Run("context is clamped to the file", func(t *testing.T) {
		ts := newTextSearcher(t, map[string]string{"/edge.txt": "match\nmiddle\nmatch"})
		results, _ := collect(t, ts, ctx, TextQuery{Pattern: "match"}, TextSearchOptions{BeforeContext: 4, AfterContext: 4})
		assert.Equal(t, []int{0, 1, 2}, lineNumbers(results))
	})
}

func TestBuildPreview(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ranges []Range
		width  int
		want   Preview
	}{
		{
			name:   "no width keeps the line",
			line:   "hello world",
			ranges: []Range{{6, 11}},
			want:   Preview{Text: "hello world", Matches: []Range{{6, 11}}},
		},
		{
			name:   "line fits",
			line:   "hello world",
			ranges: []Range{{6, 11}},
			width:  20,
			want:   Preview{Text: "hello world", Matches: []Range{{6, 11}}},
		},
		{
			name:   "centred on the first match",
			line:   "0123456789abcdefghij",
			ranges: []Range{{10, 12}},
			width:  6,
			want:   Preview{Text: "789abc", Matches: []Range{{3, 5}}},
		},
		{
			name:   "clamped to the start",
			line:   "0123456789abcdefghij",
			ranges: []Range{{1, 2}},
			width:  6,
			want:   Preview{Text: "012345", Matches: []Range{{1, 2}}},
		},
		{
			name:   "clamped to the end",
			line:   "0123456789abcdefghij",
			ranges: []Range{{19, 20}},
			width:  6,
			want:   Preview{Text: "efghij", Matches: []Range{{5, 6}}},
		},
		{
			name:   "ranges outside the window are clamped",
			line:   "0123456789abcdefghij",
			ranges: []Range{{10, 11}, {18, 20}},
			width:  4,
			want:   Preview{Text: "89ab", Matches: []Range{{2, 3}, {4, 4}}},
		},
		{
			name:   "window counts characters",
			line:   "ééééxéééé",
			ranges: []Range{{4, 5}},
			width:  3,
			want:   Preview{Text: "éxé", Matches: []Range{{1, 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildPreview(tt.line, tt.ranges, tt.width)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestTextSearchRegexTimeout(t *testing.T) {
	ts := newTextSearcher(t, map[string]string{
		"/slow.txt": strings.Repeat("a", 40) + "!",
		"/fine.txt": "aaa",
	}, WithRegexTimeout(10*time.Millisecond))

	results, _ := collect(t, ts, context.Background(), TextQuery{Pattern: `^(a+)+$`, IsRegExp: true}, TextSearchOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "/fine.txt", results[0].Path)
}

func TestTextSearchMetrics(t *testing.T) {
	m := metrics.New()
	ts := newTextSearcher(t, map[string]string{"/a.txt": "hit\nhit"}, WithMetrics(m))

	collect(t, ts, context.Background(), TextQuery{Pattern: "hit"}, TextSearchOptions{})
	_, err := ts.Search(context.Background(), TextQuery{Pattern: "[", IsRegExp: true}, TextSearchOptions{}, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues(KindText, "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues(KindText, "invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchResults.WithLabelValues(KindText)))
}
