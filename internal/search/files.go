package search

import (
	"context"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"memvfs/internal/store"
	"memvfs/internal/vpath"
)

// FileQuery is what the user typed into a quick-open box.
type FileQuery struct {
	Pattern string
}

// FileSearchOptions narrows and bounds a file search.
type FileSearchOptions struct {
	Folder     string
	Includes   []string
	Excludes   []string
	MaxResults int

	// SortByScore reorders the collected paths, best fuzzy match first.
	// It never changes which paths are returned.
	SortByScore bool
}

// FileSearcher finds file paths by substring or fuzzy subsequence match.
type FileSearcher struct {
	store *store.Store
	settings
}

// NewFileSearcher creates a searcher over st.
func NewFileSearcher(st *store.Store, opts ...Option) *FileSearcher {
	return &FileSearcher{store: st, settings: newSettings(opts)}
}

// Search returns the file paths matching q. Cancelling ctx stops the scan and
// returns whatever was collected so far.
func (fs *FileSearcher) Search(ctx context.Context, q FileQuery, opts FileSearchOptions) []string {
	start := time.Now()
	pattern := strings.ToLower(q.Pattern)
	filter := vpath.NewFilter(opts.Folder, opts.Includes, opts.Excludes)

	results := []string{}
	outcome := "complete"

	for _, p := range fs.store.FilePaths() {
		if ctx.Err() != nil {
			outcome = "cancelled"
			break
		}
		if !filter.Allows(p) {
			continue
		}
		if !matchesPattern(p, pattern) {
			continue
		}

		results = append(results, p)
		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			outcome = "limit"
			break
		}
	}

	if opts.SortByScore && pattern != "" {
		results = rankByScore(pattern, results)
	}

	fs.logger.Debug("File search %q found %d files (%s)", q.Pattern, len(results), outcome)
	fs.metrics.RecordSearch(KindFile, outcome, len(results), time.Since(start))
	return results
}

// matchesPattern applies the quick-open rules to p. pattern must already be
// lower case. An empty pattern matches everything.
func matchesPattern(p, pattern string) bool {
	if pattern == "" {
		return true
	}

	name := strings.ToLower(vpath.Base(p))
	if strings.Contains(name, pattern) || strings.Contains(strings.ToLower(p), pattern) {
		return true
	}
	return isSubsequence(pattern, name)
}

// isSubsequence reports whether every rune of pattern appears in s in order.
func isSubsequence(pattern, s string) bool {
	want := []rune(pattern)
	i := 0
	for _, r := range s {
		if i == len(want) {
			break
		}
		if r == want[i] {
			i++
		}
	}
	return i == len(want)
}

// rankByScore orders paths by descending fuzzy score of their base names.
// Paths the scorer rejects keep their relative order at the end.
func rankByScore(pattern string, paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.ToLower(vpath.Base(p))
	}

	ranked := make([]string, 0, len(paths))
	seen := make([]bool, len(paths))
	for _, m := range fuzzy.Find(pattern, names) {
		ranked = append(ranked, paths[m.Index])
		seen[m.Index] = true
	}
	for i, p := range paths {
		if !seen[i] {
			ranked = append(ranked, p)
		}
	}
	return ranked
}
