package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"memvfs/internal/logging"
	"memvfs/internal/store"
	"memvfs/internal/vpath"
)

// TextQuery describes what to look for inside file bodies.
type TextQuery struct {
	Pattern         string
	IsRegExp        bool
	IsCaseSensitive bool
	IsWordMatch     bool
	IsMultiline     bool
}

// TextSearchOptions narrows and bounds a content search. Zero values mean
// "no limit" / "no context".
type TextSearchOptions struct {
	Folder              string
	Includes            []string
	Excludes            []string
	MaxResults          int
	MaxFileSize         int64
	BeforeContext       int
	AfterContext        int
	PreviewCharsPerLine int
}

// Range is a half-open span of characters within a single line.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Preview is the window of a matching line shown to the user. Matches are
// relative to the start of Text.
type Preview struct {
	Text    string  `json:"text"`
	Matches []Range `json:"matches"`
}

// TextSearchResult is a single reported line. Line numbers are zero based.
// Context lines carry no ranges and a nil preview.
type TextSearchResult struct {
	Path       string   `json:"path"`
	LineNumber int      `json:"lineNumber"`
	Text       string   `json:"text"`
	Ranges     []Range  `json:"ranges,omitempty"`
	Preview    *Preview `json:"preview,omitempty"`
}

// IsContext reports whether r is a context line rather than a match.
func (r TextSearchResult) IsContext() bool {
	return r.Preview == nil
}

// TextSearchComplete is returned when a content search finishes.
type TextSearchComplete struct {
	LimitHit bool `json:"limitHit"`
}

// TextSearcher scans file bodies line by line for a regular expression.
type TextSearcher struct {
	store *store.Store
	settings
}

// NewTextSearcher creates a searcher over st.
func NewTextSearcher(st *store.Store, opts ...Option) *TextSearcher {
	return &TextSearcher{store: st, settings: newSettings(opts)}
}

// Search streams every matching line, with its context, to report in file
// and line order. The pattern is compiled once up front; an invalid pattern
// fails the whole search before anything is reported. An empty pattern
// matches nothing and reports no results. Cancelling ctx stops the scan with
// LimitHit false.
func (ts *TextSearcher) Search(ctx context.Context, q TextQuery, opts TextSearchOptions, report func(TextSearchResult)) (TextSearchComplete, error) {
	start := time.Now()
	if report == nil {
		report = func(TextSearchResult) {}
	}

	re, err := ts.compile(q)
	if err != nil {
		ts.metrics.RecordSearch(KindText, "invalid", 0, time.Since(start))
		return TextSearchComplete{}, err
	}
	if re == nil {
		ts.metrics.RecordSearch(KindText, "complete", 0, time.Since(start))
		return TextSearchComplete{}, nil
	}

	s := &textScan{
		ctx:    ctx,
		re:     re,
		opts:   opts,
		report: report,
		logger: ts.logger,
	}
	filter := vpath.NewFilter(opts.Folder, opts.Includes, opts.Excludes)

	outcome := "complete"
	for _, p := range ts.store.FilePaths() {
		if ctx.Err() != nil {
			outcome = "cancelled"
			break
		}
		if !filter.Allows(p) {
			continue
		}

		data, err := ts.store.Read(p)
		if err != nil {
			// Deleted since the snapshot was taken.
			ts.logger.Trace("Skipping %q: %v", p, err)
			continue
		}
		if opts.MaxFileSize > 0 && int64(len(data)) > opts.MaxFileSize {
			ts.logger.Trace("Skipping %q: %d bytes exceeds limit", p, len(data))
			continue
		}

		s.scanFile(p, data)
		if s.limitHit {
			outcome = "limit"
			break
		}
		if s.cancelled {
			outcome = "cancelled"
			break
		}
	}

	ts.logger.Debug("Text search %q matched %d lines (%s)", q.Pattern, s.total, outcome)
	ts.metrics.RecordSearch(KindText, outcome, s.total, time.Since(start))
	return TextSearchComplete{LimitHit: s.limitHit}, nil
}

// compile builds the matcher for q. An empty pattern yields a nil matcher,
// which matches nothing.
func (ts *TextSearcher) compile(q TextQuery) (*regexp2.Regexp, error) {
	if q.Pattern == "" {
		return nil, nil
	}

	expr := q.Pattern
	if !q.IsRegExp {
		expr = regexp.QuoteMeta(expr)
		if q.IsWordMatch {
			expr = `\b` + expr + `\b`
		}
	}

	flags := regexp2.RegexOptions(regexp2.ECMAScript)
	if !q.IsCaseSensitive {
		flags |= regexp2.IgnoreCase
	}
	if q.IsMultiline {
		flags |= regexp2.Multiline
	}

	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		ts.logger.Warn("Rejected search pattern %q: %v", q.Pattern, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if ts.regexTimeout > 0 {
		re.MatchTimeout = ts.regexTimeout
	}
	return re, nil
}

// textScan carries the running state of one content search across files.
type textScan struct {
	ctx    context.Context
	re     *regexp2.Regexp
	opts   TextSearchOptions
	report func(TextSearchResult)
	logger *logging.Logger

	total     int
	limitHit  bool
	cancelled bool
}

// fileLines memoizes per-line matches so after-context can look ahead
// without matching a line twice.
type fileLines struct {
	lines   []string
	matches [][]Range
	done    []bool
}

func (s *textScan) scanFile(p string, data []byte) {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	fl := &fileLines{lines: strings.Split(text, "\n")}
	fl.matches = make([][]Range, len(fl.lines))
	fl.done = make([]bool, len(fl.lines))

	// Highest line already reported for this file.
	emitted := -1

	for i := 0; i < len(fl.lines); i++ {
		if s.ctx.Err() != nil {
			s.cancelled = true
			return
		}

		ranges := s.lineMatches(p, fl, i)
		if len(ranges) == 0 {
			continue
		}

		from := i - s.opts.BeforeContext
		if from <= emitted {
			from = emitted + 1
		}
		if from < 0 {
			from = 0
		}
		for j := from; j < i; j++ {
			s.report(TextSearchResult{Path: p, LineNumber: j, Text: fl.lines[j]})
		}

		line := fl.lines[i]
		s.report(TextSearchResult{
			Path:       p,
			LineNumber: i,
			Text:       line,
			Ranges:     ranges,
			Preview:    buildPreview(line, ranges, s.opts.PreviewCharsPerLine),
		})
		emitted = i
		s.total++

		for j := i + 1; j <= i+s.opts.AfterContext && j < len(fl.lines); j++ {
			if s.ctx.Err() != nil {
				s.cancelled = true
				return
			}
			if len(s.lineMatches(p, fl, j)) > 0 {
				break
			}
			s.report(TextSearchResult{Path: p, LineNumber: j, Text: fl.lines[j]})
			emitted = j
		}

		if s.opts.MaxResults > 0 && s.total >= s.opts.MaxResults {
			s.limitHit = true
			return
		}
	}
}

func (s *textScan) lineMatches(p string, fl *fileLines, i int) []Range {
	if !fl.done[i] {
		fl.matches[i] = s.findAll(p, i, fl.lines[i])
		fl.done[i] = true
	}
	return fl.matches[i]
}

// findAll collects every non-overlapping match in line as rune offsets.
// A line whose matching exceeds the timeout counts as having no matches.
func (s *textScan) findAll(p string, lineNumber int, line string) []Range {
	runes := []rune(line)

	var ranges []Range
	pos := 0
	for pos <= len(runes) {
		m, err := s.re.FindRunesMatchStartingAt(runes, pos)
		if err != nil {
			s.logger.Trace("Matching %q line %d abandoned: %v", p, lineNumber, err)
			return nil
		}
		if m == nil {
			break
		}

		ranges = append(ranges, Range{Start: m.Index, End: m.Index + m.Length})
		pos = m.Index + m.Length
		if m.Length == 0 {
			pos++
		}
	}
	return ranges
}

// buildPreview windows line around the first match. Without a width, or when
// the line already fits, the whole line is the preview.
func buildPreview(line string, ranges []Range, width int) *Preview {
	runes := []rune(line)
	if width <= 0 || len(runes) <= width {
		return &Preview{Text: line, Matches: shiftRanges(ranges, 0, len(runes))}
	}

	start := 0
	if len(ranges) > 0 {
		start = ranges[0].Start - width/2
	}
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
		start = end - width
	}

	return &Preview{
		Text:    string(runes[start:end]),
		Matches: shiftRanges(ranges, start, end-start),
	}
}

// shiftRanges re-expresses ranges relative to offset and clamps them to
// [0, length].
func shiftRanges(ranges []Range, offset, length int) []Range {
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Range{
			Start: clamp(r.Start-offset, 0, length),
			End:   clamp(r.End-offset, 0, length),
		})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
