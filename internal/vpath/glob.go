package vpath

import (
	"regexp"
	"strings"
)

// Glob is a compiled glob pattern. It matches whole paths only.
//
//	**  any run of characters, separators included
//	*   any run of characters other than '/'
//	?   exactly one character
//
// Everything else, '.' included, is matched literally.
type Glob struct {
	pattern string
	re      *regexp.Regexp
}

// CompileGlob converts pattern into an anchored matcher. Every input is a
// valid glob, so compilation cannot fail.
func CompileGlob(pattern string) *Glob {
	var b strings.Builder
	b.WriteString("^")

	literal := 0
	flush := func(i int) {
		if literal < i {
			b.WriteString(regexp.QuoteMeta(pattern[literal:i]))
		}
	}

	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**"):
			flush(i)
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			flush(i)
			b.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			flush(i)
			b.WriteString(".")
			i++
		default:
			i++
			continue
		}
		literal = i
	}
	flush(len(pattern))
	b.WriteString("$")

	return &Glob{
		pattern: pattern,
		re:      regexp.MustCompile(b.String()),
	}
}

// Match reports whether the whole of p matches the glob.
func (g *Glob) Match(p string) bool {
	return g.re.MatchString(p)
}

// String returns the source pattern.
func (g *Glob) String() string {
	return g.pattern
}

// GlobSet is a list of globs where any one may match.
type GlobSet []*Glob

// CompileGlobs compiles every pattern in patterns.
func CompileGlobs(patterns []string) GlobSet {
	set := make(GlobSet, 0, len(patterns))
	for _, p := range patterns {
		set = append(set, CompileGlob(p))
	}
	return set
}

// MatchAny reports whether at least one glob in the set matches p.
func (s GlobSet) MatchAny(p string) bool {
	for _, g := range s {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// Filter decides which paths a search may look at.
type Filter struct {
	scope    string
	includes GlobSet
	excludes GlobSet
}

// NewFilter compiles a filter for the given scope and glob lists.
func NewFilter(scope string, includes, excludes []string) *Filter {
	if scope == "" {
		scope = Root
	}
	return &Filter{
		scope:    Clean(scope),
		includes: CompileGlobs(includes),
		excludes: CompileGlobs(excludes),
	}
}

// Allows applies, in order: the scope test, the exclude globs (any match
// rejects), and the include globs (at least one must match when present).
func (f *Filter) Allows(p string) bool {
	if !IsUnder(p, f.scope) {
		return false
	}
	if f.excludes.MatchAny(p) {
		return false
	}
	if len(f.includes) > 0 && !f.includes.MatchAny(p) {
		return false
	}
	return true
}
