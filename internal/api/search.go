package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"memvfs/internal/search"
)

type fileSearchRequest struct {
	Pattern     string   `json:"pattern"`
	Folder      string   `json:"folder"`
	Includes    []string `json:"includes"`
	Excludes    []string `json:"excludes"`
	MaxResults  int      `json:"maxResults"`
	SortByScore bool     `json:"sortByScore"`
}

// textSearchRequest leaves PreviewChars nil to use the server default; 0
// asks for whole lines.
type textSearchRequest struct {
	Pattern         string   `json:"pattern"`
	IsRegExp        bool     `json:"isRegExp"`
	IsCaseSensitive bool     `json:"isCaseSensitive"`
	IsWordMatch     bool     `json:"isWordMatch"`
	IsMultiline     bool     `json:"isMultiline"`
	Folder          string   `json:"folder"`
	Includes        []string `json:"includes"`
	Excludes        []string `json:"excludes"`
	MaxResults      int      `json:"maxResults"`
	MaxFileSize     int64    `json:"maxFileSize"`
	BeforeContext   int      `json:"beforeContext"`
	AfterContext    int      `json:"afterContext"`
	PreviewChars    *int     `json:"previewChars"`
}

func (s *Server) searchFiles(c *gin.Context) {
	var req fileSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	opts := search.FileSearchOptions{
		Folder:      req.Folder,
		Includes:    req.Includes,
		Excludes:    req.Excludes,
		MaxResults:  orDefault(req.MaxResults, s.limits.MaxResults),
		SortByScore: req.SortByScore,
	}

	paths := s.files.Search(c.Request.Context(), search.FileQuery{Pattern: req.Pattern}, opts)
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

func (s *Server) searchText(c *gin.Context) {
	var req textSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if req.BeforeContext < 0 || req.AfterContext < 0 {
		respondError(c, fmt.Errorf("%w: context line counts must not be negative", errInvalidRequest))
		return
	}
	previewChars := s.limits.PreviewCharsPerLine
	if req.PreviewChars != nil {
		if *req.PreviewChars < 0 {
			respondError(c, fmt.Errorf("%w: previewChars must not be negative", errInvalidRequest))
			return
		}
		previewChars = *req.PreviewChars
	}

	query := search.TextQuery{
		Pattern:         req.Pattern,
		IsRegExp:        req.IsRegExp,
		IsCaseSensitive: req.IsCaseSensitive,
		IsWordMatch:     req.IsWordMatch,
		IsMultiline:     req.IsMultiline,
	}
	opts := search.TextSearchOptions{
		Folder:              req.Folder,
		Includes:            req.Includes,
		Excludes:            req.Excludes,
		MaxResults:          orDefault(req.MaxResults, s.limits.MaxResults),
		MaxFileSize:         orDefault(req.MaxFileSize, s.limits.MaxFileSize),
		BeforeContext:       req.BeforeContext,
		AfterContext:        req.AfterContext,
		PreviewCharsPerLine: previewChars,
	}

	results := []search.TextSearchResult{}
	done, err := s.text.Search(c.Request.Context(), query, opts, func(r search.TextSearchResult) {
		results = append(results, r)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":  results,
		"limitHit": done.LimitHit,
	})
}

func orDefault[T int | int64](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}
