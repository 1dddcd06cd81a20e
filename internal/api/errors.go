package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"memvfs/internal/search"
	"memvfs/internal/store"
)

// errInvalidRequest marks client input that could not be parsed.
var errInvalidRequest = errors.New("invalid request")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrRootImmutable):
		return http.StatusForbidden
	case errors.Is(err, search.ErrInvalidPattern), errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		apiLogger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"kind":  errorKind(err),
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, search.ErrInvalidPattern):
		return "invalid_pattern"
	case errors.Is(err, errInvalidRequest):
		return "invalid_request"
	default:
		return store.Kind(err)
	}
}
