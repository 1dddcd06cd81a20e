package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"memvfs/internal/store"
)

// pathParam returns the required "path" query parameter.
func pathParam(c *gin.Context) (string, error) {
	p := c.Query("path")
	if p == "" {
		return "", fmt.Errorf("%w: missing path parameter", errInvalidRequest)
	}
	return p, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errInvalidRequest, name)
	}
	return v, nil
}

func (s *Server) health(c *gin.Context) {
	files, dirs := s.store.Len()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"files":       files,
		"directories": dirs,
		"subscribers": s.store.Subscribers(),
	})
}

func (s *Server) stat(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	st, err := s.store.Stat(p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) list(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := s.store.List(p)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []store.DirEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) readFile(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := s.store.Read(p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (s *Server) writeFile(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var opts store.WriteOptions
	if opts.Create, err = boolParam(c, "create", true); err != nil {
		respondError(c, err)
		return
	}
	if opts.Overwrite, err = boolParam(c, "overwrite", true); err != nil {
		respondError(c, err)
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		respondError(c, fmt.Errorf("%w: reading body: %v", errInvalidRequest, err))
		return
	}

	if err := s.store.Write(p, data, opts); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteEntry(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recursive, err := boolParam(c, "recursive", false)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := s.store.Delete(p, store.DeleteOptions{Recursive: recursive}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createDirectory(c *gin.Context) {
	p, err := pathParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := s.store.CreateDirectory(p); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type renameRequest struct {
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	Overwrite bool   `json:"overwrite"`
}

func (s *Server) rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	if err := s.store.Rename(req.From, req.To, store.RenameOptions{Overwrite: req.Overwrite}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
