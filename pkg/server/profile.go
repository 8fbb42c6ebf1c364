package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"yaari/pkg/schema"
	"yaari/pkg/store"
)

// GET /api/profile
func (s *Server) handleGetProfile(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(http.StatusOK, s.profile)
}

// PUT /api/profile. The profile is replaced in place, never deleted.
func (s *Server) handlePutProfile(c echo.Context) error {
	var p schema.UserProfile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(p.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "profile name is required")
	}
	if p.Age < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "age must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.profile.ID
	}
	if p.ID == "" {
		p.ID = schema.NewID("user")
	}
	s.profile = p
	s.Store.Put(store.KeyProfile, s.profile)
	return c.JSON(http.StatusOK, p)
}

type backgroundDoc struct {
	URL string `json:"url"`
}

// GET /api/background
func (s *Server) handleGetBackground(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(http.StatusOK, backgroundDoc{URL: s.background})
}

// PUT /api/background
func (s *Server) handlePutBackground(c echo.Context) error {
	var doc backgroundDoc
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = doc.URL
	s.Store.Put(store.KeyBackground, s.background)
	return c.JSON(http.StatusOK, doc)
}

// GET /api/export returns a whole-state backup document.
func (s *Server) handleGetExport(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(http.StatusOK, schema.Export{
		Profile:    s.profile,
		Characters: s.characters,
		Groups:     s.groups,
		Background: s.background,
	})
}

// POST /api/import replaces all state with a previously exported document.
func (s *Server) handlePostImport(c echo.Context) error {
	var doc schema.Export
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = doc.Profile
	s.characters = doc.Characters
	s.groups = doc.Groups
	s.background = doc.Background
	s.Store.Put(store.KeyProfile, s.profile)
	s.Store.Put(store.KeyCharacters, s.characters)
	s.Store.Put(store.KeyGroups, s.groups)
	s.Store.Put(store.KeyBackground, s.background)
	return c.NoContent(http.StatusNoContent)
}

// GET /api/schema returns the JSON schema of the export document, for client-side
// validation before import.
func (s *Server) handleGetSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.ExportSchema)
}
