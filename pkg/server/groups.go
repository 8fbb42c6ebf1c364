package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"yaari/pkg/schema"
	"yaari/pkg/store"
)

// validateGroup enforces the creation-time invariants: a name and a non-empty
// member set whose ids all resolve against the roster. Callers hold s.mu.
func (s *Server) validateGroup(g schema.Group) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("group name is required")
	}
	if len(g.Members) == 0 {
		return fmt.Errorf("a group needs at least one member")
	}
	for _, id := range g.Members {
		if !slices.ContainsFunc(s.characters, func(ch schema.Character) bool { return ch.ID == id }) {
			return fmt.Errorf("unknown member id %q", id)
		}
	}
	return nil
}

// GET /api/groups
func (s *Server) handleGetGroups(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(http.StatusOK, s.groups)
}

// POST /api/groups
func (s *Server) handlePostGroup(c echo.Context) error {
	var g schema.Group
	if err := c.Bind(&g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateGroup(g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if g.ID == "" {
		g.ID = schema.NewID("group")
	}
	for _, existing := range s.groups {
		if existing.ID == g.ID {
			return echo.NewHTTPError(http.StatusConflict, "group id already exists")
		}
	}
	if g.Messages == nil {
		g.Messages = []schema.Message{}
	}
	s.groups = append(s.groups, g)
	s.Store.Put(store.KeyGroups, s.groups)
	return c.JSON(http.StatusCreated, g)
}

// PUT /api/groups/:id
func (s *Server) handlePutGroup(c echo.Context) error {
	var g schema.Group
	if err := c.Bind(&g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	g.ID = c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateGroup(g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for i := range s.groups {
		if s.groups[i].ID != g.ID {
			continue
		}
		if g.Messages == nil {
			g.Messages = s.groups[i].Messages
		}
		s.groups[i] = g
		s.Store.Put(store.KeyGroups, s.groups)
		return c.JSON(http.StatusOK, g)
	}
	return echo.NewHTTPError(http.StatusNotFound, "group not found")
}

// DELETE /api/groups/:id deletes the group and its transcript; member
// characters are untouched.
func (s *Server) handleDeleteGroup(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.groups, func(g schema.Group) bool { return g.ID == id })
	if idx < 0 {
		return echo.NewHTTPError(http.StatusNotFound, "group not found")
	}
	s.groups = slices.Delete(s.groups, idx, idx+1)
	s.Store.Put(store.KeyGroups, s.groups)
	s.Sessions.Drop(id)
	return c.NoContent(http.StatusNoContent)
}
