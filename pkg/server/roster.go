package server

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gen2brain/webp"
	"github.com/labstack/echo/v4"

	"yaari/pkg/schema"
	"yaari/pkg/store"
	"yaari/pkg/utils"
)

// GET /api/personalities
func (s *Server) handleGetPersonalities(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.Personalities())
}

// GET /api/characters
func (s *Server) handleGetCharacters(c echo.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(http.StatusOK, s.characters)
}

func validateCharacter(ch schema.Character) error {
	if strings.TrimSpace(ch.Name) == "" {
		return fmt.Errorf("character name is required")
	}
	for _, p := range ch.Personalities {
		if !p.Valid() {
			return fmt.Errorf("unknown personality %q", p)
		}
	}
	return nil
}

// POST /api/characters
func (s *Server) handlePostCharacter(c echo.Context) error {
	var ch schema.Character
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if err := validateCharacter(ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if ch.ID == "" {
		ch.ID = schema.NewID("char")
	}
	if ch.Messages == nil {
		ch.Messages = []schema.Message{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.characters {
		if existing.ID == ch.ID {
			return echo.NewHTTPError(http.StatusConflict, "character id already exists")
		}
	}
	s.characters = append(s.characters, ch)
	s.Store.Put(store.KeyCharacters, s.characters)
	return c.JSON(http.StatusCreated, ch)
}

// PUT /api/characters/:id
func (s *Server) handlePutCharacter(c echo.Context) error {
	var ch schema.Character
	if err := c.Bind(&ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	ch.ID = c.Param("id")
	if err := validateCharacter(ch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID != ch.ID {
			continue
		}
		// Persona edits never rewrite the transcript.
		if ch.Messages == nil {
			ch.Messages = s.characters[i].Messages
		}
		s.characters[i] = ch
		s.Store.Put(store.KeyCharacters, s.characters)
		return c.JSON(http.StatusOK, ch)
	}
	return echo.NewHTTPError(http.StatusNotFound, "character not found")
}

// DELETE /api/characters/:id also cascades the id out of every group's
// member set. Groups themselves are never deleted by this.
func (s *Server) handleDeleteCharacter(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.characters, func(ch schema.Character) bool { return ch.ID == id })
	if idx < 0 {
		return echo.NewHTTPError(http.StatusNotFound, "character not found")
	}
	s.characters = slices.Delete(s.characters, idx, idx+1)
	s.Store.Put(store.KeyCharacters, s.characters)

	changed := false
	for i := range s.groups {
		before := len(s.groups[i].Members)
		s.groups[i].Members = slices.DeleteFunc(s.groups[i].Members, func(m string) bool { return m == id })
		changed = changed || len(s.groups[i].Members) != before
	}
	if changed {
		s.Store.Put(store.KeyGroups, s.groups)
	}

	s.Sessions.Drop(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) avatarDir() string {
	return filepath.Join(s.dataDir, "images", "avatars")
}

// saveAvatarWebP decodes an uploaded image and writes it as webp.
func (s *Server) saveAvatarWebP(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.avatarDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar dir: %w", err)
	}

	imgBytes, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		var err2 error
		img, _, err2 = image.Decode(bytes.NewReader(imgBytes))
		if err2 != nil {
			return "", fmt.Errorf("failed to decode image (png: %v, generic: %v)", err, err2)
		}
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, webp.Options{Lossless: false, Quality: 90}); err != nil {
		return "", fmt.Errorf("failed to encode webp: %w", err)
	}

	fullPath := filepath.Join(s.avatarDir(), filename)
	if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// POST /api/characters/:id/avatar takes a multipart upload, re-encoded to webp and
// appended to the character's avatar list as the new active avatar.
func (s *Server) handlePostAvatar(c echo.Context) error {
	id := c.Param("id")

	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing image file")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image file")
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.characters {
		if s.characters[i].ID != id {
			continue
		}
		filename := fmt.Sprintf("%s-%d.webp", utils.SanitizeFilename(id), len(s.characters[i].Avatars))
		path, err := s.saveAvatarWebP(f, filename)
		if err != nil {
			c.Logger().Errorf("avatar save failed: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to store avatar")
		}
		s.characters[i].Avatars = append(s.characters[i].Avatars, path)
		s.characters[i].ActiveAvatarIndex = len(s.characters[i].Avatars) - 1
		s.Store.Put(store.KeyCharacters, s.characters)
		return c.JSON(http.StatusOK, s.characters[i])
	}
	return echo.NewHTTPError(http.StatusNotFound, "character not found")
}

// GET /api/characters/:id/avatar serves the active avatar.
func (s *Server) handleGetAvatar(c echo.Context) error {
	id := c.Param("id")

	s.mu.RLock()
	var path string
	for _, ch := range s.characters {
		if ch.ID == id {
			path = ch.ActiveAvatar()
			break
		}
	}
	s.mu.RUnlock()

	if path == "" || !utils.Exists(path) {
		return echo.NewHTTPError(http.StatusNotFound, "no avatar")
	}
	return c.File(path)
}
