package server

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"yaari/pkg/relay"
	"yaari/pkg/schema"
	"yaari/pkg/session"
	"yaari/pkg/store"
	"yaari/pkg/utils"
)

type Server struct {
	Echo     *echo.Echo
	Relay    *relay.Relay
	Sessions *session.Registry
	Store    *store.Store
	Ctx      context.Context

	dataDir string

	// Whole-document state mirrored by the store. One writer at a time.
	mu         sync.RWMutex
	profile    schema.UserProfile
	characters []schema.Character
	groups     []schema.Group
	background string
}

func NewServer(ctx context.Context, r *relay.Relay, st *store.Store, dataDir string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:     e,
		Relay:    r,
		Sessions: session.NewRegistry(),
		Store:    st,
		Ctx:      ctx,
		dataDir:  dataDir,
	}

	s.loadState()
	s.registerRoutes()
	return s
}

func (s *Server) loadState() {
	if profile, err := store.Load[schema.UserProfile](s.Store, store.KeyProfile); err == nil {
		s.profile = profile
	} else if !errors.Is(err, os.ErrNotExist) {
		s.Echo.Logger.Warnf("failed to load profile: %v", err)
	}
	if characters, err := store.Load[[]schema.Character](s.Store, store.KeyCharacters); err == nil {
		s.characters = characters
	} else if !errors.Is(err, os.ErrNotExist) {
		s.Echo.Logger.Warnf("failed to load characters: %v", err)
	}
	if groups, err := store.Load[[]schema.Group](s.Store, store.KeyGroups); err == nil {
		s.groups = groups
	} else if !errors.Is(err, os.ErrNotExist) {
		s.Echo.Logger.Warnf("failed to load groups: %v", err)
	}
	if background, err := store.Load[string](s.Store, store.KeyBackground); err == nil {
		s.background = background
	} else if !errors.Is(err, os.ErrNotExist) {
		s.Echo.Logger.Warnf("failed to load background: %v", err)
	}
}

func (s *Server) registerRoutes() {
	api := s.Echo.Group("/api")

	// streaming chat turns
	api.POST("/chat", s.handlePostChat)
	api.POST("/group-chat", s.handlePostGroupChat)

	// profile & appearance
	api.GET("/profile", s.handleGetProfile)
	api.PUT("/profile", s.handlePutProfile)
	api.GET("/background", s.handleGetBackground)
	api.PUT("/background", s.handlePutBackground)

	// roster
	api.GET("/personalities", s.handleGetPersonalities)
	api.GET("/characters", s.handleGetCharacters)
	api.POST("/characters", s.handlePostCharacter)
	api.PUT("/characters/:id", s.handlePutCharacter)
	api.DELETE("/characters/:id", s.handleDeleteCharacter)
	api.POST("/characters/:id/avatar", s.handlePostAvatar)
	api.GET("/characters/:id/avatar", s.handleGetAvatar)

	// groups
	api.GET("/groups", s.handleGetGroups)
	api.POST("/groups", s.handlePostGroup)
	api.PUT("/groups/:id", s.handlePutGroup)
	api.DELETE("/groups/:id", s.handleDeleteGroup)

	// backup
	api.GET("/export", s.handleGetExport)
	api.POST("/import", s.handlePostImport)
	api.GET("/schema", s.handleGetSchema)
}

func (s *Server) Start(addr string) error {
	utils.Logf("Server listening at %s", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	utils.Logf("Shutting down server...")

	s.Store.Close()
	return s.Echo.Shutdown(ctx)
}
