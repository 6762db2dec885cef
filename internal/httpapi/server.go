// Package httpapi implements the HTTP contract as echo handlers, mirroring
// the donor's dominant web idiom (documents.go, routes.go, session_handlers.go):
// one *echo.Echo per Server, routes registered up front in registerRoutes,
// and a respondWithError helper shared by every handler. No auth, CORS, or
// static-file serving — that belongs to whatever process embeds this Server.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"ragcore/internal/config"
	"ragcore/internal/documents"
	"ragcore/internal/history"
	"ragcore/internal/modelprovider"
	"ragcore/internal/objectstore"
	"ragcore/internal/qa"
)

// Server exposes the RAG core's operations over HTTP.
type Server struct {
	echo *echo.Echo

	pipeline   *documents.Pipeline
	repository documents.Repository
	objects    objectstore.ObjectStore
	history    history.Store
	qa         *qa.Orchestrator
	configs    *config.Manager
	models     *modelprovider.Manager
	log        zerolog.Logger
}

// Deps wires every component NewServer needs. All fields are required
// except Log, which defaults to zerolog.Nop().
type Deps struct {
	Pipeline   *documents.Pipeline
	Repository documents.Repository
	Objects    objectstore.ObjectStore
	History    history.Store
	QA         *qa.Orchestrator
	Configs    *config.Manager
	Models     *modelprovider.Manager
	Log        zerolog.Logger
}

// NewServer builds a Server and registers every route.
func NewServer(deps Deps) *Server {
	s := &Server{
		echo:       echo.New(),
		pipeline:   deps.Pipeline,
		repository: deps.Repository,
		objects:    deps.Objects,
		history:    deps.History,
		qa:         deps.QA,
		configs:    deps.Configs,
		models:     deps.Models,
		log:        deps.Log,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	e := s.echo

	// Documents
	e.POST("/documents/upload", s.handleUploadDocument)
	e.GET("/documents/", s.handleListDocuments)
	e.GET("/documents/:id", s.handleGetDocument)
	e.POST("/documents/:id/reprocess", s.handleReprocessDocument)
	e.DELETE("/documents/:id", s.handleDeleteDocument)

	// QA
	e.POST("/qa/ask", s.handleAskQuestion)

	// Sessions
	e.POST("/sessions/", s.handleCreateSession)
	e.GET("/sessions/recent", s.handleRecentSessions)
	e.GET("/sessions/stats/summary", s.handleSessionStatsSummary)
	e.GET("/sessions/:id/history", s.handleSessionHistory)

	// Configuration
	e.GET("/config/", s.handleGetConfig)
	e.GET("/config/:section", s.handleGetConfigSection)
	e.PUT("/config/:section", s.handleUpdateConfigSection)
	e.POST("/config/validate", s.handleValidateConfig)
	e.POST("/config/reload", s.handleReloadConfig)

	// Model registry
	e.POST("/models/add", s.handleAddModel)
	e.POST("/models/test", s.handleTestModel)
	e.GET("/models/configs", s.handleModelConfigs)
	e.POST("/models/switch", s.handleSwitchModel)
}
