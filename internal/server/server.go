// Package server exposes games over HTTP and websockets.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"geoquiz/internal/game"
	"geoquiz/internal/host"
	"geoquiz/internal/reveal"

	"github.com/gin-gonic/gin"
	"github.com/swaggest/swgui/v5emb"
)

type Options struct {
	Host   host.Options
	Checks map[string]Checker
}

type Server struct {
	machine *game.Machine
	hosts   *host.Manager
	ws      *wsHub
	checks  map[string]Checker
	log     *slog.Logger
}

// New returns a server whose host sessions live until ctx ends or Close
// is called.
func New(ctx context.Context, machine *game.Machine, log *slog.Logger, opts Options) *Server {
	registerValidators()
	s := &Server{
		machine: machine,
		ws:      newWSHub(),
		checks:  opts.Checks,
		log:     log,
	}
	s.hosts = host.NewManager(ctx, machine, func(gameID string) reveal.MapView {
		return &mapView{hub: s.ws, gameID: gameID}
	}, log, opts.Host)
	return s
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/", s.handleHome)
	r.GET("/games/:id/results", s.handleResultsView)
	r.GET("/healthz", s.handleHealth)
	r.GET("/openapi.json", s.handleOpenAPI)
	docs := gin.WrapH(v5emb.New("GeoQuiz API", "/openapi.json", "/docs"))
	r.GET("/docs", docs)
	r.GET("/docs/*any", docs)

	api := r.Group("/api")
	api.POST("/games", s.handleCreateGame)
	api.POST("/join", s.handleJoin)
	api.GET("/games/:id", s.handleGetGame)
	api.GET("/games/:id/question", s.handleQuestion)
	api.GET("/games/:id/answers", s.handleListAnswers)
	api.POST("/games/:id/answers", s.handleSubmitAnswer)
	api.POST("/games/:id/start", s.handleStart)
	api.POST("/games/:id/reveal", s.handleReveal)
	api.POST("/games/:id/advance", s.handleAdvance)

	r.GET("/ws/games/:id", s.handleWebsocket)
	return r
}

// Close stops every host session and drops websocket clients.
func (s *Server) Close() {
	s.hosts.Stop()
	s.ws.CloseAll()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
