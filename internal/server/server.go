package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m2tx/manualchat/internal/agent"
	"github.com/m2tx/manualchat/internal/model"
	"go.uber.org/zap"
)

// Chat is the conversation surface the HTTP API exposes.
type Chat interface {
	Documents() ([]model.Document, error)
	NewSession() string
	SelectDocument(ctx context.Context, sessionID, apiKey, documentName string) (model.CachedContext, error)
	ContextStatus(ctx context.Context, sessionID, apiKey string) (model.CachedContext, error)
	Send(ctx context.Context, sessionID, apiKey, prompt string) (model.Turn, error)
	GetSession(sessionID string) (agent.Snapshot, error)
	ResetSession(sessionID string) error
	ClearSession(ctx context.Context, sessionID string)
}

type Options struct {
	// APIKey is used when a request carries no X-Goog-Api-Key header.
	APIKey string
	// Page is served at the root path when set.
	Page []byte
}

type Server struct {
	chat   Chat
	opts   Options
	logger *zap.Logger
	router *gin.Engine
}

func New(chat Chat, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{chat: chat, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	if len(s.opts.Page) > 0 {
		router.GET("/", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", s.opts.Page)
		})
	}

	api := router.Group("/api")
	api.GET("/documents", s.listDocuments)
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id/transcript", s.transcript)
	api.POST("/sessions/:id/reset", s.resetSession)
	api.DELETE("/sessions/:id", s.deleteSession)

	remote := api.Group("")
	remote.Use(credential(s.opts.APIKey))
	remote.PUT("/sessions/:id/document", s.selectDocument)
	remote.GET("/sessions/:id/cache", s.cacheStatus)
	remote.POST("/sessions/:id/messages", s.sendMessage)

	return router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
