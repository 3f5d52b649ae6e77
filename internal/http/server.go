// Package http provides the HTTP API for repochat.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repochat/internal/gitrepo"
	"github.com/fyrsmithlabs/repochat/internal/indexer"
	"github.com/fyrsmithlabs/repochat/internal/rag"
	"github.com/fyrsmithlabs/repochat/internal/registry"
	"github.com/fyrsmithlabs/repochat/internal/vectorstore"
)

// Server provides HTTP endpoints for repochat.
type Server struct {
	echo     *echo.Echo
	indexer  *indexer.Indexer
	engine   *rag.Engine
	registry *registry.Registry
	store    vectorstore.Store
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(ix *indexer.Indexer, engine *rag.Engine, reg *registry.Registry, store vectorstore.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ix == nil {
		return nil, fmt.Errorf("indexer cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("chat engine cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		indexer:  ix,
		engine:   engine,
		registry: reg,
		store:    store,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/repositories", s.handleListRepositories)
	v1.POST("/repositories", s.handleIndexRepository)
	v1.POST("/repositories/scan", s.handleScanRepository)
	v1.POST("/repositories/:namespace/reindex", s.handleReindexRepository)
	v1.DELETE("/repositories/:namespace", s.handleDeleteRepository)
	v1.POST("/chat", s.handleChat)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleListRepositories returns every registered repository together
// with its collection statistics when the collection still exists.
func (s *Server) handleListRepositories(c echo.Context) error {
	entries, err := s.registry.All()
	if err != nil {
		s.logger.Error("reading registry", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read repository registry")
	}

	resp := ListRepositoriesResponse{Repositories: make([]RepositoryEntry, 0, len(entries))}
	for namespace, url := range entries {
		entry := RepositoryEntry{Namespace: namespace, URL: url}
		if info, err := s.store.GetCollectionInfo(c.Request().Context(), namespace); err == nil {
			entry.Chunks = info.PointCount
			entry.VectorSize = info.VectorSize
		}
		resp.Repositories = append(resp.Repositories, entry)
	}

	return c.JSON(http.StatusOK, resp)
}

// handleIndexRepository clones, chunks and indexes a repository. The
// request runs to completion; there is no job queue.
func (s *Server) handleIndexRepository(c echo.Context) error {
	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid index request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url field is required")
	}

	namespace := req.Namespace
	if namespace == "" {
		name, err := gitrepo.RepoNameFromURL(req.URL)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "cannot derive a namespace from the url; pass namespace explicitly")
		}
		namespace = name
	}

	result := s.indexer.Index(c.Request().Context(), indexer.Job{
		RepositoryURL: req.URL,
		Namespace:     namespace,
		BatchSize:     req.BatchSize,
		SelectedPaths: req.Paths,
	}, s.logProgress(namespace))

	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

// handleScanRepository clones a repository and returns its indexable
// files so a client can offer per-file selection before indexing.
func (s *Server) handleScanRepository(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid scan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url field is required")
	}

	files, err := s.indexer.ScanRepository(c.Request().Context(), req.URL)
	if err != nil {
		s.logger.Warn("scan failed", zap.String("url", req.URL), zap.Error(err))
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return c.JSON(http.StatusOK, ScanResponse{Files: files})
}

// handleReindexRepository deletes the namespace's collection and indexes
// the recorded repository URL from scratch.
func (s *Server) handleReindexRepository(c echo.Context) error {
	namespace := c.Param("namespace")

	result := s.indexer.Reindex(c.Request().Context(), namespace, s.logProgress(namespace))
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

// handleDeleteRepository removes both the vector collection and the
// registry entry for a namespace. Unknown namespaces delete cleanly.
func (s *Server) handleDeleteRepository(c echo.Context) error {
	namespace := c.Param("namespace")
	if err := vectorstore.ValidateCollectionName(namespace); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	exists, err := s.store.CollectionExists(ctx, namespace)
	if err != nil {
		s.logger.Error("checking collection", zap.String("namespace", namespace), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check collection")
	}
	if exists {
		if err := s.store.DeleteCollection(ctx, namespace); err != nil {
			s.logger.Error("deleting collection", zap.String("namespace", namespace), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete collection")
		}
	}
	if err := s.registry.Delete(namespace); err != nil {
		s.logger.Error("deleting registry entry", zap.String("namespace", namespace), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update repository registry")
	}

	return c.JSON(http.StatusOK, DeleteResponse{Namespace: namespace, Deleted: true})
}

// handleChat answers a question about an indexed repository.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Namespace == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "namespace field is required")
	}

	answer, err := s.engine.Ask(c.Request().Context(), req.Query, req.Namespace, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuery):
			return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
		case errors.Is(err, vectorstore.ErrInvalidCollectionName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, vectorstore.ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("namespace %q is not indexed", req.Namespace))
		default:
			s.logger.Error("chat failed", zap.String("namespace", req.Namespace), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer the question")
		}
	}

	return c.JSON(http.StatusOK, answer)
}

// logProgress reports indexing stage transitions into the server log so
// long-running index requests remain observable.
func (s *Server) logProgress(namespace string) indexer.Progress {
	return func(status indexer.Status, detail string) {
		s.logger.Info("indexing progress",
			zap.String("namespace", namespace),
			zap.String("status", string(status)),
			zap.String("detail", detail),
		)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
