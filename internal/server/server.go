// Package server provides the HTTP API over the analysis pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/metrics"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/mwierzba/factgraph/internal/pipeline"
)

// Store is the read surface the API serves. *db.Client satisfies it.
type Store interface {
	ListJobs(ctx context.Context, limit int) ([]models.Job, error)
	GetJobByUUID(ctx context.Context, jobUUID string) (*models.Job, error)
	GetJobDetail(ctx context.Context, jobUUID string) (*models.JobDetail, error)
	GetJobSteps(ctx context.Context, jobUUID string) ([]models.Step, error)
	GetFactsByJob(ctx context.Context, jobUUID string) ([]models.Fact, error)
	GetNodesByJob(ctx context.Context, jobUUID string, kind models.NodeKind) ([]models.Node, error)
	GetNode(ctx context.Context, nodeID string) (*models.Node, error)
	GetNodeRelations(ctx context.Context, nodeID string, direction models.RelationDirection) ([]models.Relation, error)
	GetStats(ctx context.Context) (*db.Stats, error)
	SearchCorpus(ctx context.Context, embedding []float32, limit int) ([]db.CorpusMatch, error)
}

// Embedder turns query text into a vector for corpus search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Submitter creates jobs from item batches.
type Submitter interface {
	Submit(ctx context.Context, specs []models.ItemSpec) (string, error)
}

// Dispatcher starts background pipeline runs.
type Dispatcher interface {
	Dispatch(jobUUID string, opts pipeline.Options) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server wires the echo router to the pipeline and store.
type Server struct {
	echo       *echo.Echo
	store      Store
	submitter  Submitter
	dispatcher Dispatcher
	embedder   Embedder
	collector  *metrics.Collector
	log        *slog.Logger
	config     *Config
}

// New creates the HTTP server. collector may be nil; /api/stats then
// reports database counts only.
func New(store Store, submitter Submitter, dispatcher Dispatcher, collector *metrics.Collector, log *slog.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if submitter == nil || dispatcher == nil {
		return nil, fmt.Errorf("submitter and dispatcher are required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))

	s := &Server{
		echo:       e,
		store:      store,
		submitter:  submitter,
		dispatcher: dispatcher,
		collector:  collector,
		log:        log,
		config:     cfg,
	}

	s.registerRoutes()

	return s, nil
}

// WithEmbedder enables GET /api/search. Without it the endpoint
// reports similarity search as unavailable.
func (s *Server) WithEmbedder(embedder Embedder) *Server {
	s.embedder = embedder
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/submit", s.handleSubmit)
	api.GET("/jobs", s.handleListJobs)
	api.GET("/jobs/:uuid", s.handleJobDetail)
	api.GET("/jobs/:uuid/nodes", s.handleJobNodes)
	api.GET("/jobs/:uuid/report", s.handleJobReport)
	api.GET("/nodes/:id", s.handleNode)
	api.GET("/nodes/:id/relations", s.handleNodeRelations)
	api.GET("/search", s.handleSearch)
	api.GET("/stats", s.handleStats)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.log.Info("starting http server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
