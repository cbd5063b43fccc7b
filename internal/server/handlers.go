package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/metrics"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/mwierzba/factgraph/internal/pipeline"
)

// SubmitRequest is the body of POST /api/submit. Options may override
// the default full stage sequence; Process=false stores the job without
// starting a run.
type SubmitRequest struct {
	Items    []models.ItemSpec `json:"items"`
	Language string            `json:"language"`
	Process  *bool             `json:"process"`
	Options  *pipeline.Options `json:"options"`
}

// SubmitResponse is the body of a successful submit.
type SubmitResponse struct {
	JobUUID string `json:"job_uuid"`
	Status  string `json:"status"`
}

func (s *Server) handleSubmit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	jobUUID, err := s.submitter.Submit(ctx, req.Items)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		}
		s.log.Error("submit failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create job")
	}

	status := string(models.JobStatusPending)
	if req.Process == nil || *req.Process {
		opts := pipeline.DefaultOptions(req.Language)
		if req.Options != nil {
			opts = *req.Options
			opts.Language = req.Language
		}
		if err := s.dispatcher.Dispatch(jobUUID, opts); err != nil {
			s.log.Error("dispatch failed", "job_uuid", jobUUID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to start processing")
		}
		status = string(models.JobStatusProcessing)
	}

	return c.JSON(http.StatusAccepted, SubmitResponse{JobUUID: jobUUID, Status: status})
}

const defaultJobsLimit = 100

func (s *Server) handleListJobs(c echo.Context) error {
	limit := defaultJobsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	jobs, err := s.store.ListJobs(c.Request().Context(), limit)
	if err != nil {
		s.log.Error("list jobs failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return c.JSON(http.StatusOK, jobs)
}

// JobDetailResponse combines the job, its items, the step ledger and
// extracted facts into one status payload.
type JobDetailResponse struct {
	models.JobDetail
	Steps []models.Step `json:"steps"`
	Facts []models.Fact `json:"facts"`
}

func (s *Server) handleJobDetail(c echo.Context) error {
	ctx := c.Request().Context()
	jobUUID := c.Param("uuid")

	detail, err := s.store.GetJobDetail(ctx, jobUUID)
	if err != nil {
		s.log.Error("job detail failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
	}
	if detail == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	steps, err := s.store.GetJobSteps(ctx, jobUUID)
	if err != nil {
		s.log.Error("job steps failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job steps")
	}
	facts, err := s.store.GetFactsByJob(ctx, jobUUID)
	if err != nil {
		s.log.Error("job facts failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job facts")
	}

	if steps == nil {
		steps = []models.Step{}
	}
	if facts == nil {
		facts = []models.Fact{}
	}
	return c.JSON(http.StatusOK, JobDetailResponse{JobDetail: *detail, Steps: steps, Facts: facts})
}

func (s *Server) handleJobNodes(c echo.Context) error {
	ctx := c.Request().Context()
	jobUUID := c.Param("uuid")

	kind := models.NodeKind(c.QueryParam("type"))
	if kind != "" && !kind.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid type. Must be: fact, prediction, or missing_information")
	}

	job, err := s.store.GetJobByUUID(ctx, jobUUID)
	if err != nil {
		s.log.Error("job lookup failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	nodes, err := s.store.GetNodesByJob(ctx, jobUUID, kind)
	if err != nil {
		s.log.Error("job nodes failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load nodes")
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	return c.JSON(http.StatusOK, nodes)
}

func (s *Server) handleJobReport(c echo.Context) error {
	jobUUID := c.Param("uuid")

	job, err := s.store.GetJobByUUID(c.Request().Context(), jobUUID)
	if err != nil {
		s.log.Error("job lookup failed", "job_uuid", jobUUID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	if job.Report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not generated for this job")
	}
	return c.JSON(http.StatusOK, job.Report)
}

func (s *Server) handleNode(c echo.Context) error {
	nodeID := c.Param("id")

	node, err := s.store.GetNode(c.Request().Context(), nodeID)
	if err != nil {
		s.log.Error("node lookup failed", "node_id", nodeID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load node")
	}
	if node == nil {
		return echo.NewHTTPError(http.StatusNotFound, "node not found")
	}
	return c.JSON(http.StatusOK, node)
}

func (s *Server) handleNodeRelations(c echo.Context) error {
	ctx := c.Request().Context()
	nodeID := c.Param("id")

	direction := models.RelationDirection(c.QueryParam("direction"))
	if direction == "" {
		direction = models.DirectionBoth
	}
	if !direction.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid direction. Must be: incoming, outgoing, or both")
	}

	node, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		s.log.Error("node lookup failed", "node_id", nodeID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load node")
	}
	if node == nil {
		return echo.NewHTTPError(http.StatusNotFound, "node not found")
	}

	relations, err := s.store.GetNodeRelations(ctx, nodeID, direction)
	if err != nil {
		s.log.Error("node relations failed", "node_id", nodeID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load relations")
	}
	return c.JSON(http.StatusOK, relations)
}

const defaultSearchLimit = 5

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query   string           `json:"query"`
	Matches []db.CorpusMatch `json:"matches"`
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.embedder == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "similarity search not configured")
	}

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}

	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	ctx := c.Request().Context()
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to embed query")
	}

	matches, err := s.store.SearchCorpus(ctx, vector, limit)
	if err != nil {
		s.log.Error("corpus search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search corpus")
	}
	if matches == nil {
		matches = []db.CorpusMatch{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Matches: matches})
}

// StatsResponse combines persistent table counts with in-process
// runtime metrics.
type StatsResponse struct {
	Database *db.Stats         `json:"database"`
	Runtime  *metrics.Snapshot `json:"runtime,omitempty"`
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.GetStats(c.Request().Context())
	if err != nil {
		s.log.Error("stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}

	resp := StatsResponse{Database: stats}
	if s.collector != nil {
		snap := s.collector.Snapshot()
		resp.Runtime = &snap
	}
	return c.JSON(http.StatusOK, resp)
}
