// Package pipeline implements the multi-stage analysis workflow: item
// conversion, fact extraction, validation/promotion, graph reasoning
// and report generation, with a step ledger row per stage attempt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/convert"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/metrics"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStore persists jobs and their items.
type JobStore interface {
	CreateJobWithItems(ctx context.Context, jobUUID string, items []db.ItemInsert) error
	GetJobByUUID(ctx context.Context, jobUUID string) (*models.Job, error)
	GetJobItems(ctx context.Context, jobUUID string) ([]models.Item, error)
	UpdateJobStatus(ctx context.Context, jobUUID string, status models.JobStatus, errorMessage *string) error
	SetJobReport(ctx context.Context, jobUUID string, report models.Report) error
	UpdateItemStatus(ctx context.Context, itemID surrealmodels.RecordID, status models.ItemStatus, processedContent, errorMessage *string) error
}

// StepStore persists the per-stage audit ledger.
type StepStore interface {
	CreateStep(ctx context.Context, jobID surrealmodels.RecordID, seq int, stepType models.StepType, input map[string]any) (*models.Step, error)
	CompleteStep(ctx context.Context, stepID surrealmodels.RecordID, status models.StepStatus, output map[string]any, errorMessage *string) error
	GetJobSteps(ctx context.Context, jobUUID string) ([]models.Step, error)
}

// FactStore persists extracted facts and the long-lived corpus.
type FactStore interface {
	CreateFacts(ctx context.Context, jobID, stepID surrealmodels.RecordID, facts []db.FactInsert) ([]models.Fact, error)
	GetFactsByJob(ctx context.Context, jobUUID string) ([]models.Fact, error)
	MarkFactValidated(ctx context.Context, factID surrealmodels.RecordID, confidence float64) error
	PromoteFact(ctx context.Context, fact models.Fact, embedding []float32) (*models.CorpusFact, error)
}

// GraphStore persists knowledge graph nodes and relations.
type GraphStore interface {
	CreateNode(ctx context.Context, jobID *surrealmodels.RecordID, kind models.NodeKind, value string, metadata map[string]any) (*models.Node, error)
	CreateRelation(ctx context.Context, fromID, toID string, relType string, confidence float64, metadata map[string]any) error
	GetNodesByJob(ctx context.Context, jobUUID string, kind models.NodeKind) ([]models.Node, error)
	GetNodeRelations(ctx context.Context, nodeID string, direction models.RelationDirection) ([]models.Relation, error)
}

// Store is the full persistence surface the orchestrator needs.
// *db.Client satisfies it.
type Store interface {
	JobStore
	StepStore
	FactStore
	GraphStore
}

// Generator is the LLM surface the stages call. *llm.Model satisfies it.
type Generator interface {
	GenerateWithSystem(ctx context.Context, language, systemPrompt, userPrompt string) (string, error)
	GenerateJSON(ctx context.Context, language, systemPrompt, userPrompt string) (string, error)
	GenerateJSONLong(ctx context.Context, language, systemPrompt, userPrompt string, timeout time.Duration) (string, error)
}

// Embedder is the optional vector backend used for corpus promotion.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options selects language and gates individual stages of a run. All
// stages default to off; a zero Options value runs nothing and
// completes the job immediately.
type Options struct {
	Language             string `json:"language"`
	EnableScraping       bool   `json:"enable_scraping"`
	EnableFactExtraction bool   `json:"enable_fact_extraction"`
	EnableValidation     bool   `json:"enable_validation"`
	EnableReasoning      bool   `json:"enable_reasoning"`
	EnableScenarios      bool   `json:"enable_scenarios"`

	// UseToolLoop switches reasoning to the iterative tool-calling
	// variant instead of the single-shot sourced/unsourced modes.
	UseToolLoop bool `json:"use_tool_loop"`
}

// DefaultOptions enables the full stage sequence for a language.
func DefaultOptions(language string) Options {
	return Options{
		Language:             language,
		EnableScraping:       true,
		EnableFactExtraction: true,
		EnableValidation:     true,
		EnableReasoning:      true,
		EnableScenarios:      true,
	}
}

// Orchestrator sequences the pipeline stages for one job at a time.
type Orchestrator struct {
	store     Store
	model     Generator
	embedder  Embedder
	converter convert.Converter
	prompts   *llm.Prompts
	cfg       *config.Config
	log       *slog.Logger
	collector *metrics.Collector
}

// New creates an orchestrator. embedder may be nil; the validation
// stage then promotes facts without vectors.
func New(store Store, model Generator, embedder Embedder, converter convert.Converter, cfg *config.Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		model:     model,
		embedder:  embedder,
		converter: converter,
		prompts:   llm.NewPrompts(cfg.AnalysisContext),
		cfg:       cfg,
		log:       log,
	}
}

// Submit validates a batch and atomically creates the job with its
// items, all pending. Nothing is persisted when validation fails.
func (o *Orchestrator) Submit(ctx context.Context, specs []models.ItemSpec) (string, error) {
	inserts, err := ValidateItems(specs)
	if err != nil {
		return "", err
	}

	jobUUID := uuid.New().String()
	if err := o.store.CreateJobWithItems(ctx, jobUUID, inserts); err != nil {
		return "", err
	}

	o.log.Info("job submitted", "job_uuid", jobUUID, "items", len(inserts))
	return jobUUID, nil
}

// Run executes the enabled stages for a job in order. Any stage error
// marks the job failed with the error text and aborts the remaining
// stages; per-item failures inside a stage are skipped, not fatal.
// Re-running a failed job retries the whole pipeline from the first
// enabled stage; only completed jobs are rejected.
func (o *Orchestrator) Run(ctx context.Context, jobUUID string, opts Options) error {
	job, err := o.store.GetJobByUUID(ctx, jobUUID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("run job %s: %w", jobUUID, db.ErrNotFound)
	}
	// A failed job may be retried as a whole; completed jobs are final.
	if job.Status == models.JobStatusCompleted {
		return fmt.Errorf("run job %s: already %s", jobUUID, job.Status)
	}

	language := opts.Language
	if language == "" {
		language = llm.LanguageEnglish
	}

	// A retry's steps continue the ledger after the previous attempt.
	priorSteps, err := o.store.GetJobSteps(ctx, jobUUID)
	if err != nil {
		return err
	}
	lastSeq := 0
	for _, step := range priorSteps {
		if step.Seq > lastSeq {
			lastSeq = step.Seq
		}
	}

	if err := o.store.UpdateJobStatus(ctx, jobUUID, models.JobStatusProcessing, nil); err != nil {
		return err
	}

	o.log.Info("job run started", "job_uuid", jobUUID, "language", language,
		"extraction", opts.EnableFactExtraction, "validation", opts.EnableValidation,
		"reasoning", opts.EnableReasoning, "scenarios", opts.EnableScenarios)

	run := &jobRun{job: job, language: language, opts: opts, seq: lastSeq}

	if err := o.runStages(ctx, run); err != nil {
		msg := err.Error()
		if statusErr := o.store.UpdateJobStatus(ctx, jobUUID, models.JobStatusFailed, &msg); statusErr != nil {
			o.log.Error("failed to mark job failed", "job_uuid", jobUUID, "error", statusErr)
		}
		o.log.Warn("job run failed", "job_uuid", jobUUID, "error", err)
		return err
	}

	if err := o.store.UpdateJobStatus(ctx, jobUUID, models.JobStatusCompleted, nil); err != nil {
		return err
	}

	o.log.Info("job run completed", "job_uuid", jobUUID)
	return nil
}

// jobRun carries the state threaded through one run's stages.
type jobRun struct {
	job      *models.Job
	language string
	opts     Options
	seq      int
}

func (r *jobRun) nextSeq() int {
	r.seq++
	return r.seq
}

func (o *Orchestrator) runStages(ctx context.Context, run *jobRun) error {
	if run.opts.EnableScraping {
		if err := o.scrapeStage(ctx, run); err != nil {
			return err
		}
	}

	if run.opts.EnableFactExtraction {
		if err := o.extractionStage(ctx, run); err != nil {
			return err
		}

		if run.opts.EnableValidation {
			if err := o.validationStage(ctx, run); err != nil {
				return err
			}
		}
	}

	if run.opts.EnableReasoning {
		if err := o.reasoningStage(ctx, run); err != nil {
			return err
		}
	}

	if run.opts.EnableScenarios {
		if err := o.scenarioStage(ctx, run); err != nil {
			return err
		}
	}

	return nil
}

// errSkipStage is returned by a stage body that had nothing to operate
// on; runStep then records the step as skipped instead of failed, so
// the ledger still shows the stage was attempted.
var errSkipStage = errors.New("stage skipped")

// runStep brackets one stage body with its ledger row: the step is
// created as processing, and completed, skipped or failed in one write
// when the body returns.
func (o *Orchestrator) runStep(ctx context.Context, run *jobRun, stepType models.StepType, input map[string]any, body func(step *models.Step) (map[string]any, error)) error {
	step, err := o.store.CreateStep(ctx, run.job.ID, run.nextSeq(), stepType, input)
	if err != nil {
		return fmt.Errorf("%s: %w", stepType, err)
	}
	defer o.recordStage(string(stepType), time.Now())

	output, err := body(step)
	if errors.Is(err, errSkipStage) {
		if completeErr := o.store.CompleteStep(ctx, step.ID, models.StepStatusSkipped, output, nil); completeErr != nil {
			return fmt.Errorf("%s: %w", stepType, completeErr)
		}
		return nil
	}
	if err != nil {
		msg := err.Error()
		if completeErr := o.store.CompleteStep(ctx, step.ID, models.StepStatusFailed, output, &msg); completeErr != nil {
			o.log.Error("failed to record step failure", "step", stepType, "error", completeErr)
		}
		return fmt.Errorf("%s: %w", stepType, err)
	}

	if err := o.store.CompleteStep(ctx, step.ID, models.StepStatusCompleted, output, nil); err != nil {
		return fmt.Errorf("%s: %w", stepType, err)
	}
	return nil
}
