package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/models"
)

const (
	sourcedPredictionConfidence  = 0.7
	fallbackPredictionConfidence = 0.5
)

// fallbackSourceLinks is how many fact nodes an unsourced prediction is
// linked to when the model did not attribute its sources.
const fallbackSourceLinks = 3

// reasoningStage derives predictions and missing-information nodes from
// the job's facts and wires them into the graph. The preferred mode asks
// the model for predictions with source fact attributions; when that
// JSON cannot be parsed it falls back to plain-line predictions linked
// heuristically to the leading facts. Options.UseToolLoop replaces both
// with the iterative tool-calling conversation. With no facts the step
// is recorded as skipped.
func (o *Orchestrator) reasoningStage(ctx context.Context, run *jobRun) error {
	facts, err := o.store.GetFactsByJob(ctx, run.job.UUID)
	if err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}
	if len(facts) == 0 {
		o.log.Info("reasoning skipped, no facts", "job_uuid", run.job.UUID)
		return o.runStep(ctx, run, models.StepTypeReasoning, map[string]any{"facts": 0}, func(step *models.Step) (map[string]any, error) {
			return map[string]any{"predictions": 0, "unknowns": 0}, errSkipStage
		})
	}

	factTexts := make([]string, len(facts))
	for i, f := range facts {
		factTexts[i] = f.Text
	}

	factNodeIDs, err := o.factNodeIDs(ctx, run.job.UUID)
	if err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}

	input := map[string]any{"facts": len(facts), "tool_loop": run.opts.UseToolLoop}
	return o.runStep(ctx, run, models.StepTypeReasoning, input, func(step *models.Step) (map[string]any, error) {
		if run.opts.UseToolLoop {
			return o.runToolLoop(ctx, run, factTexts, factNodeIDs)
		}

		predictions, sourced, err := o.createPredictions(ctx, run, factTexts, factNodeIDs)
		if err != nil {
			return nil, err
		}

		unknowns, err := o.createUnknowns(ctx, run, factTexts)
		if err != nil {
			return map[string]any{"predictions": predictions, "sourced": sourced}, err
		}

		return map[string]any{"predictions": predictions, "sourced": sourced, "unknowns": unknowns}, nil
	})
}

// factNodeIDs returns the job's fact node IDs in creation order, so a
// 1-based fact index maps onto its node.
func (o *Orchestrator) factNodeIDs(ctx context.Context, jobUUID string) ([]string, error) {
	nodes, err := o.store.GetNodesByJob(ctx, jobUUID, models.NodeKindFact)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		id, err := models.RecordIDString(n.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// createPredictions generates prediction nodes, preferring the sourced
// JSON mode. Returns the node count and whether sourcing succeeded.
func (o *Orchestrator) createPredictions(ctx context.Context, run *jobRun, factTexts, factNodeIDs []string) (int, bool, error) {
	system, user := o.prompts.SourcedPredictions(run.language, factTexts)
	raw, err := o.model.GenerateJSON(ctx, run.language, system, user)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return 0, false, err
		}
		raw = ""
	}

	if sourced, ok := llm.ParseSourcedPredictions(raw, len(factTexts)); ok {
		if len(sourced) > o.cfg.MaxPredictions {
			sourced = sourced[:o.cfg.MaxPredictions]
		}
		for _, sp := range sourced {
			if err := o.createPredictionNode(ctx, run, sp.Prediction, sourcedPredictionConfidence, o.pickSourceNodes(factNodeIDs, sp.SourceFactIDs)); err != nil {
				return 0, true, err
			}
		}
		return len(sourced), true, nil
	}

	// Sourced mode unusable: fall back to plain lines and attribute
	// each prediction to the leading facts.
	o.log.Info("sourced predictions unparseable, falling back", "job_uuid", run.job.UUID)

	system, user = o.prompts.PredictionExtraction(run.language, strings.Join(factTexts, "\n"))
	raw, err = o.model.GenerateWithSystem(ctx, run.language, system, user)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return 0, false, err
		}
		return 0, false, nil
	}

	lines := llm.ParseLines(raw, llm.PredictionSkipPhrases)
	if len(lines) > o.cfg.MaxPredictions {
		lines = lines[:o.cfg.MaxPredictions]
	}

	sources := factNodeIDs
	if len(sources) > fallbackSourceLinks {
		sources = sources[:fallbackSourceLinks]
	}
	for _, prediction := range lines {
		if err := o.createPredictionNode(ctx, run, prediction, fallbackPredictionConfidence, sources); err != nil {
			return 0, false, err
		}
	}
	return len(lines), false, nil
}

// pickSourceNodes maps 0-based fact indices onto node IDs. Indices are
// pre-validated by the parser, the bounds check is for safety against a
// shorter node list.
func (o *Orchestrator) pickSourceNodes(factNodeIDs []string, indices []int) []string {
	ids := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(factNodeIDs) {
			ids = append(ids, factNodeIDs[idx])
		}
	}
	return ids
}

func (o *Orchestrator) createPredictionNode(ctx context.Context, run *jobRun, prediction string, confidence float64, sourceNodeIDs []string) error {
	jobID := run.job.ID
	node, err := o.store.CreateNode(ctx, &jobID, models.NodeKindPrediction, prediction, map[string]any{
		"confidence_level": confidence,
		"language":         run.language,
	})
	if err != nil {
		return err
	}

	nodeID, err := models.RecordIDString(node.ID)
	if err != nil {
		return err
	}

	for _, sourceID := range sourceNodeIDs {
		if err := o.store.CreateRelation(ctx, nodeID, sourceID, models.RelationDerivedFrom, confidence, nil); err != nil {
			return err
		}
	}
	return nil
}

// createUnknowns generates missing-information nodes from the fact set.
func (o *Orchestrator) createUnknowns(ctx context.Context, run *jobRun, factTexts []string) (int, error) {
	system, user := o.prompts.UnknownExtraction(run.language, strings.Join(factTexts, "\n"))
	raw, err := o.model.GenerateWithSystem(ctx, run.language, system, user)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return 0, err
		}
		return 0, nil
	}

	lines := llm.ParseLines(raw, llm.UnknownSkipPhrases)
	if len(lines) > o.cfg.MaxUnknowns {
		lines = lines[:o.cfg.MaxUnknowns]
	}

	jobID := run.job.ID
	for _, unknown := range lines {
		if _, err := o.store.CreateNode(ctx, &jobID, models.NodeKindMissingInfo, unknown, map[string]any{
			"language": run.language,
		}); err != nil {
			return 0, err
		}
	}
	return len(lines), nil
}
