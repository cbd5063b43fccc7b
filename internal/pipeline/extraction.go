package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/models"
)

// maxSourceExcerptLen bounds the excerpt stored alongside each fact.
const maxSourceExcerptLen = 500

// extractionStage converts each item to text and extracts facts from it
// with the LLM, one call per item, capped at MaxFactsPerItem. Each fact
// also becomes a graph node so reasoning can relate to it later.
//
// Failure policy: a conversion or LLM error on one item marks that item
// failed and moves on. Only fatal API errors (billing, auth, quota)
// abort the stage, since every remaining call would fail the same way.
func (o *Orchestrator) extractionStage(ctx context.Context, run *jobRun) error {
	items, err := o.store.GetJobItems(ctx, run.job.UUID)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	return o.runStep(ctx, run, models.StepTypeExtraction, map[string]any{"items": len(items), "language": run.language}, func(step *models.Step) (map[string]any, error) {
		totalFacts, failedItems := 0, 0

		for _, item := range items {
			if item.Status == models.ItemStatusFailed {
				failedItems++
				continue
			}

			n, err := o.extractItemFacts(ctx, run, step, item)
			if err != nil {
				if errors.Is(err, llm.ErrFatalAPI) {
					return map[string]any{"facts": totalFacts, "failed_items": failedItems}, err
				}
				failedItems++
				msg := err.Error()
				o.log.Warn("item extraction failed", "job_uuid", run.job.UUID, "position", item.Position, "error", err)
				if statusErr := o.store.UpdateItemStatus(ctx, item.ID, models.ItemStatusFailed, nil, &msg); statusErr != nil {
					return nil, statusErr
				}
				continue
			}
			totalFacts += n
		}

		return map[string]any{"facts": totalFacts, "failed_items": failedItems}, nil
	})
}

// extractItemFacts runs conversion and fact extraction for one item and
// marks it completed with its converted text. The returned error is the
// item's failure, handled by the caller's skip policy.
func (o *Orchestrator) extractItemFacts(ctx context.Context, run *jobRun, step *models.Step, item models.Item) (int, error) {
	if err := o.store.UpdateItemStatus(ctx, item.ID, models.ItemStatusProcessing, nil, nil); err != nil {
		return 0, err
	}

	content, sourceType, err := o.itemContent(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("convert: %w", err)
	}

	system, user := o.prompts.FactExtraction(run.language, content)
	raw, err := o.model.GenerateWithSystem(ctx, run.language, system, user)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return 0, err
		}
		// Model hiccups yield zero facts for this item, not a failure.
		o.log.Warn("fact extraction returned no response", "job_uuid", run.job.UUID, "position", item.Position, "error", err)
		raw = ""
	}

	facts := llm.ParseLines(raw, llm.FactSkipPhrases)
	if len(facts) > o.cfg.MaxFactsPerItem {
		facts = facts[:o.cfg.MaxFactsPerItem]
	}

	if len(facts) > 0 {
		inserts := make([]db.FactInsert, 0, len(facts))
		itemID := item.ID
		for _, text := range facts {
			inserts = append(inserts, db.FactInsert{
				Text:          text,
				SourceType:    sourceType,
				SourceExcerpt: clipRunes(content, maxSourceExcerptLen),
				Language:      run.language,
				Item:          &itemID,
			})
		}

		created, err := o.store.CreateFacts(ctx, run.job.ID, step.ID, inserts)
		if err != nil {
			return 0, err
		}

		jobID := run.job.ID
		for _, fact := range created {
			if _, err := o.store.CreateNode(ctx, &jobID, models.NodeKindFact, fact.Text, map[string]any{
				"source_type": sourceType,
				"language":    run.language,
			}); err != nil {
				return 0, err
			}
		}
	}

	if err := o.store.UpdateItemStatus(ctx, item.ID, models.ItemStatusCompleted, &content, nil); err != nil {
		return 0, err
	}
	return len(facts), nil
}

// itemContent resolves an item to analyzable text, reusing content a
// prior scraping stage already stored.
func (o *Orchestrator) itemContent(ctx context.Context, item models.Item) (string, string, error) {
	if item.ProcessedContent != nil && *item.ProcessedContent != "" {
		return *item.ProcessedContent, string(item.Type), nil
	}

	converted, err := o.converter.Convert(ctx, item)
	if err != nil {
		return "", "", err
	}
	return converted.Content, converted.SourceType, nil
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
