package pipeline

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/models"
)

// validatedConfidence is assigned when a fact passes validation.
const validatedConfidence = 0.8

// validationStage marks each extracted fact validated and promotes it
// into the long-lived corpus. When an embedder is configured each
// promoted fact carries a vector; embedding failures skip promotion for
// that fact but keep the validation mark. With no facts the step is
// recorded as skipped.
func (o *Orchestrator) validationStage(ctx context.Context, run *jobRun) error {
	facts, err := o.store.GetFactsByJob(ctx, run.job.UUID)
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	return o.runStep(ctx, run, models.StepTypeValidation, map[string]any{"facts": len(facts)}, func(step *models.Step) (map[string]any, error) {
		if len(facts) == 0 {
			return map[string]any{"validated": 0, "promoted": 0}, errSkipStage
		}

		validated, promoted := 0, 0

		for _, fact := range facts {
			if err := o.store.MarkFactValidated(ctx, fact.ID, validatedConfidence); err != nil {
				return map[string]any{"validated": validated, "promoted": promoted}, err
			}
			validated++

			var embedding []float32
			if o.embedder != nil {
				embedding, err = o.embedder.Embed(ctx, fact.Text)
				if err != nil {
					o.log.Warn("fact embedding failed, skipping corpus promotion",
						"job_uuid", run.job.UUID, "fact", models.MustRecordIDString(fact.ID), "error", err)
					continue
				}
			}

			fact.Confidence = validatedConfidence
			fact.Validated = true
			if _, err := o.store.PromoteFact(ctx, fact, embedding); err != nil {
				return map[string]any{"validated": validated, "promoted": promoted}, err
			}
			promoted++
		}

		return map[string]any{"validated": validated, "promoted": promoted}, nil
	})
}
