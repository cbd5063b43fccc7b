package pipeline

import (
	"context"
	"fmt"

	"github.com/mwierzba/factgraph/internal/models"
)

// scrapeStage fetches every link item up front and stores the converted
// markdown as the item's processed content, so later stages read text
// instead of refetching. Failed links are marked failed and skipped; the
// stage itself only fails when no items can be loaded at all.
func (o *Orchestrator) scrapeStage(ctx context.Context, run *jobRun) error {
	items, err := o.store.GetJobItems(ctx, run.job.UUID)
	if err != nil {
		return fmt.Errorf("scraping: %w", err)
	}

	links := 0
	for _, it := range items {
		if it.Type == models.ItemTypeLink {
			links++
		}
	}
	if links == 0 {
		return nil
	}

	// When extraction follows it finishes the items; otherwise the
	// scrape is the item's whole pipeline and must leave it terminal.
	scrapedStatus := models.ItemStatusProcessing
	if !run.opts.EnableFactExtraction {
		scrapedStatus = models.ItemStatusCompleted
	}

	return o.runStep(ctx, run, models.StepTypeScraping, map[string]any{"links": links}, func(step *models.Step) (map[string]any, error) {
		scraped, failed := 0, 0
		for _, item := range items {
			if item.Type != models.ItemTypeLink {
				continue
			}

			if err := o.store.UpdateItemStatus(ctx, item.ID, models.ItemStatusProcessing, nil, nil); err != nil {
				return nil, err
			}

			converted, convErr := o.converter.Convert(ctx, item)
			if convErr != nil {
				failed++
				msg := convErr.Error()
				o.log.Warn("link scrape failed", "job_uuid", run.job.UUID, "url", item.Content, "error", convErr)
				if err := o.store.UpdateItemStatus(ctx, item.ID, models.ItemStatusFailed, nil, &msg); err != nil {
					return nil, err
				}
				continue
			}

			scraped++
			if err := o.store.UpdateItemStatus(ctx, item.ID, scrapedStatus, &converted.Content, nil); err != nil {
				return nil, err
			}
		}

		output := map[string]any{"scraped": scraped, "failed": failed}
		if scraped == 0 && failed > 0 {
			return output, fmt.Errorf("all %d links failed to scrape", failed)
		}
		return output, nil
	})
}
