package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/models"
)

// scenarioStage synthesizes the final narrative report from everything
// the earlier stages put in the graph. An unparseable model response
// downgrades to a deterministic fallback report rather than failing the
// job; only fatal API errors abort.
func (o *Orchestrator) scenarioStage(ctx context.Context, run *jobRun) error {
	material, err := o.gatherReportMaterial(ctx, run)
	if err != nil {
		return fmt.Errorf("scenario_generation: %w", err)
	}

	input := map[string]any{
		"facts":       len(material.facts),
		"predictions": len(material.predictions),
		"unknowns":    len(material.unknowns),
		"relations":   len(material.relations),
	}

	return o.runStep(ctx, run, models.StepTypeScenario, input, func(step *models.Step) (map[string]any, error) {
		report, fallback, err := o.generateReport(ctx, run, material)
		if err != nil {
			return nil, err
		}

		report.Metadata = models.ReportMetadata{
			FactsCount:       len(material.facts),
			PredictionsCount: len(material.predictions),
			UnknownsCount:    len(material.unknowns),
			RelationsCount:   len(material.relations),
			Fallback:         fallback,
		}

		if err := o.store.SetJobReport(ctx, run.job.UUID, report); err != nil {
			return nil, err
		}
		return map[string]any{"fallback": fallback}, nil
	})
}

// reportMaterial is the graph content the report prompt is built from.
type reportMaterial struct {
	facts       []string
	predictions []string
	unknowns    []string
	relations   []llm.ReportRelation
}

func (o *Orchestrator) gatherReportMaterial(ctx context.Context, run *jobRun) (*reportMaterial, error) {
	facts, err := o.store.GetFactsByJob(ctx, run.job.UUID)
	if err != nil {
		return nil, err
	}

	m := &reportMaterial{}
	for _, f := range facts {
		m.facts = append(m.facts, f.Text)
	}

	predictionNodes, err := o.store.GetNodesByJob(ctx, run.job.UUID, models.NodeKindPrediction)
	if err != nil {
		return nil, err
	}
	for _, node := range predictionNodes {
		m.predictions = append(m.predictions, node.Value)

		nodeID, err := models.RecordIDString(node.ID)
		if err != nil {
			return nil, err
		}
		relations, err := o.store.GetNodeRelations(ctx, nodeID, models.DirectionOutgoing)
		if err != nil {
			return nil, err
		}
		for _, rel := range relations {
			related := ""
			if rel.RelatedValue != nil {
				related = *rel.RelatedValue
			}
			m.relations = append(m.relations, llm.ReportRelation{
				RelType:   rel.RelType,
				FromValue: node.Value,
				ToValue:   related,
			})
		}
	}

	unknownNodes, err := o.store.GetNodesByJob(ctx, run.job.UUID, models.NodeKindMissingInfo)
	if err != nil {
		return nil, err
	}
	for _, node := range unknownNodes {
		m.unknowns = append(m.unknowns, node.Value)
	}

	return m, nil
}

// generateReport calls the model and parses the structured report. The
// bool result reports whether the deterministic fallback was used.
func (o *Orchestrator) generateReport(ctx context.Context, run *jobRun, material *reportMaterial) (models.Report, bool, error) {
	system, user := o.prompts.Report(run.language, material.facts, material.predictions, material.unknowns, material.relations)

	raw, err := o.model.GenerateJSONLong(ctx, run.language, system, user, o.cfg.ReportTimeout)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return models.Report{}, false, err
		}
		o.log.Warn("report generation failed, using fallback", "job_uuid", run.job.UUID, "error", err)
		return o.fallbackReport(run, material), true, nil
	}

	report, ok := parseReport(raw)
	if !ok {
		o.log.Warn("report response unparseable, using fallback", "job_uuid", run.job.UUID)
		return o.fallbackReport(run, material), true, nil
	}
	return report, false, nil
}

// parseReport extracts and validates the report JSON. All four sections
// must be present and non-empty.
func parseReport(raw string) (models.Report, bool) {
	obj, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return models.Report{}, false
	}

	var report models.Report
	if err := json.Unmarshal([]byte(obj), &report); err != nil {
		return models.Report{}, false
	}

	if strings.TrimSpace(report.Summary) == "" ||
		strings.TrimSpace(report.PositiveScenario) == "" ||
		strings.TrimSpace(report.NegativeScenario) == "" ||
		strings.TrimSpace(report.Recommendations) == "" {
		return models.Report{}, false
	}
	return report, true
}

// fallbackReport assembles a minimal report directly from the gathered
// material when the model cannot produce one.
func (o *Orchestrator) fallbackReport(run *jobRun, material *reportMaterial) models.Report {
	if run.language == llm.LanguagePolish {
		return models.Report{
			Summary: fmt.Sprintf("Analiza objęła %d faktów, %d predykcji i %d brakujących informacji.",
				len(material.facts), len(material.predictions), len(material.unknowns)),
			PositiveScenario: "Nie udało się wygenerować scenariusza pozytywnego. " + firstOr(material.predictions, "Brak predykcji."),
			NegativeScenario: "Nie udało się wygenerować scenariusza negatywnego. Zidentyfikowane ryzyka wymagają ręcznej analizy.",
			Recommendations:  "Raport zastępczy: zalecana ręczna weryfikacja zebranych faktów i predykcji. " + firstOr(material.unknowns, ""),
		}
	}
	return models.Report{
		Summary: fmt.Sprintf("The analysis covered %d facts, %d predictions and %d missing information items.",
			len(material.facts), len(material.predictions), len(material.unknowns)),
		PositiveScenario: "A positive scenario could not be generated. " + firstOr(material.predictions, "No predictions were produced."),
		NegativeScenario: "A negative scenario could not be generated. Identified risks require manual review.",
		Recommendations:  "Fallback report: manual review of the collected facts and predictions is recommended. " + firstOr(material.unknowns, ""),
	}
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
