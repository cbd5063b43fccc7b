package models

// Report is the final narrative payload produced by the scenario stage and
// stored on the job.
type Report struct {
	Summary          string         `json:"summary"`
	PositiveScenario string         `json:"positive_scenario"`
	NegativeScenario string         `json:"negative_scenario"`
	Recommendations  string         `json:"recommendations"`
	Metadata         ReportMetadata `json:"metadata"`
}

// ReportMetadata carries the node counts the report was synthesized from.
// Fallback marks reports assembled deterministically after the LLM response
// could not be parsed.
type ReportMetadata struct {
	FactsCount       int  `json:"facts_count"`
	PredictionsCount int  `json:"predictions_count"`
	UnknownsCount    int  `json:"unknowns_count"`
	RelationsCount   int  `json:"relations_count"`
	Fallback         bool `json:"fallback,omitempty"`
}
