package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/mwierzba/factgraph/internal/convert"
	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeStore is an in-memory Store for exercising the orchestrator
// without a database.
type fakeStore struct {
	nextID    int
	jobs      map[string]*models.Job
	items     []models.Item
	steps     []*models.Step
	facts     []models.Fact
	corpus    []models.CorpusFact
	nodes     []models.Node
	relations []fakeRelation
}

type fakeRelation struct {
	from, to   string
	relType    string
	confidence float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*models.Job)}
}

func (s *fakeStore) id(table string) surrealmodels.RecordID {
	s.nextID++
	return models.NewRecordID(table, fmt.Sprintf("%s%d", table, s.nextID))
}

func (s *fakeStore) CreateJobWithItems(_ context.Context, jobUUID string, items []db.ItemInsert) error {
	if _, exists := s.jobs[jobUUID]; exists {
		return db.ErrTransactionConflict
	}
	job := &models.Job{ID: s.id("job"), UUID: jobUUID, Status: models.JobStatusPending, CreatedAt: time.Now()}
	s.jobs[jobUUID] = job
	for _, in := range items {
		s.items = append(s.items, models.Item{
			ID:       s.id("item"),
			Job:      job.ID,
			Type:     in.Type,
			Content:  in.Content,
			Wage:     in.Wage,
			Status:   models.ItemStatusPending,
			Position: in.Position,
		})
	}
	return nil
}

func (s *fakeStore) GetJobByUUID(_ context.Context, jobUUID string) (*models.Job, error) {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (s *fakeStore) GetJobItems(_ context.Context, jobUUID string) ([]models.Item, error) {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return nil, nil
	}
	var out []models.Item
	for _, it := range s.items {
		if it.Job == job.ID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateJobStatus(_ context.Context, jobUUID string, status models.JobStatus, errorMessage *string) error {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return db.ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errorMessage
	return nil
}

func (s *fakeStore) SetJobReport(_ context.Context, jobUUID string, report models.Report) error {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return db.ErrNotFound
	}
	job.Report = &report
	return nil
}

func (s *fakeStore) UpdateItemStatus(_ context.Context, itemID surrealmodels.RecordID, status models.ItemStatus, processedContent, errorMessage *string) error {
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Status = status
			if processedContent != nil {
				s.items[i].ProcessedContent = processedContent
			}
			s.items[i].ErrorMessage = errorMessage
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) CreateStep(_ context.Context, jobID surrealmodels.RecordID, seq int, stepType models.StepType, input map[string]any) (*models.Step, error) {
	step := &models.Step{
		ID:     s.id("step"),
		Job:    jobID,
		Seq:    seq,
		Type:   stepType,
		Status: models.StepStatusProcessing,
		Input:  input,
	}
	s.steps = append(s.steps, step)
	return step, nil
}

func (s *fakeStore) CompleteStep(_ context.Context, stepID surrealmodels.RecordID, status models.StepStatus, output map[string]any, errorMessage *string) error {
	for _, step := range s.steps {
		if step.ID == stepID {
			step.Status = status
			step.Output = output
			step.ErrorMessage = errorMessage
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) GetJobSteps(_ context.Context, jobUUID string) ([]models.Step, error) {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return nil, nil
	}
	var out []models.Step
	for _, step := range s.steps {
		if step.Job == job.ID {
			out = append(out, *step)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateFacts(_ context.Context, jobID, stepID surrealmodels.RecordID, inserts []db.FactInsert) ([]models.Fact, error) {
	var created []models.Fact
	for _, in := range inserts {
		fact := models.Fact{
			ID:            s.id("fact"),
			Job:           jobID,
			Step:          stepID,
			Item:          in.Item,
			Text:          in.Text,
			SourceType:    in.SourceType,
			SourceExcerpt: in.SourceExcerpt,
			Confidence:    models.DefaultFactConfidence,
			Language:      in.Language,
		}
		s.facts = append(s.facts, fact)
		created = append(created, fact)
	}
	return created, nil
}

func (s *fakeStore) GetFactsByJob(_ context.Context, jobUUID string) ([]models.Fact, error) {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return nil, nil
	}
	var out []models.Fact
	for _, f := range s.facts {
		if f.Job == job.ID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkFactValidated(_ context.Context, factID surrealmodels.RecordID, confidence float64) error {
	for i := range s.facts {
		if s.facts[i].ID == factID {
			s.facts[i].Validated = true
			s.facts[i].Confidence = confidence
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) PromoteFact(_ context.Context, fact models.Fact, embedding []float32) (*models.CorpusFact, error) {
	cf := models.CorpusFact{ID: s.id("corpus_fact"), Text: fact.Text, Language: fact.Language, Embedding: embedding}
	s.corpus = append(s.corpus, cf)
	return &cf, nil
}

func (s *fakeStore) CreateNode(_ context.Context, jobID *surrealmodels.RecordID, kind models.NodeKind, value string, metadata map[string]any) (*models.Node, error) {
	node := models.Node{ID: s.id("node"), Job: jobID, Kind: kind, Value: value, Metadata: metadata}
	s.nodes = append(s.nodes, node)
	return &node, nil
}

func (s *fakeStore) CreateRelation(_ context.Context, fromID, toID string, relType string, confidence float64, _ map[string]any) error {
	if s.findNode(fromID) == nil || s.findNode(toID) == nil {
		return db.ErrNodeNotFound
	}
	s.relations = append(s.relations, fakeRelation{from: fromID, to: toID, relType: relType, confidence: confidence})
	return nil
}

func (s *fakeStore) GetNodesByJob(_ context.Context, jobUUID string, kind models.NodeKind) ([]models.Node, error) {
	job, ok := s.jobs[jobUUID]
	if !ok {
		return nil, nil
	}
	var out []models.Node
	for _, n := range s.nodes {
		if n.Job == nil || *n.Job != job.ID {
			continue
		}
		if kind != "" && n.Kind != kind {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) GetNodeRelations(_ context.Context, nodeID string, direction models.RelationDirection) ([]models.Relation, error) {
	out := []models.Relation{}
	for _, rel := range s.relations {
		var farID string
		switch {
		case rel.from == nodeID && direction != models.DirectionIncoming:
			farID = rel.to
		case rel.to == nodeID && direction != models.DirectionOutgoing:
			farID = rel.from
		default:
			continue
		}
		relation := models.Relation{RelType: rel.relType, Confidence: rel.confidence}
		if far := s.findNode(farID); far != nil {
			relation.RelatedKind = &far.Kind
			relation.RelatedValue = &far.Value
		}
		out = append(out, relation)
	}
	return out, nil
}

func (s *fakeStore) findNode(nodeID string) *models.Node {
	for i := range s.nodes {
		if id, err := models.RecordIDString(s.nodes[i].ID); err == nil && id == nodeID {
			return &s.nodes[i]
		}
	}
	return nil
}

// fakeGenerator replays scripted responses per method, in call order.
type fakeGenerator struct {
	withSystem    []string
	json          []string
	jsonLong      []string
	withSystemErr error
	jsonErr       error
	jsonLongErr   error
}

func pop(queue *[]string) string {
	if len(*queue) == 0 {
		return ""
	}
	head := (*queue)[0]
	*queue = (*queue)[1:]
	return head
}

func (g *fakeGenerator) GenerateWithSystem(_ context.Context, _, _, _ string) (string, error) {
	if g.withSystemErr != nil {
		return "", g.withSystemErr
	}
	return pop(&g.withSystem), nil
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, _, _, _ string) (string, error) {
	if g.jsonErr != nil {
		return "", g.jsonErr
	}
	return pop(&g.json), nil
}

func (g *fakeGenerator) GenerateJSONLong(_ context.Context, _, _, _ string, _ time.Duration) (string, error) {
	if g.jsonLongErr != nil {
		return "", g.jsonLongErr
	}
	return pop(&g.jsonLong), nil
}

// fakeConverter passes text through and fails on demand for specific
// content.
type fakeConverter struct {
	failContent string
}

func (c *fakeConverter) Convert(_ context.Context, item models.Item) (convert.Converted, error) {
	if c.failContent != "" && item.Content == c.failContent {
		return convert.Converted{}, errors.New("conversion exploded")
	}
	return convert.Converted{Content: item.Content, SourceType: string(item.Type)}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxFactsPerItem:        20,
		MaxPredictions:         30,
		MaxUnknowns:            20,
		MaxReasoningIterations: 5,
		ReportTimeout:          time.Second,
	}
}

func newTestOrchestrator(store *fakeStore, gen *fakeGenerator, conv convert.Converter) *Orchestrator {
	if conv == nil {
		conv = &fakeConverter{}
	}
	return New(store, gen, nil, conv, testConfig(), nil)
}

func allStagesOptions() Options {
	return Options{
		Language:             "en",
		EnableFactExtraction: true,
		EnableValidation:     true,
		EnableReasoning:      true,
		EnableScenarios:      true,
	}
}

func TestSubmitCreatesPendingJob(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeGenerator{}, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Atlantis raised the minimum wage to 4200."},
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobUUID)

	job := store.jobs[jobUUID]
	require.NotNil(t, job)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.Len(t, store.items, 1)
	assert.Equal(t, models.ItemStatusPending, store.items[0].Status)
}

func TestSubmitRejectsInvalidBatch(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeGenerator{}, nil)

	_, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "link", Content: "not-a-url"},
	})
	require.Error(t, err)
	assert.Empty(t, store.jobs)
	assert.Empty(t, store.items)
}

func TestRunUnknownJob(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeGenerator{}, nil)

	err := o.Run(context.Background(), "no-such-job", allStagesOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRunFullPipeline(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{
			// Fact extraction for the single item.
			"Here are the facts:\n- Atlantis has 28 million people\n- Atlantis increased defence spending by 12 percent",
			// Unknown extraction.
			"- It is unclear how the spending increase will be financed",
		},
		json: []string{
			`[{"prediction": "Atlantis will expand its military within two years", "source_fact_ids": [1]}]`,
		},
		jsonLong: []string{
			`{"summary": "Atlantis is rearming.", "positive_scenario": "Deterrence improves regional stability.",
			  "negative_scenario": "An arms race develops.", "recommendations": "Monitor procurement contracts closely."}`,
		},
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Census and budget summary for Atlantis."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, allStagesOptions()))

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, job.ErrorMessage)

	// Two facts, validated and promoted.
	require.Len(t, store.facts, 2)
	for _, f := range store.facts {
		assert.True(t, f.Validated)
		assert.Equal(t, validatedConfidence, f.Confidence)
	}
	assert.Len(t, store.corpus, 2)

	// Graph: 2 fact nodes, 1 prediction, 1 missing info.
	kinds := map[models.NodeKind]int{}
	for _, n := range store.nodes {
		kinds[n.Kind]++
	}
	assert.Equal(t, 2, kinds[models.NodeKindFact])
	assert.Equal(t, 1, kinds[models.NodeKindPrediction])
	assert.Equal(t, 1, kinds[models.NodeKindMissingInfo])

	// The sourced prediction links to the second fact only.
	require.Len(t, store.relations, 1)
	assert.Equal(t, models.RelationDerivedFrom, store.relations[0].relType)
	factNodes, _ := store.GetNodesByJob(context.Background(), jobUUID, models.NodeKindFact)
	wantTarget := models.MustRecordIDString(factNodes[1].ID)
	assert.Equal(t, wantTarget, store.relations[0].to)

	// Report parsed from the model, not the fallback.
	require.NotNil(t, job.Report)
	assert.Equal(t, "Atlantis is rearming.", job.Report.Summary)
	assert.False(t, job.Report.Metadata.Fallback)
	assert.Equal(t, 2, job.Report.Metadata.FactsCount)
	assert.Equal(t, 1, job.Report.Metadata.PredictionsCount)

	// Step ledger: four stages in order, all terminal.
	require.Len(t, store.steps, 4)
	wantTypes := []models.StepType{models.StepTypeExtraction, models.StepTypeValidation, models.StepTypeReasoning, models.StepTypeScenario}
	for i, step := range store.steps {
		assert.Equal(t, i+1, step.Seq)
		assert.Equal(t, wantTypes[i], step.Type)
		assert.Equal(t, models.StepStatusCompleted, step.Status)
	}

	// The item finished with its converted text stored.
	assert.Equal(t, models.ItemStatusCompleted, store.items[0].Status)
	require.NotNil(t, store.items[0].ProcessedContent)
	assert.Equal(t, "Census and budget summary for Atlantis.", *store.items[0].ProcessedContent)
}

func TestRunItemConversionFailureIsSkipped(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{"- Atlantis exports copper to three neighboring states"},
	}
	o := newTestOrchestrator(store, gen, &fakeConverter{failContent: "broken item"})

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Trade report for Atlantis."},
		{Type: "text", Content: "broken item"},
	})
	require.NoError(t, err)

	require.NoError(t, o.Run(context.Background(), jobUUID, Options{Language: "en", EnableFactExtraction: true}))

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	assert.Equal(t, models.ItemStatusCompleted, store.items[0].Status)
	assert.Equal(t, models.ItemStatusFailed, store.items[1].Status)
	require.NotNil(t, store.items[1].ErrorMessage)
	assert.Contains(t, *store.items[1].ErrorMessage, "conversion exploded")

	require.Len(t, store.facts, 1)
	require.Len(t, store.steps, 1)
	assert.Equal(t, models.StepStatusCompleted, store.steps[0].Status)
	assert.Equal(t, 1, store.steps[0].Output["failed_items"])
}

func TestRunFatalAPIErrorFailsJob(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystemErr: fmt.Errorf("%w: credit balance is too low", llm.ErrFatalAPI),
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Any content at all here."},
	})
	require.NoError(t, err)

	runErr := o.Run(context.Background(), jobUUID, Options{Language: "en", EnableFactExtraction: true})
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, llm.ErrFatalAPI)

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "credit balance")

	require.Len(t, store.steps, 1)
	assert.Equal(t, models.StepStatusFailed, store.steps[0].Status)
	require.NotNil(t, store.steps[0].ErrorMessage)
}

func TestRunUnsourcedPredictionFallback(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{
			"- Fact one about the Atlantis economy\n- Fact two about the Atlantis military\n- Fact three about Atlantis diplomacy\n- Fact four about Atlantis infrastructure",
			// Fallback prediction lines after the sourced JSON fails.
			"- The economy will likely grow next quarter",
			// Unknowns.
			"- No information about central bank reserves",
		},
		json: []string{"I cannot produce JSON for that."},
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Quarterly situation overview."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:             "en",
		EnableFactExtraction: true,
		EnableReasoning:      true,
	}))

	// The fallback links the prediction to the first three fact nodes.
	assert.Len(t, store.relations, fallbackSourceLinks)
	for _, rel := range store.relations {
		assert.Equal(t, models.RelationDerivedFrom, rel.relType)
		assert.Equal(t, fallbackPredictionConfidence, rel.confidence)
	}

	reasoningStep := store.steps[len(store.steps)-1]
	assert.Equal(t, models.StepTypeReasoning, reasoningStep.Type)
	assert.Equal(t, false, reasoningStep.Output["sourced"])
}

func TestRunFallbackReport(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{"- A single extracted fact about Atlantis"},
		jsonLong:   []string{"total garbage, no json here"},
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Short briefing note."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:             "en",
		EnableFactExtraction: true,
		EnableScenarios:      true,
	}))

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Report)
	assert.True(t, job.Report.Metadata.Fallback)
	assert.Contains(t, job.Report.Summary, "1 facts")
	assert.NotEmpty(t, job.Report.Recommendations)
}

func TestRunRejectsTerminalJob(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeGenerator{}, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "One more content item."},
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateJobStatus(context.Background(), jobUUID, models.JobStatusCompleted, nil))

	runErr := o.Run(context.Background(), jobUUID, allStagesOptions())
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "already completed")
}

func TestRunRetriesFailedJob(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystemErr: fmt.Errorf("%w: credit balance is too low", llm.ErrFatalAPI),
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Budget summary for Atlantis."},
	})
	require.NoError(t, err)

	opts := Options{Language: "en", EnableFactExtraction: true}
	require.Error(t, o.Run(context.Background(), jobUUID, opts))
	require.Equal(t, models.JobStatusFailed, store.jobs[jobUUID].Status)
	require.Len(t, store.steps, 1)

	// The provider recovers; the whole job runs again.
	gen.withSystemErr = nil
	gen.withSystem = []string{"- Atlantis passed a balanced budget"}
	require.NoError(t, o.Run(context.Background(), jobUUID, opts))

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, job.ErrorMessage)
	require.Len(t, store.facts, 1)

	// The retry's steps extend the ledger past the first attempt.
	require.Len(t, store.steps, 2)
	assert.Equal(t, models.StepStatusFailed, store.steps[0].Status)
	assert.Equal(t, 1, store.steps[0].Seq)
	assert.Equal(t, models.StepStatusCompleted, store.steps[1].Status)
	assert.Equal(t, 2, store.steps[1].Seq)
}

func TestRunZeroFactsRecordsSkippedSteps(t *testing.T) {
	store := newFakeStore()
	// The model finds nothing; every queue replays empty responses.
	gen := &fakeGenerator{}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "A page with nothing factual on it."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, allStagesOptions()))

	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Empty(t, store.facts)

	// Every enabled stage still leaves a ledger row; the stages with
	// nothing to work on are marked skipped, not silently absent.
	require.Len(t, store.steps, 4)
	wantTypes := []models.StepType{models.StepTypeExtraction, models.StepTypeValidation, models.StepTypeReasoning, models.StepTypeScenario}
	wantStatus := []models.StepStatus{models.StepStatusCompleted, models.StepStatusSkipped, models.StepStatusSkipped, models.StepStatusCompleted}
	for i, step := range store.steps {
		assert.Equal(t, i+1, step.Seq)
		assert.Equal(t, wantTypes[i], step.Type)
		assert.Equal(t, wantStatus[i], step.Status)
	}
	assert.Equal(t, 0, store.steps[1].Output["validated"])
	assert.Equal(t, 0, store.steps[2].Output["predictions"])

	// The fallback report still gets written.
	require.NotNil(t, job.Report)
	assert.True(t, job.Report.Metadata.Fallback)
}

func TestRunScrapeOnlyCompletesItems(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeGenerator{}, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "link", Content: "https://news.example.com/article"},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:       "en",
		EnableScraping: true,
	}))

	// With no extraction to follow, the scrape leaves the item terminal.
	job := store.jobs[jobUUID]
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, models.ItemStatusCompleted, store.items[0].Status)
	require.NotNil(t, store.items[0].ProcessedContent)
	assert.Equal(t, "https://news.example.com/article", *store.items[0].ProcessedContent)
}

func TestRunToolLoop(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{"- Atlantis signed a trade agreement with its eastern neighbor"},
		json: []string{
			`{"action": "tool_call", "tool_calls": [
				{"name": "create_prediction_node", "arguments": {"content": "Trade volume will rise", "confidence_level": 0.8, "timeframe": "1 year"}},
				{"name": "create_missing_info_node", "arguments": {"content": "Tariff schedule details", "priority": "high"}}
			]}`,
			`{"action": "finish"}`,
		},
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Diplomatic cable summary."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:             "en",
		EnableFactExtraction: true,
		EnableReasoning:      true,
		UseToolLoop:          true,
	}))

	kinds := map[models.NodeKind]int{}
	for _, n := range store.nodes {
		kinds[n.Kind]++
	}
	assert.Equal(t, 1, kinds[models.NodeKindPrediction])
	assert.Equal(t, 1, kinds[models.NodeKindMissingInfo])

	predictions, _ := store.GetNodesByJob(context.Background(), jobUUID, models.NodeKindPrediction)
	require.Len(t, predictions, 1)
	assert.Equal(t, "1 year", predictions[0].Metadata["timeframe"])

	reasoningStep := store.steps[len(store.steps)-1]
	assert.Equal(t, models.StepStatusCompleted, reasoningStep.Status)
	assert.Equal(t, 2, reasoningStep.Output["iterations"])
}

func TestRunToolLoopIterationCap(t *testing.T) {
	store := newFakeStore()
	// Every response asks for another (empty-argument, rejected) call,
	// never finishing.
	looping := `{"action": "tool_call", "tool_calls": [{"name": "create_fact_node", "arguments": {}}]}`
	gen := &fakeGenerator{
		withSystem: []string{"- Some foundational fact about Atlantis"},
		json:       []string{looping, looping, looping, looping, looping, looping, looping},
	}
	o := newTestOrchestrator(store, gen, nil)

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "text", Content: "Content that keeps the model busy."},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:             "en",
		EnableFactExtraction: true,
		EnableReasoning:      true,
		UseToolLoop:          true,
	}))

	reasoningStep := store.steps[len(store.steps)-1]
	assert.Equal(t, models.StepStatusCompleted, reasoningStep.Status)
	assert.Equal(t, testConfig().MaxReasoningIterations, reasoningStep.Output["iterations"])
}

func TestScrapeStage(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		withSystem: []string{"- Fact from the scraped article"},
	}
	o := newTestOrchestrator(store, gen, &fakeConverter{failContent: "https://dead.example.com/page"})

	jobUUID, err := o.Submit(context.Background(), []models.ItemSpec{
		{Type: "link", Content: "https://news.example.com/article"},
		{Type: "link", Content: "https://dead.example.com/page"},
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), jobUUID, Options{
		Language:             "en",
		EnableScraping:       true,
		EnableFactExtraction: true,
	}))

	require.Len(t, store.steps, 2)
	assert.Equal(t, models.StepTypeScraping, store.steps[0].Type)
	assert.Equal(t, models.StepStatusCompleted, store.steps[0].Status)
	assert.Equal(t, 1, store.steps[0].Output["scraped"])
	assert.Equal(t, 1, store.steps[0].Output["failed"])

	// The healthy link got its content stored and then produced a fact;
	// the dead one stayed failed through extraction.
	require.NotNil(t, store.items[0].ProcessedContent)
	assert.Equal(t, models.ItemStatusCompleted, store.items[0].Status)
	assert.Equal(t, models.ItemStatusFailed, store.items[1].Status)
	require.Len(t, store.facts, 1)
	assert.Contains(t, strings.ToLower(store.facts[0].Text), "scraped article")
}
