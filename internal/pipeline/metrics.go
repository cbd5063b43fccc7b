package pipeline

import (
	"context"
	"time"

	"github.com/mwierzba/factgraph/internal/metrics"
)

// WithMetrics attaches a collector; stage durations are recorded around
// each step. Returns the orchestrator for chaining at wiring time.
func (o *Orchestrator) WithMetrics(collector *metrics.Collector) *Orchestrator {
	o.collector = collector
	return o
}

func (o *Orchestrator) recordStage(stage string, start time.Time) {
	if o.collector != nil {
		o.collector.RecordTiming(metrics.OpStage(stage), time.Since(start))
	}
}

// InstrumentGenerator wraps a Generator so every call is timed under the
// llm_generate operation.
func InstrumentGenerator(gen Generator, collector *metrics.Collector) Generator {
	if collector == nil {
		return gen
	}
	return &timedGenerator{gen: gen, collector: collector}
}

type timedGenerator struct {
	gen       Generator
	collector *metrics.Collector
}

func (g *timedGenerator) GenerateWithSystem(ctx context.Context, language, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	out, err := g.gen.GenerateWithSystem(ctx, language, systemPrompt, userPrompt)
	g.collector.RecordTiming(metrics.OpLLMGenerate, time.Since(start))
	return out, err
}

func (g *timedGenerator) GenerateJSON(ctx context.Context, language, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	out, err := g.gen.GenerateJSON(ctx, language, systemPrompt, userPrompt)
	g.collector.RecordTiming(metrics.OpLLMGenerate, time.Since(start))
	return out, err
}

func (g *timedGenerator) GenerateJSONLong(ctx context.Context, language, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	start := time.Now()
	out, err := g.gen.GenerateJSONLong(ctx, language, systemPrompt, userPrompt, timeout)
	g.collector.RecordTiming(metrics.OpLLMGenerate, time.Since(start))
	return out, err
}

// InstrumentEmbedder wraps an Embedder so every call is timed under the
// embedding operation.
func InstrumentEmbedder(emb Embedder, collector *metrics.Collector) Embedder {
	if emb == nil || collector == nil {
		return emb
	}
	return &timedEmbedder{emb: emb, collector: collector}
}

type timedEmbedder struct {
	emb       Embedder
	collector *metrics.Collector
}

func (e *timedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := e.emb.Embed(ctx, text)
	e.collector.RecordTiming(metrics.OpEmbedding, time.Since(start))
	return out, err
}
