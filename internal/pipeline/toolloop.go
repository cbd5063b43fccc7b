package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mwierzba/factgraph/internal/db"
	"github.com/mwierzba/factgraph/internal/llm"
	"github.com/mwierzba/factgraph/internal/models"
)

// toolAction is the JSON envelope the model replies with in tool-loop
// reasoning: either another batch of tool calls or a finish signal.
type toolAction struct {
	Action    string     `json:"action"`
	ToolCalls []toolCall `json:"tool_calls"`
}

type toolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

const (
	actionToolCall = "tool_call"
	actionFinish   = "finish"
)

// runToolLoop drives the iterative reasoning conversation. Each turn the
// model emits tool calls that create graph nodes and relations; results
// (including new node IDs) are fed back so later calls can reference
// them. The loop ends on a finish action or after the configured
// iteration cap.
func (o *Orchestrator) runToolLoop(ctx context.Context, run *jobRun, factTexts, factNodeIDs []string) (map[string]any, error) {
	system := o.prompts.ReasoningSystem()

	var transcript strings.Builder
	transcript.WriteString(o.prompts.ReasoningUser(factTexts))

	counts := map[string]any{"predictions": 0, "unknowns": 0, "relations": 0, "iterations": 0}
	state := &toolState{run: run, factNodeIDs: factNodeIDs, counts: counts}

	for iteration := 1; iteration <= o.cfg.MaxReasoningIterations; iteration++ {
		counts["iterations"] = iteration

		raw, err := o.model.GenerateJSON(ctx, run.language, system, transcript.String())
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return counts, err
			}
			o.log.Warn("tool loop generation failed, finishing", "job_uuid", run.job.UUID, "iteration", iteration, "error", err)
			return counts, nil
		}

		action, ok := parseToolAction(raw)
		if !ok {
			transcript.WriteString("\n\nYour last response was not valid JSON. Respond with a single JSON object using the action protocol.")
			continue
		}

		if action.Action == actionFinish || len(action.ToolCalls) == 0 {
			return counts, nil
		}

		transcript.WriteString("\n\nTool results:")
		for _, call := range action.ToolCalls {
			result, err := o.executeTool(ctx, state, call)
			if err != nil {
				return counts, err
			}
			transcript.WriteString("\n- " + call.Name + ": " + result)

			if call.Name == "finish_analysis" {
				return counts, nil
			}
		}
	}

	o.log.Warn("tool loop hit iteration cap", "job_uuid", run.job.UUID, "cap", o.cfg.MaxReasoningIterations)
	return counts, nil
}

func parseToolAction(raw string) (toolAction, bool) {
	var action toolAction
	obj, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return action, false
	}
	if err := json.Unmarshal([]byte(obj), &action); err != nil {
		return action, false
	}
	return action, action.Action == actionToolCall || action.Action == actionFinish
}

// toolState tracks node IDs created during one tool loop, so the model
// can wire relations between them.
type toolState struct {
	run         *jobRun
	factNodeIDs []string
	counts      map[string]any
}

// executeTool applies one tool call to the graph. Bad arguments produce
// an error string fed back to the model, not a stage failure; only
// persistence errors abort.
func (o *Orchestrator) executeTool(ctx context.Context, state *toolState, call toolCall) (string, error) {
	switch call.Name {
	case "create_fact_node":
		return o.toolCreateNode(ctx, state, call, models.NodeKindFact, "importance", "facts")
	case "create_prediction_node":
		return o.toolCreateNode(ctx, state, call, models.NodeKindPrediction, "confidence_level", "predictions")
	case "create_missing_info_node":
		return o.toolCreateNode(ctx, state, call, models.NodeKindMissingInfo, "priority", "unknowns")
	case "create_relation":
		return o.toolCreateRelation(ctx, state, call)
	case "finish_analysis":
		return "analysis finished", nil
	default:
		return fmt.Sprintf("error: unknown tool %q", call.Name), nil
	}
}

func (o *Orchestrator) toolCreateNode(ctx context.Context, state *toolState, call toolCall, kind models.NodeKind, metaKey, countKey string) (string, error) {
	content, _ := call.Arguments["content"].(string)
	if strings.TrimSpace(content) == "" {
		return "error: content is required", nil
	}

	metadata := map[string]any{"language": state.run.language}
	if v, ok := call.Arguments[metaKey]; ok {
		metadata[metaKey] = v
	}
	for _, key := range []string{"timeframe", "needed_for", "reasoning"} {
		if v, ok := call.Arguments[key]; ok {
			metadata[key] = v
		}
	}

	jobID := state.run.job.ID
	node, err := o.store.CreateNode(ctx, &jobID, kind, content, metadata)
	if err != nil {
		return "", err
	}

	nodeID, err := models.RecordIDString(node.ID)
	if err != nil {
		return "", err
	}

	if n, ok := state.counts[countKey].(int); ok {
		state.counts[countKey] = n + 1
	}
	return fmt.Sprintf("created %s node with id %q", kind, nodeID), nil
}

func (o *Orchestrator) toolCreateRelation(ctx context.Context, state *toolState, call toolCall) (string, error) {
	fromID, _ := call.Arguments["from_node_id"].(string)
	toID, _ := call.Arguments["to_node_id"].(string)
	relType, _ := call.Arguments["relation_type"].(string)
	if fromID == "" || toID == "" || relType == "" {
		return "error: from_node_id, to_node_id and relation_type are required", nil
	}

	confidence := sourcedPredictionConfidence
	if v, ok := call.Arguments["confidence"].(float64); ok {
		confidence = v
	}

	var metadata map[string]any
	if reasoning, ok := call.Arguments["reasoning"].(string); ok && reasoning != "" {
		metadata = map[string]any{"reasoning": reasoning}
	}

	err := o.store.CreateRelation(ctx, stripNodeTable(fromID), stripNodeTable(toID), relType, confidence, metadata)
	if err != nil {
		// A dangling endpoint is the model's mistake: report it back
		// instead of failing the stage.
		if errors.Is(err, db.ErrNodeNotFound) {
			return fmt.Sprintf("error: %v", err), nil
		}
		return "", err
	}

	if n, ok := state.counts["relations"].(int); ok {
		state.counts["relations"] = n + 1
	}
	return fmt.Sprintf("created relation %s -> %s (%s)", fromID, toID, relType), nil
}

// stripNodeTable accepts either a bare node ID or the record form
// "node:id" the model sometimes echoes back.
func stripNodeTable(id string) string {
	if rest, ok := strings.CutPrefix(id, "node:"); ok {
		return rest
	}
	return id
}
