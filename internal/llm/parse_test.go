package llm

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		skip []string
		want []string
	}{
		{
			name: "header line dropped and bullets stripped",
			raw:  "Here are the extracted facts:\n- Fact A is long enough\n- Fact B is long enough",
			skip: FactSkipPhrases,
			want: []string{"Fact A is long enough", "Fact B is long enough"},
		},
		{
			name: "short fragments dropped",
			raw:  "- too short\n- this one is long enough to keep",
			skip: FactSkipPhrases,
			want: []string{"this one is long enough to keep"},
		},
		{
			name: "numbered list",
			raw:  "1. First numbered fact here\n2) Second numbered fact here",
			skip: FactSkipPhrases,
			want: []string{"First numbered fact here", "Second numbered fact here"},
		},
		{
			name: "star and dot bullets",
			raw:  "* Starred fact is long enough\n• Dotted fact is long enough",
			skip: FactSkipPhrases,
			want: []string{"Starred fact is long enough", "Dotted fact is long enough"},
		},
		{
			name: "polish no-predictions message dropped",
			raw:  "Brak predykcji w podanym tekście.",
			skip: PredictionSkipPhrases,
			want: nil,
		},
		{
			name: "empty response",
			raw:  "",
			skip: FactSkipPhrases,
			want: nil,
		},
		{
			name: "whitespace only",
			raw:  "\n\n   \n",
			skip: FactSkipPhrases,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLines(tt.raw, tt.skip)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSourcedPredictions(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		raw := `[{"prediction": "Exports will grow", "source_fact_ids": [1, 2]}]`
		got, ok := ParseSourcedPredictions(raw, 3)
		if !ok {
			t.Fatal("expected parse to succeed")
		}
		if len(got) != 1 || got[0].Prediction != "Exports will grow" {
			t.Fatalf("unexpected result: %+v", got)
		}
		if !reflect.DeepEqual(got[0].SourceFactIDs, []int{1, 2}) {
			t.Errorf("expected ids [1 2], got %v", got[0].SourceFactIDs)
		}
	})

	t.Run("array wrapped in prose and code fence", func(t *testing.T) {
		raw := "Sure! Here is the JSON:\n```json\n[{\"prediction\": \"Inflation will fall\", \"source_fact_ids\": [1]}]\n```\nLet me know if you need more."
		got, ok := ParseSourcedPredictions(raw, 2)
		if !ok {
			t.Fatal("expected parse to succeed")
		}
		if len(got) != 1 || got[0].Prediction != "Inflation will fall" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("out of range ids dropped", func(t *testing.T) {
		raw := `[{"prediction": "Budget deficit widens", "source_fact_ids": [0, 1, 7, -2]}]`
		got, ok := ParseSourcedPredictions(raw, 3)
		if !ok {
			t.Fatal("expected parse to succeed")
		}
		if !reflect.DeepEqual(got[0].SourceFactIDs, []int{0, 1}) {
			t.Errorf("expected in-range ids [0 1], got %v", got[0].SourceFactIDs)
		}
	})

	t.Run("empty prediction dropped", func(t *testing.T) {
		raw := `[{"prediction": "  ", "source_fact_ids": [0]}, {"prediction": "Real one", "source_fact_ids": [0]}]`
		got, ok := ParseSourcedPredictions(raw, 1)
		if !ok {
			t.Fatal("expected parse to succeed")
		}
		if len(got) != 1 || got[0].Prediction != "Real one" {
			t.Errorf("expected only the non-empty prediction, got %+v", got)
		}
	})

	t.Run("no json signals fallback", func(t *testing.T) {
		if _, ok := ParseSourcedPredictions("- just a bullet list\n- of predictions", 3); ok {
			t.Error("expected ok=false for non-JSON response")
		}
	})

	t.Run("malformed json signals fallback", func(t *testing.T) {
		if _, ok := ParseSourcedPredictions(`[{"prediction": }`, 3); ok {
			t.Error("expected ok=false for malformed JSON")
		}
	})
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("object in code fence", func(t *testing.T) {
		raw := "```json\n{\"summary\": \"All good\"}\n```"
		got, ok := ExtractJSONObject(raw)
		if !ok {
			t.Fatal("expected extraction to succeed")
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(got), &parsed); err != nil {
			t.Fatalf("extracted payload does not decode: %v", err)
		}
		if parsed["summary"] != "All good" {
			t.Errorf("unexpected payload: %v", parsed)
		}
	})

	t.Run("control characters inside strings scrubbed", func(t *testing.T) {
		raw := "{\"summary\": \"line one\nline two\"}"
		got, ok := ExtractJSONObject(raw)
		if !ok {
			t.Fatal("expected extraction to succeed")
		}
		if !json.Valid([]byte(got)) {
			t.Errorf("expected valid JSON after scrub, got %q", got)
		}
	})

	t.Run("truncated object repaired", func(t *testing.T) {
		raw := `{"summary": "Analysis of the sit`
		got, ok := ExtractJSONObject(raw)
		if !ok {
			t.Fatal("expected repair to succeed")
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(got), &parsed); err != nil {
			t.Fatalf("repaired payload does not decode: %v", err)
		}
		if _, present := parsed["summary"]; !present {
			t.Errorf("expected summary key to survive repair, got %v", parsed)
		}
	})

	t.Run("truncated after comma repaired", func(t *testing.T) {
		raw := `{"summary": "done", "recommendations": ["first",`
		got, ok := ExtractJSONObject(raw)
		if !ok {
			t.Fatal("expected repair to succeed")
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(got), &parsed); err != nil {
			t.Fatalf("repaired payload does not decode: %v", err)
		}
	})

	t.Run("no object present", func(t *testing.T) {
		if _, ok := ExtractJSONObject("no json here at all"); ok {
			t.Error("expected ok=false")
		}
	})
}

func TestExtractJSONArray(t *testing.T) {
	t.Run("skips bracketed prose before the array", func(t *testing.T) {
		raw := `[note] the answer follows: [{"prediction": "a real one", "source_fact_ids": []}]`
		got, ok := ExtractJSONArray(raw)
		if !ok {
			t.Fatal("expected extraction to succeed")
		}
		var parsed []map[string]any
		if err := json.Unmarshal([]byte(got), &parsed); err != nil {
			t.Fatalf("extracted payload does not decode: %v", err)
		}
		if len(parsed) != 1 {
			t.Errorf("expected one element, got %v", parsed)
		}
	})

	t.Run("nested arrays stay balanced", func(t *testing.T) {
		raw := `[[1, 2], [3, 4]]`
		got, ok := ExtractJSONArray(raw)
		if !ok {
			t.Fatal("expected extraction to succeed")
		}
		if got != raw {
			t.Errorf("expected whole array, got %q", got)
		}
	})
}
