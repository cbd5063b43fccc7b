package llm

import (
	"fmt"
	"strings"
)

// Prompt caps keep report inputs inside the model's context window.
const (
	maxReportFacts       = 50
	maxReportPredictions = 30
	maxReportUnknowns    = 20
	maxReportRelations   = 30
)

// Prompts builds all stage prompts around one shared analysis context
// block describing the analyzed country.
type Prompts struct {
	context string
}

// NewPrompts creates a prompt builder with the given analysis context.
func NewPrompts(analysisContext string) *Prompts {
	return &Prompts{context: analysisContext}
}

// FactExtraction builds the system and user prompts for extracting facts
// from one item's text.
func (p *Prompts) FactExtraction(language, text string) (string, string) {
	if language == LanguagePolish {
		system := fmt.Sprintf("Jesteś ekspertem analitykiem dla hipotetycznego państwa Atlantis. %s\n\n"+
			"Wyodrębnij kluczowe fakty z tekstu, które są istotne dla Atlantis. Zwróć tylko fakty, jeden na linię.", p.context)
		user := fmt.Sprintf("Wyodrębnij kluczowe fakty z następującego tekstu. Zwróć TYLKO fakty, jeden na linię.\n"+
			"NIE dodawaj żadnych tytułów, nagłówków ani fraz takich jak \"Oto fakty:\", \"Wyodrębnione fakty:\", itp.\n"+
			"Po prostu wypisz same fakty.\n\n%s", text)
		return system, user
	}

	system := fmt.Sprintf("You are an expert analyst for the hypothetical country Atlantis. %s\n\n"+
		"Extract key facts from text that are relevant to Atlantis. Return only the facts, one per line.", p.context)
	user := fmt.Sprintf("Extract key facts from the following text. Return ONLY the facts, one per line.\n"+
		"Do NOT include any titles, headers, or phrases like \"Here are the extracted facts:\", \"Extracted facts:\", etc.\n"+
		"Just output the raw facts directly.\n\n%s", text)
	return system, user
}

// PredictionExtraction builds the prompts for the unsourced reasoning
// mode: a flat bullet list of predictions derived from the facts.
func (p *Prompts) PredictionExtraction(language, factsText string) (string, string) {
	if language == LanguagePolish {
		system := fmt.Sprintf("Jesteś ekspertem analitykiem dla hipotetycznego państwa Atlantis. %s\n\n"+
			"Wyprowadź predykcje z faktów. Zwróć TYLKO predykcje dotyczące Atlantis.\n"+
			"Format:\n- predykcja 1\n- predykcja 2\n- predykcja 3", p.context)
		user := fmt.Sprintf("Wyprowadź predykcje z następujących faktów, istotne dla Atlantis.\n"+
			"Zwróć TYLKO predykcje jako listę punktowaną. NIE dodawaj tytułów, nagłówków ani fraz takich jak\n"+
			"\"Oto predykcje:\", \"Brak predykcji\", itp.\n"+
			"Jeśli nie ma predykcji, zwróć pustą odpowiedź.\n\n%s", factsText)
		return system, user
	}

	system := fmt.Sprintf("You are an expert analyst for the hypothetical country Atlantis. %s\n\n"+
		"Derive predictions from the facts. Return ONLY predictions related to Atlantis.\n"+
		"Format:\n- prediction 1\n- prediction 2\n- prediction 3", p.context)
	user := fmt.Sprintf("Derive predictions from the following facts that are relevant to Atlantis.\n"+
		"Return ONLY the predictions as a bullet list. Do NOT include any titles, headers, or phrases like "+
		"\"Here are the predictions:\", \"There are no predictions\", etc.\n"+
		"If there are no predictions, return nothing (empty response).\n\n%s", factsText)
	return system, user
}

// SourcedPredictions builds the prompts for the structured reasoning
// mode. Facts are numbered from 0 and the model must cite them.
func (p *Prompts) SourcedPredictions(language string, facts []string) (string, string) {
	numbered := make([]string, len(facts))
	for i, f := range facts {
		numbered[i] = fmt.Sprintf("%d. %s", i, f)
	}
	factsText := strings.Join(numbered, "\n")

	if language == LanguagePolish {
		system := fmt.Sprintf("Jesteś ekspertem analitykiem dla hipotetycznego państwa Atlantis. %s\n\n"+
			"Odpowiadaj wyłącznie poprawnym JSON-em.", p.context)
		user := fmt.Sprintf("Na podstawie ponumerowanych faktów wyprowadź predykcje dla Atlantis.\n"+
			"Zwróć tablicę JSON obiektów o strukturze:\n"+
			`[{"prediction": "treść predykcji", "source_fact_ids": [0, 2]}]`+"\n"+
			"source_fact_ids to numery faktów, z których wynika predykcja.\n"+
			"Odpowiedz TYLKO tablicą JSON, bez dodatkowego tekstu.\n\nFAKTY:\n%s", factsText)
		return system, user
	}

	system := fmt.Sprintf("You are an expert analyst for the hypothetical country Atlantis. %s\n\n"+
		"Reply with valid JSON only.", p.context)
	user := fmt.Sprintf("Based on the numbered facts, derive predictions for Atlantis.\n"+
		"Return a JSON array of objects with this structure:\n"+
		`[{"prediction": "prediction text", "source_fact_ids": [0, 2]}]`+"\n"+
		"source_fact_ids are the numbers of the facts the prediction is derived from.\n"+
		"Reply with ONLY the JSON array, no additional text.\n\nFACTS:\n%s", factsText)
	return system, user
}

// UnknownExtraction builds the prompts for identifying missing
// information given the accumulated facts.
func (p *Prompts) UnknownExtraction(language, factsText string) (string, string) {
	if language == LanguagePolish {
		system := fmt.Sprintf("Jesteś ekspertem analitykiem dla hipotetycznego państwa Atlantis. %s\n\n"+
			"Wskaż brakujące informacje potrzebne do pełnej analizy. Zwróć tylko braki, jeden na linię.", p.context)
		user := fmt.Sprintf("Na podstawie następujących faktów wskaż kluczowe brakujące informacje, "+
			"których potrzebuje analityk, aby dokończyć analizę dla Atlantis.\n"+
			"Zwróć TYLKO braki jako listę punktowaną, bez tytułów i nagłówków.\n\n%s", factsText)
		return system, user
	}

	system := fmt.Sprintf("You are an expert analyst for the hypothetical country Atlantis. %s\n\n"+
		"Identify missing information needed for a complete analysis. Return only the gaps, one per line.", p.context)
	user := fmt.Sprintf("Based on the following facts, identify the key missing pieces of information "+
		"an analyst would need to complete the analysis for Atlantis.\n"+
		"Return ONLY the gaps as a bullet list, no titles or headers.\n\n%s", factsText)
	return system, user
}

// ReasoningSystem returns the system prompt for the tool-calling
// reasoning loop.
func (p *Prompts) ReasoningSystem() string {
	return fmt.Sprintf(`You are a strategic analysis AI for government decision-making. %s

Your task is to analyze extracted facts and build a knowledge graph by:
1. Identifying relevant facts for government strategic analysis
2. Creating predictions based on facts
3. Identifying missing information needed for complete analysis
4. Building relations between nodes (facts, predictions, missing info)

IMPORTANT RULES:
- Only create nodes for facts that are relevant to government/state strategic planning
- Ignore trivial or irrelevant facts
- Create predictions when facts suggest future outcomes
- Identify critical missing information when facts create gaps in understanding
- Build relations to show causality and dependencies
- Use proper relation types: derived_from, supports, contradicts, requires, suggests
- When done, call finish_analysis

Think step by step and be thorough.`, p.context)
}

// ReasoningUser returns the opening user message for the reasoning loop.
func (p *Prompts) ReasoningUser(facts []string) string {
	bullets := make([]string, len(facts))
	for i, f := range facts {
		bullets[i] = "- " + f
	}
	return fmt.Sprintf("Analyze these facts extracted for government strategic analysis:\n\n%s\n\n"+
		"Identify important facts, create predictions, identify missing information, and build relations between them.",
		strings.Join(bullets, "\n"))
}

// ReportRelation is one edge summarized for the report prompt.
type ReportRelation struct {
	RelType   string
	FromValue string
	ToValue   string
}

// Report builds the prompts for final report generation from the
// accumulated graph content. Inputs beyond the caps are dropped.
func (p *Prompts) Report(language string, facts, predictions, unknowns []string, relations []ReportRelation) (string, string) {
	factsStr := bulletList(facts, maxReportFacts)
	predictionsStr := bulletList(predictions, maxReportPredictions)
	unknownsStr := bulletList(unknowns, maxReportUnknowns)

	var relSB strings.Builder
	for i, r := range relations {
		if i >= maxReportRelations {
			break
		}
		relSB.WriteString(fmt.Sprintf("- [%s] %s... -> %s...\n", r.RelType, clip(r.FromValue, 50), clip(r.ToValue, 50)))
	}

	if language == LanguagePolish {
		system := "You are a strategic analyst. Output only valid JSON."
		user := fmt.Sprintf(`KONTEKST ATLANTIS:
%s

ZEBRANE FAKTY:
%s

PREDYKCJE/PROGNOZY:
%s

BRAKUJĄCE INFORMACJE:
%s

POWIĄZANIA MIĘDZY ELEMENTAMI:
%s

Na podstawie powyższych danych wygeneruj raport analityczny w formacie JSON z następującą strukturą:
{
  "summary": "Streszczenie danych (max 150 słów) - przejrzyste, user-friendly",
  "positive_scenario": "Scenariusz pozytywny dla Atlantis z wyjaśnieniem korelacji (200-300 słów)",
  "negative_scenario": "Scenariusz negatywny dla Atlantis z wyjaśnieniem korelacji (200-300 słów)",
  "recommendations": "Rekomendacje: jakie decyzje pomogą uniknąć scenariuszy negatywnych (200-300 słów)"
}

WAŻNE: Odpowiedz TYLKO poprawnym JSON-em, bez żadnego dodatkowego tekstu.`,
			p.context, factsStr, predictionsStr, unknownsStr, relSB.String())
		return system, user
	}

	system := "You are a strategic analyst. Output only valid JSON."
	user := fmt.Sprintf(`ATLANTIS CONTEXT:
%s

COLLECTED FACTS:
%s

PREDICTIONS/FORECASTS:
%s

MISSING INFORMATION:
%s

RELATIONSHIPS:
%s

Based on the above data, generate an analytical report in JSON format with this structure:
{
  "summary": "Data summary (max 150 words) - clear, user-friendly",
  "positive_scenario": "Positive scenario for Atlantis with correlations and cause-effect explanations (200-300 words)",
  "negative_scenario": "Negative scenario for Atlantis with correlations and cause-effect explanations (200-300 words)",
  "recommendations": "Recommendations: decisions to avoid negative scenarios (200-300 words)"
}

IMPORTANT: Reply with ONLY valid JSON, no additional text.`,
		p.context, factsStr, predictionsStr, unknownsStr, relSB.String())
	return system, user
}

func bulletList(values []string, limit int) string {
	var sb strings.Builder
	for i, v := range values {
		if i >= limit {
			break
		}
		sb.WriteString("- ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	return sb.String()
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
