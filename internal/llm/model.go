// Package llm wraps langchaingo models for the analysis pipeline.
//
// Two providers are supported: a local Ollama server and Cloudflare
// Workers AI. Cloudflare routes Polish and English input to separately
// configured models; Ollama uses one model for both.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwierzba/factgraph/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/cloudflare"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Languages recognised by the pipeline. Anything that is not Polish is
// treated as English.
const (
	LanguageEnglish = "en"
	LanguagePolish  = "pl"
)

// Model wraps langchaingo LLMs with per-language routing and timeouts.
type Model struct {
	byLanguage map[string]llms.Model
	names      map[string]string
	timeout    time.Duration
	log        *slog.Logger
}

// New creates a model from configuration.
func New(cfg *config.Config, log *slog.Logger) (*Model, error) {
	if log == nil {
		log = slog.Default()
	}

	m := &Model{
		byLanguage: make(map[string]llms.Model),
		names:      make(map[string]string),
		timeout:    cfg.LLMTimeout,
		log:        log,
	}

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err := ollama.New(
			ollama.WithModel(cfg.OllamaModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		m.byLanguage[LanguageEnglish] = model
		m.byLanguage[LanguagePolish] = model
		m.names[LanguageEnglish] = cfg.OllamaModel
		m.names[LanguagePolish] = cfg.OllamaModel

	case config.ProviderCloudflare:
		if cfg.CloudflareAccount == "" || cfg.CloudflareToken == "" {
			return nil, fmt.Errorf("cloudflare account ID and API token required")
		}
		for lang, name := range map[string]string{
			LanguageEnglish: cfg.CloudflareModelEN,
			LanguagePolish:  cfg.CloudflareModelPL,
		} {
			model, err := cloudflare.New(
				cloudflare.WithAccountID(cfg.CloudflareAccount),
				cloudflare.WithToken(cfg.CloudflareToken),
				cloudflare.WithModel(name),
			)
			if err != nil {
				return nil, fmt.Errorf("create cloudflare model %s: %w", name, err)
			}
			m.byLanguage[lang] = model
			m.names[lang] = name
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return m, nil
}

// ModelName returns the model used for a language.
func (m *Model) ModelName(language string) string {
	return m.names[normalizeLanguage(language)]
}

// Generate produces a completion for a single prompt.
func (m *Model) Generate(ctx context.Context, language, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	return m.generate(ctx, language, messages, m.timeout)
}

// GenerateWithSystem produces a completion with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, language, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	return m.generate(ctx, language, messages, m.timeout)
}

// GenerateJSON produces a completion in JSON mode. Providers that honour
// the mode constrain output to a single JSON value; the caller still
// runs it through the extraction helpers since local models are not
// strict about it.
func (m *Model) GenerateJSON(ctx context.Context, language, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	return m.generate(ctx, language, messages, m.timeout, llms.WithJSONMode())
}

// GenerateJSONLong is GenerateJSON with a caller-supplied deadline, used
// for report generation which runs far longer than a single extraction.
func (m *Model) GenerateJSONLong(ctx context.Context, language, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	return m.generate(ctx, language, messages, timeout, llms.WithJSONMode())
}

func (m *Model) generate(ctx context.Context, language string, messages []llms.MessageContent, timeout time.Duration, opts ...llms.CallOption) (string, error) {
	lang := normalizeLanguage(language)
	model := m.byLanguage[lang]

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	response, err := model.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)

	if err != nil {
		m.log.Warn("llm generation failed",
			"model", m.names[lang],
			"language", lang,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", wrapFatalError(fmt.Errorf("generate: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate: no response choices")
	}

	m.log.Debug("llm generation complete",
		"model", m.names[lang],
		"language", lang,
		"duration_ms", duration.Milliseconds(),
		"response_len", len(response.Choices[0].Content))

	return response.Choices[0].Content, nil
}

func normalizeLanguage(language string) string {
	if language == LanguagePolish {
		return LanguagePolish
	}
	return LanguageEnglish
}
