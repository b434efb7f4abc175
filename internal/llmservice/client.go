package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"document-diff/internal/config"
	"document-diff/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var thinkTagRe = regexp.MustCompile(models.ThinkTag)

// Generator is the part of a langchaingo model the service needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewGenerator creates the chat model described by llmConfig. It is safe for concurrent use.
func NewGenerator(llmConfig *config.LLMConfig) (Generator, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating generator")
	switch llmConfig.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		return llm, nil
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
}

// Generate sends prompt as a single human message and returns the text of the first
// choice with any <think> blocks removed.
func Generate(ctx context.Context, llm Generator, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := llm.GenerateContent(ctx, msgContent)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}

// ExtractJSON returns the part of raw from the first opening delimiter to the last
// closing one, which drops code fences and chatter around a JSON value.
func ExtractJSON(raw string, opening, closing byte) (string, bool) {
	start := strings.IndexByte(raw, opening)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}
