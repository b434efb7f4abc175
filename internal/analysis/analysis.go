// Package analysis explains a single legal document in plain language.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"document-diff/internal/llmservice"
	"document-diff/internal/models"
)

var ErrEmptyText = errors.New("no text provided")

type Analyzer struct {
	llm       llmservice.Generator
	modelName string
	maxChars  int
}

// NewAnalyzer returns an Analyzer that sends at most maxChars characters of a document
// to llm. modelName is reported back in each response.
func NewAnalyzer(llm llmservice.Generator, modelName string, maxChars int) *Analyzer {
	return &Analyzer{llm: llm, modelName: modelName, maxChars: maxChars}
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.PromptResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if a.maxChars > 0 && utf8.RuneCountInString(text) > a.maxChars {
		text = string([]rune(text)[:a.maxChars])
		log.Warn().Int("max_chars", a.maxChars).Msg("Document truncated before analysis")
	}

	log.Info().Str("model", a.modelName).Msg("Sending document for analysis")
	answer, err := llmservice.Generate(ctx, a.llm, fmt.Sprintf(models.DocumentAnalysisPromptTemplate, text))
	if err != nil {
		return nil, fmt.Errorf("error analyzing document: %w", err)
	}

	return &models.PromptResponse{
		Success:        true,
		Analysis:       answer,
		ModelUsed:      a.modelName,
		CharacterCount: utf8.RuneCountInString(text),
	}, nil
}
