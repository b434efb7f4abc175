// Package classifier asks a generative model to explain how a reworded clause changed.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"document-diff/internal/llmservice"
	"document-diff/internal/models"
)

type Options struct {
	// Concurrency caps in-flight model calls. Zero or less means no cap.
	Concurrency int
	// Timeout bounds each model call. Zero means no timeout.
	Timeout time.Duration
}

type Classifier struct {
	llm  llmservice.Generator
	opts Options
}

func New(llm llmservice.Generator, opts Options) *Classifier {
	return &Classifier{llm: llm, opts: opts}
}

// Classify explains the change from original to revised. It never fails: a model error,
// timeout or panic yields a Neutral report describing the failure.
func (c *Classifier) Classify(ctx context.Context, original, revised string) (report models.ClauseChangeReport) {
	defer func() {
		if r := recover(); r != nil {
			report = failedReport(fmt.Errorf("panic: %v", r))
		}
	}()

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(models.ChangeAnalysisPromptTemplate, original, revised)
	raw, err := llmservice.Generate(ctx, c.llm, prompt)
	if err != nil {
		return failedReport(err)
	}
	return ParseReport(raw)
}

// ClassifyAll classifies every pair concurrently and returns one entry per pair, in the
// order of pairs. A failing pair gets a fallback report and never affects the others.
func (c *Classifier) ClassifyAll(ctx context.Context, pairs []models.MatchedPair) []models.ChangedClause {
	out := make([]models.ChangedClause, len(pairs))
	if len(pairs) == 0 {
		return out
	}

	limit := c.opts.Concurrency
	if limit <= 0 {
		limit = -1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	start := time.Now()
	for i, p := range pairs {
		g.Go(func() error {
			report := c.Classify(ctx, p.Original.Text, p.Revised.Text)
			if report.Summary == models.FailedSummary {
				log.Warn().Int("original", p.Original.Index).Int("revised", p.Revised.Index).Str("reason", report.Implication).Msg("Change analysis failed")
			}
			out[i] = models.ChangedClause{
				OriginalText: p.Original.Text,
				RevisedText:  p.Revised.Text,
				AIAnalysis:   report,
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int("pairs", len(pairs)).Dur("elapsed", time.Since(start)).Msg("Classified changed clauses")
	return out
}

type reportJSON struct {
	Summary        string `json:"summary"`
	Implication    string `json:"implication"`
	Classification string `json:"classification"`
}

// ParseReport reads the JSON object spanning the first '{' to the last '}' of raw.
// Output without a parsable object becomes a Neutral report carrying raw as the implication.
func ParseReport(raw string) models.ClauseChangeReport {
	raw = strings.TrimSpace(raw)
	body, ok := llmservice.ExtractJSON(raw, '{', '}')
	if !ok {
		return unparsedReport(raw)
	}

	var parsed reportJSON
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		log.Debug().Err(err).Msg("Model output is not valid JSON")
		return unparsedReport(raw)
	}
	return models.ClauseChangeReport{
		Summary:        parsed.Summary,
		Implication:    parsed.Implication,
		Classification: models.ParseClassification(parsed.Classification),
	}
}

func unparsedReport(raw string) models.ClauseChangeReport {
	return models.ClauseChangeReport{
		Summary:        models.FallbackSummary,
		Implication:    raw,
		Classification: models.Neutral,
	}
}

func failedReport(err error) models.ClauseChangeReport {
	return models.ClauseChangeReport{
		Summary:        models.FailedSummary,
		Implication:    fmt.Sprintf(models.FailedImplicationText, err),
		Classification: models.Neutral,
	}
}
