// Package compare runs a full semantic comparison of two document revisions.
package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-diff/internal/classifier"
	"document-diff/internal/config"
	"document-diff/internal/embedding"
	"document-diff/internal/llmservice"
	"document-diff/internal/matcher"
	"document-diff/internal/models"
	"document-diff/internal/parser"
)

const (
	Original = "original"
	Revised  = "revised"
)

var (
	ErrExtraction        = errors.New("text extraction failed")
	ErrNoReadableContent = errors.New("no readable content")
	ErrEmbedding         = errors.New("embedding generation failed")
)

// StageError names the pipeline stage and the document that stopped a comparison.
// It matches its Stage sentinel and its cause with errors.Is.
type StageError struct {
	Stage    error
	Document string
	Err      error
}

func (e *StageError) Error() string {
	if errors.Is(e.Stage, ErrNoReadableContent) {
		return fmt.Sprintf("no readable content found in %s document", e.Document)
	}
	return fmt.Sprintf("%v for %s document: %v", e.Stage, e.Document, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Stage}
	}
	return []error{e.Stage, e.Err}
}

// IsInputError reports whether err was caused by the documents themselves rather than
// by a provider.
func IsInputError(err error) bool {
	return errors.Is(err, ErrExtraction) || errors.Is(err, ErrNoReadableContent)
}

// Document is a revision as uploaded: a file name, used to pick the format, and its bytes.
type Document struct {
	Name string
	Data []byte
}

type Options struct {
	Threshold  float64
	Batch      embedding.BatchOptions
	Classifier classifier.Options
}

// OptionsFromConfig derives comparison options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Threshold: cfg.Compare.Threshold,
		Batch: embedding.BatchOptions{
			Size:     cfg.Compare.BatchSize,
			Delay:    cfg.Compare.BatchDelay,
			Timeout:  cfg.EmbedLLM.Timeout,
			MaxChars: cfg.Compare.MaxClauseChars,
		},
		Classifier: classifier.Options{
			Concurrency: cfg.Compare.Concurrency,
			Timeout:     cfg.InferenceLLM.Timeout,
		},
	}
}

// Comparator holds the model clients shared by every comparison. It is safe for
// concurrent use.
type Comparator struct {
	embedder   embeddings.Embedder
	classifier *classifier.Classifier
	opts       Options
}

func New(embedder embeddings.Embedder, llm llmservice.Generator, opts Options) *Comparator {
	if opts.Threshold == 0 {
		opts.Threshold = matcher.DefaultThreshold
	}
	return &Comparator{
		embedder:   embedder,
		classifier: classifier.New(llm, opts.Classifier),
		opts:       opts,
	}
}

// CompareDocuments extracts the text of both files and compares it.
func (c *Comparator) CompareDocuments(ctx context.Context, original, revised Document) (*models.ComparisonReport, error) {
	originalText, err := parser.ExtractText(original.Name, original.Data)
	if err != nil {
		return nil, &StageError{Stage: ErrExtraction, Document: Original, Err: err}
	}
	revisedText, err := parser.ExtractText(revised.Name, revised.Data)
	if err != nil {
		return nil, &StageError{Stage: ErrExtraction, Document: Revised, Err: err}
	}
	return c.CompareText(ctx, originalText, revisedText)
}

// CompareText segments, embeds, aligns and explains two plain-text revisions.
func (c *Comparator) CompareText(ctx context.Context, originalText, revisedText string) (*models.ComparisonReport, error) {
	start := time.Now()

	originalClauses := parser.Segment(originalText)
	revisedClauses := parser.Segment(revisedText)
	if len(originalClauses) == 0 {
		return nil, &StageError{Stage: ErrNoReadableContent, Document: Original}
	}
	if len(revisedClauses) == 0 {
		return nil, &StageError{Stage: ErrNoReadableContent, Document: Revised}
	}
	log.Debug().Int("original", len(originalClauses)).Int("revised", len(revisedClauses)).Msg("Segmented documents")

	batcher := embedding.NewBatcher(c.embedder, c.opts.Batch)
	originalEmbeddings, err := batcher.Embed(ctx, models.Texts(originalClauses))
	if err != nil {
		return nil, &StageError{Stage: ErrEmbedding, Document: Original, Err: err}
	}
	revisedEmbeddings, err := batcher.Embed(ctx, models.Texts(revisedClauses))
	if err != nil {
		return nil, &StageError{Stage: ErrEmbedding, Document: Revised, Err: err}
	}

	result, err := matcher.Match(originalClauses, originalEmbeddings, revisedClauses, revisedEmbeddings, c.opts.Threshold)
	if err != nil {
		return nil, err
	}

	var changedPairs []models.MatchedPair
	for _, p := range result.Matched {
		if p.Changed() {
			changedPairs = append(changedPairs, p)
		}
	}
	changed := c.classifier.ClassifyAll(ctx, changedPairs)

	report := &models.ComparisonReport{
		AddedClauses:   models.Texts(result.Added),
		DeletedClauses: models.Texts(result.Deleted),
		ChangedClauses: changed,
		Summary: models.ReportSummary{
			TotalChanges:    len(changed),
			Additions:       len(result.Added),
			Deletions:       len(result.Deleted),
			OriginalClauses: len(originalClauses),
			RevisedClauses:  len(revisedClauses),
		},
	}

	log.Info().
		Int("matched", len(result.Matched)).
		Int("changed", report.Summary.TotalChanges).
		Int("added", report.Summary.Additions).
		Int("deleted", report.Summary.Deletions).
		Dur("elapsed", time.Since(start)).
		Msg("Comparison complete")
	return report, nil
}
