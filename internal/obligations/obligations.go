// Package obligations finds the duties, deadlines and key dates a legal document imposes.
package obligations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"document-diff/internal/llmservice"
	"document-diff/internal/models"
)

var ErrEmptyText = errors.New("no text provided")

const (
	MethodModel = "model"
	MethodRules = "rules"

	defaultDocumentName = "Document"
	promptDateLayout    = "January 2, 2006"
	notSpecified        = "Not specified"
)

type Options struct {
	// MaxChars caps the characters sent to the model. Rules always see the full text.
	MaxChars int
	Timeout  time.Duration
}

type Extractor struct {
	llm  llmservice.Generator
	opts Options
	now  func() time.Time
}

// NewExtractor returns an Extractor that asks llm first and falls back to keyword
// rules. A nil llm extracts with rules only.
func NewExtractor(llm llmservice.Generator, opts Options) *Extractor {
	return &Extractor{llm: llm, opts: opts, now: time.Now}
}

// Extract returns every obligation in text, most urgent first, with the timeline and
// summary derived from them. Model failures never fail the extraction.
func (e *Extractor) Extract(ctx context.Context, documentName, text string) (*models.ObligationReport, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if documentName == "" {
		documentName = defaultDocumentName
	}

	now := e.now()
	method := MethodRules
	var found []models.Obligation
	if e.llm != nil {
		var err error
		found, err = e.extractWithModel(ctx, documentName, text, now)
		if err != nil {
			log.Warn().Err(err).Str("document", documentName).Msg("Model obligation extraction failed, using rules")
		} else {
			method = MethodModel
		}
	}
	if method == MethodRules {
		found = extractWithRules(text, now)
	}
	if found == nil {
		found = []models.Obligation{}
	}

	sortObligations(found)
	log.Info().Str("document", documentName).Str("method", method).Int("obligations", len(found)).Msg("Extracted obligations")

	return &models.ObligationReport{
		DocumentName:   documentName,
		Method:         method,
		Obligations:    found,
		TimelineEvents: timeline(found, now),
		Summary:        summarize(found, now),
		ExtractedAt:    now.UTC(),
	}, nil
}

func (e *Extractor) extractWithModel(ctx context.Context, documentName, text string, now time.Time) ([]models.Obligation, error) {
	if e.opts.MaxChars > 0 && utf8.RuneCountInString(text) > e.opts.MaxChars {
		text = string([]rune(text)[:e.opts.MaxChars])
		log.Debug().Int("max_chars", e.opts.MaxChars).Msg("Document truncated before obligation extraction")
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(models.ObligationPromptTemplate, documentName, now.Format(promptDateLayout), text)
	raw, err := llmservice.Generate(ctx, e.llm, prompt)
	if err != nil {
		return nil, err
	}
	return parseObligations(raw, now)
}

type obligationJSON struct {
	Action           string `json:"action"`
	ResponsibleParty string `json:"responsible_party"`
	Deadline         string `json:"deadline"`
	DeadlineType     string `json:"deadline_type"`
	DeadlineValue    any    `json:"deadline_value"`
	Priority         string `json:"priority"`
	Type             string `json:"type"`
	Consequences     string `json:"consequences"`
	Context          string `json:"context"`
	Section          string `json:"section"`
}

// parseObligations reads the JSON array spanning the first '[' to the last ']' of raw.
func parseObligations(raw string, now time.Time) ([]models.Obligation, error) {
	body, ok := llmservice.ExtractJSON(raw, '[', ']')
	if !ok {
		return nil, errors.New("model output has no JSON array")
	}
	var parsed []obligationJSON
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("model output is not a valid obligation list: %w", err)
	}

	out := make([]models.Obligation, 0, len(parsed))
	for i, p := range parsed {
		kind := models.ParseDeadlineType(p.DeadlineType)
		value := intValue(p.DeadlineValue)
		out = append(out, models.Obligation{
			ID:               obligationID(i, p.Action),
			Action:           strings.TrimSpace(p.Action),
			ResponsibleParty: orDefault(p.ResponsibleParty, "Unknown"),
			Deadline:         orDefault(p.Deadline, noDeadline),
			DeadlineType:     kind,
			DeadlineValue:    value,
			DueDate:          dueDate(kind, p.Deadline, value, now),
			Priority:         models.ParsePriority(p.Priority),
			Type:             models.ParseObligationType(p.Type),
			Consequences:     orDefault(p.Consequences, notSpecified),
			Context:          strings.TrimSpace(p.Context),
			Section:          strings.TrimSpace(p.Section),
		})
	}
	return out, nil
}

// intValue accepts the numbers and numeric strings models put in deadline_value.
func intValue(v any) *int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func obligationID(seq int, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.Itoa(seq)+"\x00"+text)).String()
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
