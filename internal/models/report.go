package models

import "strings"

type Classification string

const (
	Beneficial Classification = "Beneficial"
	Harmful    Classification = "Harmful"
	Neutral    Classification = "Neutral"
)

// ParseClassification maps a model label onto one of the three classifications.
// Unknown labels are Neutral.
func ParseClassification(s string) Classification {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beneficial":
		return Beneficial
	case "harmful":
		return Harmful
	default:
		return Neutral
	}
}

// ClauseChangeReport is the generative model's reading of one reworded clause.
type ClauseChangeReport struct {
	Summary        string         `json:"summary"`
	Implication    string         `json:"implication"`
	Classification Classification `json:"classification"`
}

type ChangedClause struct {
	OriginalText string             `json:"originalText"`
	RevisedText  string             `json:"revisedText"`
	AIAnalysis   ClauseChangeReport `json:"aiAnalysis"`
}

type ReportSummary struct {
	TotalChanges    int `json:"totalChanges"`
	Additions       int `json:"additions"`
	Deletions       int `json:"deletions"`
	OriginalClauses int `json:"originalClauses"`
	RevisedClauses  int `json:"revisedClauses"`
}

// ComparisonReport is the response of a single comparison.
type ComparisonReport struct {
	AddedClauses   []string        `json:"addedClauses"`
	DeletedClauses []string        `json:"deletedClauses"`
	ChangedClauses []ChangedClause `json:"changedClauses"`
	Summary        ReportSummary   `json:"summary"`
}

// PromptResponse is the answer of a single-document analysis.
type PromptResponse struct {
	Success        bool   `json:"success"`
	Filename       string `json:"filename,omitempty"`
	Analysis       string `json:"analysis"`
	ModelUsed      string `json:"model_used"`
	CharacterCount int    `json:"character_count"`
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
