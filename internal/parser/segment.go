package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"document-diff/internal/models"
)

var paragraphBreakRe = regexp.MustCompile(models.ParagraphBreakRegex)

// Segment splits plain text into paragraph clauses. Pieces of MinClauseChars runes or
// fewer after trimming are dropped; the rest are indexed in document order from 0.
func Segment(content string) []models.Clause {
	var clauses []models.Clause
	for _, piece := range paragraphBreakRe.Split(content, -1) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) <= models.MinClauseChars {
			continue
		}
		clauses = append(clauses, models.Clause{Index: len(clauses), Text: piece})
	}
	return clauses
}
