package obligations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"document-diff/internal/models"
)

const (
	noDeadline      = "No specific deadline"
	minSentence     = 20
	maxActionChars  = 150
	maxContextChars = 200
)

var (
	sentenceBreakRe = regexp.MustCompile(`[.!?]\s+`)
	relativeRe      = regexp.MustCompile(`(?i)\b(?:within|not later than|no later than|by)\s+(\d+)\s+(day|week|month|year)s?`)
	absoluteRe      = regexp.MustCompile(`(?i)\b(?:on or before|by|before|no later than)\s+([a-z]+\s+\d{1,2},?\s+\d{4})`)
	recurringRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:annual(?:ly)?|yearly)\b`),
		regexp.MustCompile(`(?i)\b(?:quarterly|every\s+quarter)\b`),
		regexp.MustCompile(`(?i)\b(?:monthly|every\s+month)\b`),
	}
	eventRe = regexp.MustCompile(`(?i)\b(?:upon|following|after)\s+(?:the\s+)?(\w+(?:\s+\w+){0,3})`)

	consequenceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:penalty|fine|liquidated damages?).*?(?:\$[\d,]+|\d+%)`),
		regexp.MustCompile(`(?:may|shall|will)\s+terminat`),
		regexp.MustCompile(`(?:breach|default|violation)`),
		regexp.MustCompile(`(?:interest|late fee).*?(?:\$[\d,]+|\d+%)`),
	}
)

var (
	obligationKeywords = []string{"shall", "must", "will", "required to", "obligated to", "agrees to"}

	parties = []string{
		"buyer", "seller", "vendor", "client", "contractor",
		"company", "employee", "employer", "provider", "customer",
		"licensee", "licensor", "tenant", "landlord", "borrower", "lender",
	}

	priorityKeywords = []struct {
		priority models.ObligationPriority
		keywords []string
	}{
		{models.PriorityCritical, []string{"terminate", "termination", "default", "breach", "penalty", "immediately"}},
		{models.PriorityHigh, []string{"payment", "deliver", "must", "critical", "essential"}},
		{models.PriorityMedium, []string{"should", "notify", "report", "provide"}},
	}

	typeKeywords = []struct {
		kind     models.ObligationType
		keywords []string
	}{
		{models.TypePayment, []string{"pay", "payment", "fee", "invoice", "compensat"}},
		{models.TypeDelivery, []string{"deliver", "provide", "supply", "furnish"}},
		{models.TypeReporting, []string{"report", "notify", "inform", "communicate"}},
		{models.TypeTermination, []string{"terminat", "cancel", "end", "cease"}},
		{models.TypeRenewal, []string{"renew", "extend", "continuation"}},
		{models.TypeCompliance, []string{"comply", "adhere", "conform", "follow"}},
		{models.TypeNotification, []string{"notice", "notify", "inform", "advise"}},
	}

	dateLayouts = []string{"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006", "01/02/2006", "1/2/2006", "2006-01-02"}
)

// extractWithRules treats every sentence with an obligation keyword as one obligation.
func extractWithRules(text string, now time.Time) []models.Obligation {
	sentences := sentenceBreakRe.Split(text, -1)
	var out []models.Obligation
	for idx, raw := range sentences {
		sentence := strings.TrimSpace(raw)
		if utf8.RuneCountInString(sentence) < minSentence {
			continue
		}
		lower := strings.ToLower(sentence)
		if !containsAny(lower, obligationKeywords) {
			continue
		}

		d := findDeadline(sentence, now)
		out = append(out, models.Obligation{
			ID:               obligationID(idx, sentence),
			Action:           cleanAction(sentence),
			ResponsibleParty: findParty(lower),
			Deadline:         d.text,
			DeadlineType:     d.kind,
			DeadlineValue:    d.value,
			DueDate:          d.due,
			Priority:         inferPriority(lower),
			Type:             inferType(lower),
			Consequences:     findConsequences(sentences[idx:min(idx+3, len(sentences))]),
			Context:          clip(sentence, maxContextChars),
			Section:          fmt.Sprintf("Sentence %d", idx+1),
		})
	}
	log.Debug().Int("obligations", len(out)).Msg("Rule-based obligation extraction")
	return out
}

type deadline struct {
	text  string
	kind  models.DeadlineType
	value *int
	due   *time.Time
}

// findDeadline returns the first deadline phrase in sentence, checking relative,
// absolute, recurring and event-triggered phrasing in that order.
func findDeadline(sentence string, now time.Time) deadline {
	if m := relativeRe.FindStringSubmatch(sentence); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			kind := relativeKind(m[2])
			return deadline{text: m[0], kind: kind, value: &n, due: relativeDue(kind, n, now)}
		}
	}
	if m := absoluteRe.FindStringSubmatch(sentence); m != nil {
		return deadline{text: m[1], kind: models.DeadlineAbsolute, due: parseDate(m[1])}
	}
	for _, re := range recurringRes {
		if m := re.FindString(sentence); m != "" {
			return deadline{text: m, kind: models.DeadlineRecurring, due: nearTermDue(now)}
		}
	}
	if m := eventRe.FindString(sentence); m != "" {
		return deadline{text: m, kind: models.DeadlineEventTriggered, due: nearTermDue(now)}
	}
	return deadline{text: noDeadline, kind: models.DeadlineNone}
}

func relativeKind(unit string) models.DeadlineType {
	switch strings.ToLower(unit) {
	case "week":
		return models.DeadlineWeeks
	case "month":
		return models.DeadlineMonths
	case "year":
		return models.DeadlineYears
	default:
		return models.DeadlineDays
	}
}

func findParty(lower string) string {
	for _, p := range parties {
		if strings.Contains(lower, p) {
			return strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return "Party"
}

func inferPriority(lower string) models.ObligationPriority {
	for _, pk := range priorityKeywords {
		if containsAny(lower, pk.keywords) {
			return pk.priority
		}
	}
	return models.PriorityLow
}

func inferType(lower string) models.ObligationType {
	for _, tk := range typeKeywords {
		if containsAny(lower, tk.keywords) {
			return tk.kind
		}
	}
	return models.TypeGeneral
}

// findConsequences searches the sentence and the two that follow it.
func findConsequences(window []string) string {
	combined := strings.ToLower(strings.Join(window, " "))
	for _, re := range consequenceRes {
		if m := re.FindString(combined); m != "" {
			return m
		}
	}
	return notSpecified
}

func cleanAction(sentence string) string {
	action := strings.Join(strings.Fields(sentence), " ")
	if utf8.RuneCountInString(action) > maxActionChars {
		return clip(action, maxActionChars-3) + "..."
	}
	return action
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// clip returns at most n runes of s.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
