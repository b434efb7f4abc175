package models

import (
	"strings"
	"time"
)

type ObligationPriority string

const (
	PriorityCritical ObligationPriority = "critical"
	PriorityHigh     ObligationPriority = "high"
	PriorityMedium   ObligationPriority = "medium"
	PriorityLow      ObligationPriority = "low"
)

// Priorities lists every priority, most urgent first.
var Priorities = []ObligationPriority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Weight orders priorities. Critical weighs most.
func (p ObligationPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority maps a model label onto a priority. Unknown labels are low.
func ParsePriority(s string) ObligationPriority {
	p := ObligationPriority(strings.ToLower(trim(s)))
	if p.Weight() == 0 {
		return PriorityLow
	}
	return p
}

type ObligationType string

const (
	TypePayment      ObligationType = "payment"
	TypeDelivery     ObligationType = "delivery"
	TypeReporting    ObligationType = "reporting"
	TypeTermination  ObligationType = "termination"
	TypeRenewal      ObligationType = "renewal"
	TypeCompliance   ObligationType = "compliance"
	TypeNotification ObligationType = "notification"
	TypeGeneral      ObligationType = "general"
)

var ObligationTypes = []ObligationType{
	TypePayment, TypeDelivery, TypeReporting, TypeTermination,
	TypeRenewal, TypeCompliance, TypeNotification, TypeGeneral,
}

// ParseObligationType maps a model label onto a type. Unknown labels are general.
func ParseObligationType(s string) ObligationType {
	t := ObligationType(strings.ToLower(trim(s)))
	for _, known := range ObligationTypes {
		if t == known {
			return t
		}
	}
	return TypeGeneral
}

type DeadlineType string

const (
	DeadlineAbsolute       DeadlineType = "absolute_date"
	DeadlineDays           DeadlineType = "relative_days"
	DeadlineWeeks          DeadlineType = "relative_weeks"
	DeadlineMonths         DeadlineType = "relative_months"
	DeadlineYears          DeadlineType = "relative_years"
	DeadlineRecurring      DeadlineType = "recurring"
	DeadlineEventTriggered DeadlineType = "event_triggered"
	DeadlineNone           DeadlineType = "none"
)

// ParseDeadlineType maps a model label onto a deadline type. Unknown labels are none.
func ParseDeadlineType(s string) DeadlineType {
	switch d := DeadlineType(strings.ToLower(trim(s))); d {
	case DeadlineAbsolute, DeadlineDays, DeadlineWeeks, DeadlineMonths, DeadlineYears, DeadlineRecurring, DeadlineEventTriggered:
		return d
	case "conditional":
		return DeadlineEventTriggered
	default:
		return DeadlineNone
	}
}

// Obligation is one duty found in a document. DueDate is the estimated date the
// duty falls due, nil when the document gives none.
type Obligation struct {
	ID               string             `json:"id"`
	Action           string             `json:"action"`
	ResponsibleParty string             `json:"responsible_party"`
	Deadline         string             `json:"deadline"`
	DeadlineType     DeadlineType       `json:"deadline_type"`
	DeadlineValue    *int               `json:"deadline_value"`
	DueDate          *time.Time         `json:"due_date,omitempty"`
	Priority         ObligationPriority `json:"priority"`
	Type             ObligationType     `json:"type"`
	Consequences     string             `json:"consequences"`
	Context          string             `json:"context"`
	Section          string             `json:"section"`
}

// TimelineEvent is an obligation placed on a calendar. Date is YYYY-MM-DD.
type TimelineEvent struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Date             string             `json:"date"`
	Type             ObligationType     `json:"type"`
	Priority         ObligationPriority `json:"priority"`
	ResponsibleParty string             `json:"responsible_party"`
	Description      string             `json:"description"`
	Consequences     string             `json:"consequences"`
}

type ObligationSummary struct {
	Total         int                        `json:"total"`
	ByPriority    map[ObligationPriority]int `json:"by_priority"`
	ByType        map[ObligationType]int     `json:"by_type"`
	UpcomingCount int                        `json:"upcoming_count"`
}

// ObligationReport is the response of an obligation extraction. Method is "model"
// or "rules" depending on which extractor produced the obligations.
type ObligationReport struct {
	DocumentName   string            `json:"document_name"`
	Method         string            `json:"method"`
	Obligations    []Obligation      `json:"obligations"`
	TimelineEvents []TimelineEvent   `json:"timeline_events"`
	Summary        ObligationSummary `json:"summary"`
	ExtractedAt    time.Time         `json:"extracted_at"`
}
