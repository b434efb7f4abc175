package obligations

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"document-diff/internal/models"
)

const (
	// recurring and event-triggered obligations without a date are assumed due this soon
	nearTerm       = 30 * 24 * time.Hour
	calendarLayout = "2006-01-02"
	maxTitleChars  = 80
)

// dueDate estimates when an obligation falls due. A relative deadline without a value
// takes the number from its text.
func dueDate(kind models.DeadlineType, text string, value *int, now time.Time) *time.Time {
	switch kind {
	case models.DeadlineDays, models.DeadlineWeeks, models.DeadlineMonths, models.DeadlineYears:
		if value == nil {
			m := relativeRe.FindStringSubmatch(text)
			if m == nil {
				return nil
			}
			return findDeadline(m[0], now).due
		}
		return relativeDue(kind, *value, now)
	case models.DeadlineAbsolute:
		return parseDate(text)
	case models.DeadlineRecurring, models.DeadlineEventTriggered:
		return nearTermDue(now)
	default:
		return nil
	}
}

func relativeDue(kind models.DeadlineType, n int, now time.Time) *time.Time {
	var t time.Time
	switch kind {
	case models.DeadlineWeeks:
		t = now.AddDate(0, 0, 7*n)
	case models.DeadlineMonths:
		t = now.AddDate(0, n, 0)
	case models.DeadlineYears:
		t = now.AddDate(n, 0, 0)
	default:
		t = now.AddDate(0, 0, n)
	}
	return &t
}

func nearTermDue(now time.Time) *time.Time {
	t := now.Add(nearTerm)
	return &t
}

func parseDate(s string) *time.Time {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// sortObligations orders by priority, then by due date with undated obligations last.
func sortObligations(list []models.Obligation) {
	slices.SortStableFunc(list, func(a, b models.Obligation) int {
		if c := cmp.Compare(b.Priority.Weight(), a.Priority.Weight()); c != 0 {
			return c
		}
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		default:
			return a.DueDate.Compare(*b.DueDate)
		}
	})
}

// timeline places every obligation that has a deadline on the calendar, earliest first.
func timeline(list []models.Obligation, now time.Time) []models.TimelineEvent {
	events := []models.TimelineEvent{}
	for _, o := range list {
		if o.DeadlineType == models.DeadlineNone {
			continue
		}
		due := o.DueDate
		if due == nil {
			due = nearTermDue(now)
		}
		events = append(events, models.TimelineEvent{
			ID:               o.ID,
			Title:            clip(o.Action, maxTitleChars),
			Date:             due.Format(calendarLayout),
			Type:             o.Type,
			Priority:         o.Priority,
			ResponsibleParty: o.ResponsibleParty,
			Description:      clip(o.Context, maxContextChars),
			Consequences:     o.Consequences,
		})
	}
	slices.SortStableFunc(events, func(a, b models.TimelineEvent) int {
		return strings.Compare(a.Date, b.Date)
	})
	return events
}

// summarize counts obligations per priority and type. Upcoming obligations fall due
// within the near term, overdue ones included.
func summarize(list []models.Obligation, now time.Time) models.ObligationSummary {
	s := models.ObligationSummary{
		Total:      len(list),
		ByPriority: make(map[models.ObligationPriority]int, len(models.Priorities)),
		ByType:     make(map[models.ObligationType]int, len(models.ObligationTypes)),
	}
	for _, p := range models.Priorities {
		s.ByPriority[p] = 0
	}
	for _, t := range models.ObligationTypes {
		s.ByType[t] = 0
	}

	horizon := now.Add(nearTerm)
	for _, o := range list {
		s.ByPriority[o.Priority]++
		s.ByType[o.Type]++
		if o.DueDate != nil && !o.DueDate.After(horizon) {
			s.UpcomingCount++
		}
	}
	return s
}
