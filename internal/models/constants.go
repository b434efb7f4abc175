package models

const (
	ParagraphBreakRegex = `\n\s*\n+`
	ThinkTag            = `(?s)<think>.*?</think>`
	ParagraphSeparator  = "\n\n"

	// clauses at or below this many characters are noise (page numbers, stray headers)
	MinClauseChars = 10
)

const (
	FallbackSummary       = "Changes detected between clauses"
	FailedSummary         = "Analysis failed"
	FailedImplicationText = "Could not analyze changes: %v"
)

var (
	ChangeAnalysisPromptTemplate = `You are a meticulous paralegal specializing in contract analysis. Compare the following two versions of a legal clause. First, summarize the change in one sentence. Second, explain the practical implication of this change for the user. Finally, classify the change as 'Beneficial', 'Harmful', or 'Neutral' for the user. Structure your response as a JSON object with keys: "summary", "implication", and "classification".

**Original Clause:**
"""
%s
"""

**Revised Clause:**
"""
%s
"""`

	DocumentAnalysisPromptTemplate = `You are an expert lawyer who specializes in explaining complex legal documents to non-lawyers. Analyze the following document.

First, provide a one-paragraph summary in simple, clear English.

Second, identify and list the 3 most important clauses a person should be aware of and explain the risks or obligations for each.

Document: %s`

	// ObligationPromptTemplate takes the document name, today's date and the document text.
	ObligationPromptTemplate = `Analyze this legal document and extract ALL obligations, deadlines, and key dates.

Document: %s

For each obligation, identify:
1. Action: what must be done (be specific)
2. Responsible party: who must do it (use the exact party names from the document)
3. Deadline: when it must be done (the exact date or time period)
4. Deadline type: absolute_date | relative_days | relative_weeks | relative_months | relative_years | recurring | event_triggered | none
5. Deadline value: the number of days, weeks, months or years for relative deadlines, otherwise null
6. Priority: critical | high | medium | low
7. Type: payment | delivery | reporting | termination | renewal | compliance | notification | general
8. Consequences: what happens if it is not done (penalties, termination, etc.)
9. Context: brief surrounding context from the document
10. Section: section number or heading where it was found

Flag obligations with severe consequences as "critical". Include recurring obligations (monthly reports, annual reviews) and both explicit ("shall", "must") and implicit obligations. Write absolute deadlines as "January 2, 2006". Today's date is %s.

Document text:
%s

Return ONLY a JSON array of objects with the keys "action", "responsible_party", "deadline", "deadline_type", "deadline_value", "priority", "type", "consequences", "context" and "section".`
)
