package models

// Clause is a paragraph of a document revision, indexed by its position in that document.
type Clause struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// MatchedPair associates a revised clause with the original clause it most resembles.
type MatchedPair struct {
	Original   Clause  `json:"original"`
	Revised    Clause  `json:"revised"`
	Similarity float64 `json:"similarity"`
}

// Changed reports whether the two sides differ once surrounding whitespace is ignored.
func (p MatchedPair) Changed() bool {
	return trim(p.Original.Text) != trim(p.Revised.Text)
}

// MatchResult partitions the clauses of two revisions.
// Every original clause is in Matched or Deleted, every revised clause in Matched or Added.
type MatchResult struct {
	Matched []MatchedPair `json:"matched"`
	Added   []Clause      `json:"added"`
	Deleted []Clause      `json:"deleted"`
}

// Texts returns the text of each clause, in order.
func Texts(clauses []Clause) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Text
	}
	return out
}
