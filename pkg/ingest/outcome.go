package ingest

import "wikisync/models"

// Outcome classifies what one page did to the store.
type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "error"
	}
}

// Result is the per-slug outcome of one ProcessPage call.
type Result struct {
	Slug    string
	Outcome Outcome
	Article *models.Article
	Err     error
}
