package search

import (
	"context"

	"ghsearch/internal/domain"
)

// Searcher performs one lookup for a non-empty query
type Searcher interface {
	Search(ctx context.Context, query string) (domain.SearchResult, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query string) (domain.SearchResult, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	return f(ctx, query)
}

// Phase is the controller's state machine position
type Phase int

const (
	PhaseIdle    Phase = iota // settled query is empty
	PhasePending              // request in flight for the current generation
	PhaseSettled              // current generation finished, success or error
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view handed to the presentation layer
type Snapshot struct {
	Version    uint64 // increases with every published snapshot
	Generation uint64
	Phase      Phase
	Query      string // settled query the state belongs to
	Users      []domain.UserSummary
	TotalCount *int // nil until a search succeeds
	Loading    bool
	Alert      domain.AlertState
}

// NumberUsers returns the total count, or -1 when unknown
func (s Snapshot) NumberUsers() int {
	if s.TotalCount == nil {
		return -1
	}
	return *s.TotalCount
}

// state holds the controller's mutable fields
type state struct {
	phase      Phase
	query      string
	users      []domain.UserSummary
	totalCount *int
	loading    bool
}
