package model

import "time"

// ReviewAction is the suggested action for a review queue entry.
type ReviewAction string

const (
	ActionKeep   ReviewAction = "keep"
	ActionSkip   ReviewAction = "skip"
	ActionAdd    ReviewAction = "add"
	ActionUpdate ReviewAction = "update"
)

// ReviewEntry is one row of the generated review queue.
type ReviewEntry struct {
	Slug           string       `json:"slug"`
	Name           string       `json:"name"`
	CurrentFunding *float64     `json:"current_funding"`
	NewFunding     *float64     `json:"new_funding"`
	Source         string       `json:"source"`
	Confidence     Confidence   `json:"confidence"`
	Action         ReviewAction `json:"action"`
	Approved       *bool        `json:"approved"`
	Note           string       `json:"note,omitempty"`
}

// ReviewSummary counts entries per action.
type ReviewSummary struct {
	Total  int `json:"total"`
	Keep   int `json:"keep"`
	Skip   int `json:"skip"`
	Add    int `json:"add"`
	Update int `json:"update"`
}

// ReviewQueue is regenerated from scratch on every classification run.
type ReviewQueue struct {
	Generated time.Time     `json:"generated"`
	Summary   ReviewSummary `json:"summary"`
	Companies []ReviewEntry `json:"companies"`
}

// Failure is an audit trail entry for an item that could not be processed.
type Failure struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"`
	CreatedAt time.Time `json:"created_at"`
}
