package engine

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/model"
)

// Controller is the confirmation side the engine hands candidates to.
type Controller interface {
	Submit(ctx context.Context, candidate model.TransactionCandidate) (confirm.State, error)
	Busy() bool
	CoolingDown(now time.Time) bool
	SetCooldown(d time.Duration)
}

// Status is what happened to one event.
type Status int

// Event outcomes.
const (
	StatusSubmitted Status = iota
	StatusDisabled
	StatusIrrelevant
	StatusNoAmount
	StatusCoolingDown
	StatusDuplicate
	StatusBusy
	StatusScheduled
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusDisabled:
		return "disabled"
	case StatusIrrelevant:
		return "irrelevant"
	case StatusNoAmount:
		return "no_amount"
	case StatusCoolingDown:
		return "cooling_down"
	case StatusDuplicate:
		return "duplicate"
	case StatusBusy:
		return "busy"
	case StatusScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Result describes the handling of one event.
type Result struct {
	Candidate *model.TransactionCandidate
	Status    Status
	State     confirm.State
}
