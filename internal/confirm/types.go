// Package confirm drives a detected candidate through interactive confirmation or a
// silent autosave until it is persisted or discarded.
package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

// ErrBusy is returned by Submit while another candidate is being resolved.
var ErrBusy = errors.New("confirmation already in progress")

// AutoSaveSuffix is appended to the note of transactions saved without confirmation.
const AutoSaveSuffix = " (后台)"

// DefaultCooldown is how long new screen candidates are ignored after the surface closes.
const DefaultCooldown = 2500 * time.Millisecond

// State is the controller state.
type State int

// Controller states.
const (
	Idle State = iota
	CandidateReady
	AwaitingUserConfirmation
	AutoSaving
)

func (s State) String() string {
	switch s {
	case CandidateReady:
		return "candidate_ready"
	case AwaitingUserConfirmation:
		return "awaiting_user_confirmation"
	case AutoSaving:
		return "auto_saving"
	default:
		return "idle"
	}
}

// Decision is the user's answer to a prompt.
type Decision int

// Possible decisions.
const (
	Accept Decision = iota
	AcceptWithEdits
	Cancel
)

// Edits holds the fields the user overrode. Nil fields keep the candidate's value.
type Edits struct {
	Amount      *decimal.Decimal
	Type        *model.TriggerType
	Category    *string
	SubCategory *string
	AssetID     *int64
	Note        *string
	Remark      *string
}

// Response is what a Presenter returns.
type Response struct {
	Edits    Edits
	Decision Decision
}

// Prompt is everything a confirmation surface needs to render a candidate.
type Prompt struct {
	Candidate         model.TransactionCandidate
	SuggestedCategory string
	ExpenseCategories []string
	IncomeCategories  []string
	Assets            []model.Asset
	CustomCategory    bool
}

// Presenter is a confirmation surface such as an overlay or a terminal prompt.
type Presenter interface {
	// Available reports whether the surface can be shown right now.
	Available() bool
	// Confirm shows the prompt and blocks until the user decides.
	Confirm(ctx context.Context, prompt Prompt) (Response, error)
}

// Dispatcher hands a transaction to the background writer.
type Dispatcher interface {
	Dispatch(txn *model.Transaction, done func(error)) error
}

// Catalogue supplies the choices shown in a prompt.
type Catalogue interface {
	Categories(trigger model.TriggerType) []string
	Assets(ctx context.Context) ([]model.Asset, error)
}

// Outcome is how a candidate was resolved.
type Outcome int

// Possible outcomes.
const (
	Saved Outcome = iota
	Cancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Resolution reports the end of one candidate's lifecycle.
type Resolution struct {
	Err         error
	Transaction *model.Transaction
	Candidate   model.TransactionCandidate
	Outcome     Outcome
	Interactive bool
}
