package confirm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Options configures a Controller.
type Options struct {
	Presenter  Presenter
	Catalogue  Catalogue
	OnResolved func(Resolution)
	Now        func() time.Time
	Cooldown   time.Duration
}

// Controller owns the single-surface confirmation state. At most one candidate is
// in flight; candidates submitted meanwhile are dropped, never queued.
type Controller struct {
	lastDismiss time.Time
	presenter   Presenter
	catalogue   Catalogue
	dispatcher  Dispatcher
	onResolved  func(Resolution)
	now         func() time.Time
	cooldown    time.Duration
	state       State
	mu          sync.Mutex
	wg          sync.WaitGroup
}

// NewController creates a controller writing through dispatcher.
func NewController(dispatcher Dispatcher, opts Options) *Controller {
	c := &Controller{
		dispatcher: dispatcher,
		presenter:  opts.Presenter,
		catalogue:  opts.Catalogue,
		onResolved: opts.OnResolved,
		now:        opts.Now,
		cooldown:   opts.Cooldown,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.cooldown <= 0 {
		c.cooldown = DefaultCooldown
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a candidate is in flight.
func (c *Controller) Busy() bool {
	return c.State() != Idle
}

// CoolingDown reports whether an interactive surface was dismissed less than the
// cooldown before now.
func (c *Controller) CoolingDown(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastDismiss.IsZero() && now.Sub(c.lastDismiss) < c.cooldown
}

// SetCooldown changes the post-dismiss cooldown. Non-positive uses DefaultCooldown.
func (c *Controller) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}
	c.mu.Lock()
	c.cooldown = d
	c.mu.Unlock()
}

// Submit starts resolving a candidate that already passed the dedup gate. It returns the
// state the candidate entered, or ErrBusy when another candidate is in flight.
func (c *Controller) Submit(ctx context.Context, candidate model.TransactionCandidate) (State, error) {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		return state, ErrBusy
	}
	c.state = CandidateReady
	c.mu.Unlock()

	if c.presenter != nil && c.presenter.Available() {
		c.setState(AwaitingUserConfirmation)
		c.wg.Add(1)
		go c.await(ctx, candidate)
		return AwaitingUserConfirmation, nil
	}

	c.setState(AutoSaving)
	c.autosave(candidate)
	return AutoSaving, nil
}

// Wait blocks until no confirmation surface is open.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// finish returns to Idle. Interactive exits also start the cooldown.
func (c *Controller) finish(interactive bool) {
	c.mu.Lock()
	c.state = Idle
	if interactive {
		c.lastDismiss = c.now()
	}
	c.mu.Unlock()
}

func (c *Controller) autosave(candidate model.TransactionCandidate) {
	txn := model.NewTransaction(candidate)
	txn.Note += AutoSaveSuffix
	if txn.Category == "" {
		txn.Category = model.FallbackCategory(txn.Type)
	}

	c.finish(false)
	c.dispatch(candidate, &txn, false)
}

func (c *Controller) await(ctx context.Context, candidate model.TransactionCandidate) {
	defer c.wg.Done()

	resp, err := c.ask(ctx, candidate)
	if err != nil || resp.Decision == Cancel {
		c.finish(true)
		if err != nil {
			common.LogDebug("Confirmation surface closed without a decision", common.Fields{"error": err.Error()})
		}
		c.resolve(Resolution{Candidate: candidate, Outcome: Cancelled, Err: err, Interactive: true})
		return
	}

	txn := buildTransaction(candidate, resp)
	c.finish(true)
	c.dispatch(candidate, &txn, true)
}

// ask shows the prompt. A panicking presenter counts as a cancellation.
func (c *Controller) ask(ctx context.Context, candidate model.TransactionCandidate) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presenter panicked: %v", r)
		}
	}()
	return c.presenter.Confirm(ctx, c.prompt(ctx, candidate))
}

func (c *Controller) prompt(ctx context.Context, candidate model.TransactionCandidate) Prompt {
	p := Prompt{
		Candidate:         candidate,
		ExpenseCategories: model.DefaultExpenseCategories(),
		IncomeCategories:  model.DefaultIncomeCategories(),
	}
	if c.catalogue != nil {
		if cats := c.catalogue.Categories(model.Expense); len(cats) > 0 {
			p.ExpenseCategories = cats
		}
		if cats := c.catalogue.Categories(model.Income); len(cats) > 0 {
			p.IncomeCategories = cats
		}
		assets, err := c.catalogue.Assets(ctx)
		if err != nil {
			common.LogError(err, "Failed to load assets for confirmation", nil)
		}
		p.Assets = assets
	}

	catalogue := p.ExpenseCategories
	if candidate.Trigger == model.Income {
		catalogue = p.IncomeCategories
	}
	p.SuggestedCategory, p.CustomCategory = model.SuggestCategory(candidate.Trigger, candidate.DefaultCategory, catalogue)
	return p
}

func (c *Controller) dispatch(candidate model.TransactionCandidate, txn *model.Transaction, interactive bool) {
	err := c.dispatcher.Dispatch(txn, func(err error) {
		res := Resolution{Candidate: candidate, Transaction: txn, Outcome: Saved, Interactive: interactive}
		if err != nil {
			res.Outcome, res.Err = Failed, err
		}
		c.resolve(res)
	})
	if err != nil {
		common.LogError(err, "Failed to queue transaction", common.Fields{"amount": txn.Amount.String()})
		c.resolve(Resolution{Candidate: candidate, Transaction: txn, Outcome: Failed, Err: err, Interactive: interactive})
	}
}

func (c *Controller) resolve(res Resolution) {
	common.LogInfo("Candidate resolved", common.Fields{
		"outcome":     res.Outcome.String(),
		"amount":      res.Candidate.Amount.String(),
		"type":        res.Candidate.Trigger.String(),
		"interactive": res.Interactive,
	})
	if c.onResolved != nil {
		c.onResolved(res)
	}
}

// buildTransaction applies the user's response to the candidate.
func buildTransaction(candidate model.TransactionCandidate, resp Response) model.Transaction {
	txn := model.NewTransaction(candidate)

	if resp.Decision == AcceptWithEdits {
		e := resp.Edits
		if e.Amount != nil && e.Amount.IsPositive() {
			txn.Amount = *e.Amount
		}
		if e.Type != nil {
			txn.Type = *e.Type
		}
		if e.Category != nil {
			txn.Category = *e.Category
		}
		if e.SubCategory != nil {
			txn.SubCategory = *e.SubCategory
		}
		if e.AssetID != nil && *e.AssetID >= 0 {
			txn.AssetID = *e.AssetID
		}
		if e.Note != nil {
			txn.Note = *e.Note
		}
		if e.Remark != nil {
			txn.Remark = *e.Remark
		}
	}

	if txn.Category == "" || txn.Category == model.CustomCategory {
		txn.Category = model.FallbackCategory(txn.Type)
	}
	return txn
}
