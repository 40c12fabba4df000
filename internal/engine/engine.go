// Package engine turns screen snapshots and notifications into transaction candidates
// and hands them to the confirmation controller.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/dedup"
	"github.com/Veraticus/tally/internal/detect"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/scheduler"
)

const (
	noteTimeLayout = "01-02 15:04"
	autoNoteSuffix = " auto"
	refundNote     = " 退款"
)

// Options configures an Engine.
type Options struct {
	Gate      *dedup.Gate
	Scheduler *scheduler.Scheduler
	Now       func() time.Time
	NewID     func() string
	// Synchronous analyzes screen events inline instead of debouncing them.
	Synchronous bool
	// UseEventTime feeds event timestamps to the dedup gate, for recorded feeds.
	UseEventTime bool
}

// Engine wires the detection pipeline for both event paths.
type Engine struct {
	settings     config.Source
	controller   Controller
	gate         *dedup.Gate
	scheduler    *scheduler.Scheduler
	now          func() time.Time
	newID        func() string
	counts       map[Status]int
	mu           sync.Mutex
	synchronous  bool
	useEventTime bool
}

// New creates an engine reading settings from source.
func New(source config.Source, controller Controller, opts Options) *Engine {
	s := source.Settings()
	e := &Engine{
		settings:     source,
		controller:   controller,
		gate:         opts.Gate,
		scheduler:    opts.Scheduler,
		now:          opts.Now,
		newID:        opts.NewID,
		counts:       make(map[Status]int),
		synchronous:  opts.Synchronous,
		useEventTime: opts.UseEventTime,
	}
	if e.gate == nil {
		e.gate = dedup.NewGate(s.AutoTrack.DedupWindow())
	}
	if e.scheduler == nil {
		e.scheduler = scheduler.New(s.AutoTrack.Debounce())
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// ApplySettings pushes timing settings into the gate, the scheduler and the controller
// after a reload.
func (e *Engine) ApplySettings(s config.Settings) {
	e.gate.SetWindow(s.AutoTrack.DedupWindow())
	e.scheduler.SetDelay(s.AutoTrack.Debounce())
	e.controller.SetCooldown(s.AutoTrack.Cooldown())
}

// Run consumes events until the channel closes or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, events <-chan model.SourceEvent) error {
	defer e.scheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				// Analyze the last snapshot of the feed instead of dropping it.
				e.scheduler.Flush()
				return nil
			}
			e.Handle(ctx, ev)
		}
	}
}

// Handle routes one event to its path.
func (e *Engine) Handle(ctx context.Context, ev model.SourceEvent) Result {
	switch ev.Kind {
	case model.EventScreen:
		return e.OnScreenEvent(ctx, ev)
	case model.EventNotification:
		return e.record(e.HandleNotification(ctx, ev))
	default:
		return e.record(Result{Status: StatusIrrelevant})
	}
}

// OnScreenEvent debounces a screen snapshot. While a candidate is being confirmed,
// screen events are ignored and any pending scan is dropped.
func (e *Engine) OnScreenEvent(ctx context.Context, ev model.SourceEvent) Result {
	if e.controller.Busy() {
		e.scheduler.Cancel()
		return e.record(Result{Status: StatusBusy})
	}
	if e.synchronous {
		return e.record(e.AnalyzeScreen(ctx, ev))
	}
	e.scheduler.Schedule(func() {
		e.record(e.AnalyzeScreen(ctx, ev))
	})
	return Result{Status: StatusScheduled}
}

// AnalyzeScreen runs the screen path over one snapshot.
func (e *Engine) AnalyzeScreen(ctx context.Context, ev model.SourceEvent) Result {
	s := e.settings.Settings()
	if !s.AutoTrack.Enabled {
		return Result{Status: StatusDisabled}
	}

	match, ok := pattern.NewClassifier(s.AutoTrack.Keywords).Classify(ev.SourceApp, ev.Root)
	if !ok {
		return Result{Status: StatusIrrelevant}
	}

	amount, ok := detect.FromTree(ev.Root)
	if !ok {
		common.LogDebug("Keyword matched but no amount found", common.Fields{
			"app":     ev.SourceApp,
			"keyword": match.Keyword,
		})
		return Result{Status: StatusNoAmount}
	}

	assetID := e.resolveAsset(s, ev.SourceApp, model.Flatten(ev.Root))

	if e.controller.CoolingDown(e.now()) {
		return Result{Status: StatusCoolingDown}
	}

	at := e.eventTime(ev)
	if !e.accept(model.Signature(amount.Amount, match.Trigger), at) {
		return Result{Status: StatusDuplicate}
	}

	candidate := model.TransactionCandidate{
		ID:               e.newID(),
		Timestamp:        at,
		Amount:           amount.Amount,
		Trigger:          match.Trigger,
		SourceApp:        ev.SourceApp,
		DefaultCategory:  model.AppDisplayName(ev.SourceApp),
		SuggestedAssetID: assetID,
		CurrencySymbol:   currency(amount.Symbol, s),
		GeneratedNote:    at.Format(noteTimeLayout) + autoNoteSuffix,
	}
	return e.submit(ctx, candidate)
}

// HandleNotification runs the notification path. Notifications are always income
// events; refunds are categorized as such.
func (e *Engine) HandleNotification(ctx context.Context, ev model.SourceEvent) Result {
	s := e.settings.Settings()
	if !s.AutoTrack.RefundMonitor {
		return Result{Status: StatusDisabled}
	}
	if !s.Notification.Monitored(ev.SourceApp) {
		return Result{Status: StatusIrrelevant}
	}

	text := ev.NotificationText()
	match, ok := pattern.NewClassifier(s.AutoTrack.Keywords).ClassifyNotification(ev.SourceApp, text)
	if !ok {
		return Result{Status: StatusIrrelevant}
	}

	amount, ok := detect.FromNotification(text)
	if !ok {
		return Result{Status: StatusNoAmount}
	}

	at := e.eventTime(ev)
	if !e.accept(model.Signature(amount.Amount, match.Trigger, match.Category), at) {
		return Result{Status: StatusDuplicate}
	}

	note := autoNoteSuffix
	if match.Refund {
		note = refundNote
	}
	candidate := model.TransactionCandidate{
		ID:               e.newID(),
		Timestamp:        at,
		Amount:           amount.Amount,
		Trigger:          match.Trigger,
		SourceApp:        ev.SourceApp,
		DefaultCategory:  match.Category,
		SuggestedAssetID: e.resolveAsset(s, ev.SourceApp, text),
		CurrencySymbol:   currency(amount.Symbol, s),
		GeneratedNote:    at.Format(noteTimeLayout) + note,
	}
	return e.submit(ctx, candidate)
}

// Counts returns how many events ended in each status.
func (e *Engine) Counts() map[Status]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[Status]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}

// Stop cancels any pending scan and waits for a running one.
func (e *Engine) Stop() {
	e.scheduler.Stop()
}

func (e *Engine) submit(ctx context.Context, candidate model.TransactionCandidate) Result {
	state, err := e.controller.Submit(ctx, candidate)
	if err != nil {
		if !errors.Is(err, confirm.ErrBusy) {
			common.LogError(err, "Failed to submit candidate", nil)
		}
		common.LogDebug("Dropping candidate", common.Fields{"amount": candidate.Amount.String(), "state": state.String()})
		return Result{Status: StatusBusy, Candidate: &candidate, State: state}
	}

	common.LogInfo("Transaction detected", common.Fields{
		"app":    candidate.SourceApp,
		"amount": candidate.Amount.String(),
		"type":   candidate.Trigger.String(),
		"asset":  candidate.SuggestedAssetID,
		"state":  state.String(),
	})
	return Result{Status: StatusSubmitted, Candidate: &candidate, State: state}
}

func (e *Engine) resolveAsset(s config.Settings, app, text string) int64 {
	if !s.AutoTrack.AssetsEnabled {
		return model.NoAsset
	}
	return pattern.NewAssetMatcher(s.AutoTrack.AssetRules, s.AutoTrack.AutoAsset).
		Resolve(app, text, s.AutoTrack.DefaultAssetID)
}

func (e *Engine) accept(signature string, at time.Time) bool {
	if e.useEventTime {
		return e.gate.AcceptAt(signature, at)
	}
	return e.gate.Accept(signature)
}

func (e *Engine) eventTime(ev model.SourceEvent) time.Time {
	if ev.Timestamp.IsZero() {
		return e.now()
	}
	return ev.Timestamp
}

func (e *Engine) record(res Result) Result {
	e.mu.Lock()
	e.counts[res.Status]++
	e.mu.Unlock()
	return res
}

func currency(detected string, s config.Settings) string {
	if detected != "" {
		return detected
	}
	if s.Currency.Default != "" {
		return s.Currency.Default
	}
	return model.DefaultCurrencySymbol
}
