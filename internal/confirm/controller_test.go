package confirm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

type fakeDispatcher struct {
	err  error
	txns []*model.Transaction
	mu   sync.Mutex
}

func (d *fakeDispatcher) Dispatch(txn *model.Transaction, done func(error)) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	d.txns = append(d.txns, txn)
	d.mu.Unlock()
	done(nil)
	return nil
}

func (d *fakeDispatcher) posted() []*model.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*model.Transaction(nil), d.txns...)
}

// fakePresenter blocks in Confirm until a response is sent on answers.
type fakePresenter struct {
	answers   chan Response
	prompts   chan Prompt
	panicWith any
	err       error
	available bool
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{
		available: true,
		answers:   make(chan Response, 1),
		prompts:   make(chan Prompt, 1),
	}
}

func (p *fakePresenter) Available() bool { return p.available }

func (p *fakePresenter) Confirm(ctx context.Context, prompt Prompt) (Response, error) {
	p.prompts <- prompt
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	if p.err != nil {
		return Response{}, p.err
	}
	select {
	case resp := <-p.answers:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

type recorder struct {
	ch chan Resolution
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Resolution, 8)}
}

func (r *recorder) record(res Resolution) { r.ch <- res }

func (r *recorder) next(t *testing.T) Resolution {
	t.Helper()
	select {
	case res := <-r.ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no resolution reported")
		return Resolution{}
	}
}

func candidate(amount string) model.TransactionCandidate {
	return model.TransactionCandidate{
		ID:               "c1",
		Timestamp:        time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		Amount:           decimal.RequireFromString(amount),
		Trigger:          model.Expense,
		SourceApp:        model.AppWeChat,
		DefaultCategory:  "微信",
		SuggestedAssetID: 5,
		CurrencySymbol:   "¥",
		GeneratedNote:    "03-01 12:30 auto",
	}
}

func TestController_AutoSave(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	rec := newRecorder()
	c := NewController(dispatcher, Options{OnResolved: rec.record})

	state, err := c.Submit(context.Background(), candidate("20.50"))
	require.NoError(t, err)
	assert.Equal(t, AutoSaving, state)
	assert.Equal(t, Idle, c.State())

	res := rec.next(t)
	assert.Equal(t, Saved, res.Outcome)
	assert.False(t, res.Interactive)

	posted := dispatcher.posted()
	require.Len(t, posted, 1)
	assert.Equal(t, "03-01 12:30 auto (后台)", posted[0].Note)
	assert.Equal(t, int64(5), posted[0].AssetID)
	assert.Equal(t, "微信", posted[0].Category)
	assert.Equal(t, model.Expense, posted[0].Type)
	assert.True(t, posted[0].Amount.Equal(decimal.RequireFromString("20.50")))

	assert.False(t, c.CoolingDown(time.Now()), "autosave does not start the cooldown")
}

func TestController_UnavailablePresenterFallsBackToAutoSave(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	presenter := newFakePresenter()
	presenter.available = false
	c := NewController(dispatcher, Options{Presenter: presenter})

	state, err := c.Submit(context.Background(), candidate("8.00"))
	require.NoError(t, err)
	assert.Equal(t, AutoSaving, state)
	assert.Len(t, dispatcher.posted(), 1)
}

func TestController_SingleSurface(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	presenter := newFakePresenter()
	rec := newRecorder()
	c := NewController(dispatcher, Options{Presenter: presenter, OnResolved: rec.record})
	ctx := context.Background()

	state, err := c.Submit(ctx, candidate("20.50"))
	require.NoError(t, err)
	assert.Equal(t, AwaitingUserConfirmation, state)
	<-presenter.prompts

	state, err = c.Submit(ctx, candidate("30.00"))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, AwaitingUserConfirmation, state)

	presenter.answers <- Response{Decision: Accept}
	res := rec.next(t)
	assert.Equal(t, Saved, res.Outcome)
	c.Wait()

	posted := dispatcher.posted()
	require.Len(t, posted, 1, "the second candidate is dropped, not queued")
	assert.Equal(t, "20.5", posted[0].Amount.String())
	assert.Equal(t, "03-01 12:30 auto", posted[0].Note)
	assert.Equal(t, Idle, c.State())
}

func TestController_AcceptWithEdits(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	presenter := newFakePresenter()
	rec := newRecorder()
	c := NewController(dispatcher, Options{Presenter: presenter, OnResolved: rec.record})

	_, err := c.Submit(context.Background(), candidate("20.50"))
	require.NoError(t, err)
	prompt := <-presenter.prompts
	assert.Equal(t, "购物", prompt.SuggestedCategory)
	assert.False(t, prompt.CustomCategory)
	assert.Equal(t, model.DefaultExpenseCategories(), prompt.ExpenseCategories)

	amount := decimal.RequireFromString("21.00")
	income := model.Income
	category := "礼金"
	asset := int64(0)
	remark := "split"
	presenter.answers <- Response{
		Decision: AcceptWithEdits,
		Edits: Edits{
			Amount:   &amount,
			Type:     &income,
			Category: &category,
			AssetID:  &asset,
			Remark:   &remark,
		},
	}

	res := rec.next(t)
	require.Equal(t, Saved, res.Outcome)
	txn := res.Transaction
	assert.True(t, txn.Amount.Equal(amount))
	assert.Equal(t, model.Income, txn.Type)
	assert.Equal(t, "礼金", txn.Category)
	assert.Equal(t, model.NoAsset, txn.AssetID)
	assert.Equal(t, "split", txn.Remark)
	assert.Equal(t, "03-01 12:30 auto", txn.Note)
}

func TestController_Cancel(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	presenter := newFakePresenter()
	rec := newRecorder()
	c := NewController(dispatcher, Options{
		Presenter:  presenter,
		OnResolved: rec.record,
		Now:        func() time.Time { return now },
	})

	_, err := c.Submit(context.Background(), candidate("20.50"))
	require.NoError(t, err)
	<-presenter.prompts
	presenter.answers <- Response{Decision: Cancel}

	res := rec.next(t)
	assert.Equal(t, Cancelled, res.Outcome)
	assert.True(t, res.Interactive)
	assert.Empty(t, dispatcher.posted())
	assert.Equal(t, Idle, c.State())

	assert.True(t, c.CoolingDown(now.Add(2400*time.Millisecond)))
	assert.False(t, c.CoolingDown(now.Add(2500*time.Millisecond)))

	c.SetCooldown(4 * time.Second)
	assert.True(t, c.CoolingDown(now.Add(3900*time.Millisecond)))
	assert.False(t, c.CoolingDown(now.Add(4*time.Second)))

	c.SetCooldown(0)
	assert.False(t, c.CoolingDown(now.Add(2500*time.Millisecond)), "non-positive restores the default")
}

func TestController_PresenterFailures(t *testing.T) {
	tests := []struct {
		setup func(*fakePresenter)
		name  string
	}{
		{func(p *fakePresenter) { p.err = errors.New("terminal closed") }, "error"},
		{func(p *fakePresenter) { p.panicWith = "render failed" }, "panic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &fakeDispatcher{}
			presenter := newFakePresenter()
			tt.setup(presenter)
			rec := newRecorder()
			c := NewController(dispatcher, Options{Presenter: presenter, OnResolved: rec.record})

			_, err := c.Submit(context.Background(), candidate("20.50"))
			require.NoError(t, err)

			res := rec.next(t)
			assert.Equal(t, Cancelled, res.Outcome)
			assert.Error(t, res.Err)
			c.Wait()
			assert.Equal(t, Idle, c.State())
			assert.Empty(t, dispatcher.posted())
		})
	}
}

func TestController_DispatchFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("persist queue full")}
	rec := newRecorder()
	c := NewController(dispatcher, Options{OnResolved: rec.record})

	_, err := c.Submit(context.Background(), candidate("20.50"))
	require.NoError(t, err)

	res := rec.next(t)
	assert.Equal(t, Failed, res.Outcome)
	assert.EqualError(t, res.Err, "persist queue full")
	assert.Equal(t, Idle, c.State())
}

func TestBuildTransaction(t *testing.T) {
	cand := candidate("20.50")

	t.Run("custom category left empty falls back", func(t *testing.T) {
		empty := ""
		txn := buildTransaction(cand, Response{Decision: AcceptWithEdits, Edits: Edits{Category: &empty}})
		assert.Equal(t, "其他", txn.Category)
	})

	t.Run("non-positive amount edit is ignored", func(t *testing.T) {
		zero := decimal.Zero
		txn := buildTransaction(cand, Response{Decision: AcceptWithEdits, Edits: Edits{Amount: &zero}})
		assert.Equal(t, "20.5", txn.Amount.String())
	})

	t.Run("edits are ignored on plain accept", func(t *testing.T) {
		note := "changed"
		txn := buildTransaction(cand, Response{Decision: Accept, Edits: Edits{Note: &note}})
		assert.Equal(t, cand.GeneratedNote, txn.Note)
	})
}
