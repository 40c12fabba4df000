package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/model"
)

func testPrompt() confirm.Prompt {
	return confirm.Prompt{
		Candidate: model.TransactionCandidate{
			ID:               "c1",
			Timestamp:        time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
			Amount:           decimal.RequireFromString("20.50"),
			Trigger:          model.Expense,
			SourceApp:        model.AppWeChat,
			DefaultCategory:  "微信",
			SuggestedAssetID: 2,
			CurrencySymbol:   "¥",
			GeneratedNote:    "03-01 12:30 auto",
		},
		SuggestedCategory: "购物",
		ExpenseCategories: model.DefaultExpenseCategories(),
		IncomeCategories:  model.DefaultIncomeCategories(),
		Assets: []model.Asset{
			{ID: 2, Name: "零钱", Balance: decimal.RequireFromString("100"), CurrencySymbol: "¥"},
			{ID: 3, Name: "信用卡", Kind: model.AssetKindLiability, CurrencySymbol: "¥"},
		},
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		check    func(t *testing.T, edits confirm.Edits)
		name     string
		input    string
		decision confirm.Decision
	}{
		{
			name:     "accept saves the suggested category",
			input:    "a\n",
			decision: confirm.AcceptWithEdits,
			check: func(t *testing.T, edits confirm.Edits) {
				require.NotNil(t, edits.Category)
				assert.Equal(t, "购物", *edits.Category)
				assert.Nil(t, edits.Amount)
			},
		},
		{
			name:     "cancel",
			input:    "c\n",
			decision: confirm.Cancel,
		},
		{
			name:     "invalid choice then valid",
			input:    "x\nC\n",
			decision: confirm.Cancel,
		},
		{
			name:     "edit keeps defaults on empty answers",
			input:    "e\n\n\n\n\n\n\n",
			decision: confirm.AcceptWithEdits,
			check: func(t *testing.T, edits confirm.Edits) {
				assert.Nil(t, edits.Amount)
				assert.Nil(t, edits.Type)
				require.NotNil(t, edits.Category)
				assert.Equal(t, "购物", *edits.Category)
				require.NotNil(t, edits.AssetID)
				assert.Equal(t, int64(2), *edits.AssetID)
				assert.Nil(t, edits.Note)
				assert.Nil(t, edits.Remark)
			},
		},
		{
			name:     "edit every field",
			input:    "e\nabc\n18.8\ni\n2\n3\n午饭\n和同事\n",
			decision: confirm.AcceptWithEdits,
			check: func(t *testing.T, edits confirm.Edits) {
				require.NotNil(t, edits.Amount)
				assert.Equal(t, "18.80", edits.Amount.StringFixed(2))
				require.NotNil(t, edits.Type)
				assert.Equal(t, model.Income, *edits.Type)
				assert.Equal(t, "奖金", *edits.Category)
				assert.Equal(t, int64(3), *edits.AssetID)
				assert.Equal(t, "午饭", *edits.Note)
				assert.Equal(t, "和同事", *edits.Remark)
			},
		},
		{
			name:     "custom category defaults to the raw value",
			input:    "e\n\n\n8\n\n0\n\n\n",
			decision: confirm.AcceptWithEdits,
			check: func(t *testing.T, edits confirm.Edits) {
				assert.Equal(t, "微信", *edits.Category)
				assert.Equal(t, model.NoAsset, *edits.AssetID)
			},
		},
		{
			name:     "free text category",
			input:    "e\n\n\n宠物\n\n\n\n",
			decision: confirm.AcceptWithEdits,
			check: func(t *testing.T, edits confirm.Edits) {
				assert.Equal(t, "宠物", *edits.Category)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			resp, err := p.Confirm(context.Background(), testPrompt())
			require.NoError(t, err)
			assert.Equal(t, tt.decision, resp.Decision)
			if tt.check != nil {
				tt.check(t, resp.Edits)
			}
			assert.Contains(t, out.String(), "¥20.50")
		})
	}
}

func TestPrompter_AcceptKeepsMatchingCategory(t *testing.T) {
	prompt := testPrompt()
	prompt.SuggestedCategory = prompt.Candidate.DefaultCategory

	p := NewPrompter(strings.NewReader("a\n"), &bytes.Buffer{})
	resp, err := p.Confirm(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, confirm.Accept, resp.Decision)

	prompt = testPrompt()
	prompt.Candidate.DefaultCategory = model.RefundCategory
	prompt.SuggestedCategory = model.CustomCategory
	prompt.CustomCategory = true

	p = NewPrompter(strings.NewReader("a\n"), &bytes.Buffer{})
	resp, err = p.Confirm(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, confirm.Accept, resp.Decision)
}

func TestPrompter_EOFDisablesSurface(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	assert.True(t, p.Available())

	_, err := p.Confirm(context.Background(), testPrompt())
	require.ErrorIs(t, err, ErrInputClosed)
	assert.False(t, p.Available())
}

func TestPrompter_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPrompter(strings.NewReader("a\n"), &bytes.Buffer{})
	_, err := p.Confirm(ctx, testPrompt())
	assert.ErrorIs(t, err, ErrInputCancelled)
	assert.True(t, p.Available())
}

func TestPrompter_DrivesController(t *testing.T) {
	resolved := make(chan confirm.Resolution, 1)
	dispatched := make(chan *model.Transaction, 1)
	controller := confirm.NewController(dispatchFunc(func(txn *model.Transaction, done func(error)) error {
		dispatched <- txn
		done(nil)
		return nil
	}), confirm.Options{
		Presenter:  NewPrompter(strings.NewReader("a\n"), &bytes.Buffer{}),
		OnResolved: func(r confirm.Resolution) { resolved <- r },
	})

	state, err := controller.Submit(context.Background(), testPrompt().Candidate)
	require.NoError(t, err)
	assert.Equal(t, confirm.AwaitingUserConfirmation, state)

	res := <-resolved
	assert.Equal(t, confirm.Saved, res.Outcome)
	txn := <-dispatched
	assert.Equal(t, "购物", txn.Category)
	assert.Equal(t, "03-01 12:30 auto", txn.Note)
	controller.Wait()
}

type dispatchFunc func(txn *model.Transaction, done func(error)) error

func (f dispatchFunc) Dispatch(txn *model.Transaction, done func(error)) error { return f(txn, done) }

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"ID", "Name"}, [][]string{{"1", "零钱"}, {"12", "信用卡"}})
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "零钱")
	assert.Contains(t, out, "信用卡")
}
