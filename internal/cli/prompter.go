package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/confirm"
	"github.com/Veraticus/tally/internal/model"
)

// ErrInputClosed is returned once the terminal input reaches EOF.
var ErrInputClosed = errors.New("input terminated")

// Prompter is the terminal confirmation surface for detected transactions.
type Prompter struct {
	writer io.Writer
	reader *LineReader
	mu     sync.Mutex
	closed bool
}

// NewPrompter creates a prompter reading answers from reader and rendering to writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewLineReader(reader),
		writer: writer,
	}
}

// Available reports whether the terminal can still take answers. After EOF every
// candidate is saved in the background.
func (p *Prompter) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Confirm renders the candidate and asks to accept, edit or cancel it.
func (p *Prompter) Confirm(ctx context.Context, prompt confirm.Prompt) (confirm.Response, error) {
	if _, err := fmt.Fprintln(p.writer, RenderBox("New transaction", formatCandidate(prompt))); err != nil {
		return confirm.Response{}, fmt.Errorf("failed to write candidate box: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, "  [A] Save  [E] Edit  [C] Cancel"); err != nil {
		return confirm.Response{}, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice", []string{"a", "e", "c"})
	if err != nil {
		return confirm.Response{}, err
	}

	switch choice {
	case "a":
		return acceptSuggestion(prompt), nil
	case "e":
		edits, err := p.promptEdits(ctx, prompt)
		if err != nil {
			return confirm.Response{}, err
		}
		return confirm.Response{Decision: confirm.AcceptWithEdits, Edits: edits}, nil
	default:
		if _, err := fmt.Fprintln(p.writer, FormatWarning("Discarded")); err != nil {
			slog.Warn("Failed to write cancel message", "error", err)
		}
		return confirm.Response{Decision: confirm.Cancel}, nil
	}
}

// acceptSuggestion saves the preselected catalogue category, or the raw one when it
// has to be entered as a custom value.
func acceptSuggestion(prompt confirm.Prompt) confirm.Response {
	if prompt.CustomCategory || prompt.SuggestedCategory == prompt.Candidate.DefaultCategory {
		return confirm.Response{Decision: confirm.Accept}
	}
	category := prompt.SuggestedCategory
	return confirm.Response{
		Decision: confirm.AcceptWithEdits,
		Edits:    confirm.Edits{Category: &category},
	}
}

func formatCandidate(prompt confirm.Prompt) string {
	c := prompt.Candidate

	amountStyle := ExpenseStyle
	sign := "-"
	if c.Trigger == model.Income {
		amountStyle = IncomeStyle
		sign = "+"
	}

	category := prompt.SuggestedCategory
	if prompt.CustomCategory {
		category = c.DefaultCategory + SubtleStyle.Render(" (custom)")
	}

	asset := SubtleStyle.Render("none")
	for _, a := range prompt.Assets {
		if a.ID == c.SuggestedAssetID {
			asset = a.Name
			break
		}
	}

	return amountStyle.Render(fmt.Sprintf("%s%s%s", sign, c.CurrencySymbol, c.Amount.StringFixed(2))) + "\n\n" +
		fmt.Sprintf("  Type:     %s\n", c.Trigger) +
		fmt.Sprintf("  App:      %s\n", model.AppDisplayName(c.SourceApp)) +
		fmt.Sprintf("  Category: %s\n", category) +
		fmt.Sprintf("  Account:  %s\n", asset) +
		fmt.Sprintf("  Note:     %s", c.GeneratedNote)
}

func (p *Prompter) promptEdits(ctx context.Context, prompt confirm.Prompt) (confirm.Edits, error) {
	c := prompt.Candidate
	var edits confirm.Edits

	amount, err := p.promptAmount(ctx, c.Amount)
	if err != nil {
		return edits, err
	}
	if !amount.Equal(c.Amount) {
		edits.Amount = &amount
	}

	trigger := c.Trigger
	answer, err := p.promptLine(ctx, fmt.Sprintf("Type [e]xpense/[i]ncome (%s)", c.Trigger))
	if err != nil {
		return edits, err
	}
	switch strings.ToLower(answer) {
	case "e", "expense":
		trigger = model.Expense
	case "i", "income":
		trigger = model.Income
	}
	if trigger != c.Trigger {
		edits.Type = &trigger
	}

	catalogue := prompt.ExpenseCategories
	if trigger == model.Income {
		catalogue = prompt.IncomeCategories
	}
	category, err := p.promptCategory(ctx, catalogue, prompt.SuggestedCategory, c.DefaultCategory)
	if err != nil {
		return edits, err
	}
	edits.Category = &category

	if len(prompt.Assets) > 0 {
		assetID, err := p.promptAsset(ctx, prompt.Assets, c.SuggestedAssetID)
		if err != nil {
			return edits, err
		}
		edits.AssetID = &assetID
	}

	note, err := p.promptLine(ctx, fmt.Sprintf("Note (%s)", c.GeneratedNote))
	if err != nil {
		return edits, err
	}
	if note != "" {
		edits.Note = &note
	}

	remark, err := p.promptLine(ctx, "Remark")
	if err != nil {
		return edits, err
	}
	if remark != "" {
		edits.Remark = &remark
	}
	return edits, nil
}

func (p *Prompter) promptAmount(ctx context.Context, current decimal.Decimal) (decimal.Decimal, error) {
	for {
		answer, err := p.promptLine(ctx, fmt.Sprintf("Amount (%s)", current.StringFixed(2)))
		if err != nil {
			return current, err
		}
		if answer == "" {
			return current, nil
		}
		amount, err := decimal.NewFromString(answer)
		if err == nil && amount.IsPositive() {
			return amount, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatError("Enter a positive amount.")); err != nil {
			slog.Warn("Failed to write amount error", "error", err)
		}
	}
}

// promptCategory lists the catalogue by number. Picking the custom entry asks for free text,
// prefilled with the raw category.
func (p *Prompter) promptCategory(ctx context.Context, catalogue []string, suggested, raw string) (string, error) {
	for i, name := range catalogue {
		marker := " "
		if name == suggested {
			marker = "*"
		}
		if _, err := fmt.Fprintf(p.writer, "  %s%d) %s\n", marker, i+1, name); err != nil {
			return "", fmt.Errorf("failed to write category option: %w", err)
		}
	}

	for {
		answer, err := p.promptLine(ctx, fmt.Sprintf("Category (%s)", suggested))
		if err != nil {
			return "", err
		}
		choice := suggested
		if answer != "" {
			n, err := strconv.Atoi(answer)
			switch {
			case err != nil:
				return answer, nil
			case n >= 1 && n <= len(catalogue):
				choice = catalogue[n-1]
			default:
				if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
					slog.Warn("Failed to write error message", "error", err)
				}
				continue
			}
		}
		if choice != model.CustomCategory {
			return choice, nil
		}
		custom, err := p.promptLine(ctx, fmt.Sprintf("Custom category (%s)", raw))
		if err != nil {
			return "", err
		}
		if custom == "" {
			custom = raw
		}
		return custom, nil
	}
}

func (p *Prompter) promptAsset(ctx context.Context, assets []model.Asset, suggested int64) (int64, error) {
	if _, err := fmt.Fprintln(p.writer, "   0) none"); err != nil {
		return suggested, fmt.Errorf("failed to write asset option: %w", err)
	}
	for _, a := range assets {
		marker := " "
		if a.ID == suggested {
			marker = "*"
		}
		if _, err := fmt.Fprintf(p.writer, "  %s%d) %s %s\n", marker, a.ID, a.Name,
			SubtleStyle.Render(a.CurrencySymbol+a.Balance.StringFixed(2))); err != nil {
			return suggested, fmt.Errorf("failed to write asset option: %w", err)
		}
	}

	for {
		answer, err := p.promptLine(ctx, fmt.Sprintf("Account (%d)", suggested))
		if err != nil {
			return suggested, err
		}
		if answer == "" {
			return suggested, nil
		}
		id, err := strconv.ParseInt(answer, 10, 64)
		if err == nil && (id == model.NoAsset || containsAsset(assets, id)) {
			return id, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatError("Unknown account. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func containsAsset(assets []model.Asset, id int64) bool {
	for _, a := range assets {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		answer, err := p.promptLine(ctx, prompt)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(answer)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) promptLine(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		return "", ErrInputClosed
	}
	return line, err
}

var _ confirm.Presenter = (*Prompter)(nil)
