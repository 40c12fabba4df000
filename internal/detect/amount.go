package detect

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

// amountRe captures an optional 1-3 rune non-digit prefix (a possible currency symbol)
// and a number with up to two decimals. Comma thousands separators are allowed.
var amountRe = regexp.MustCompile(`([^0-9\s]{1,3})?\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

var (
	// MaxAmount is the exclusive upper bound for a plausible amount.
	MaxAmount = decimal.NewFromInt(200000)

	yearMin = decimal.NewFromInt(2020)
	yearMax = decimal.NewFromInt(2035)
)

// Candidate is a numeric value found in text that survived the plausibility filters.
type Candidate struct {
	Amount decimal.Decimal
	Symbol string
	Raw    string
}

// HasFraction reports whether the amount carries a non-zero decimal part, e.g. 12.50 but not 15.00.
func (c Candidate) HasFraction() bool {
	return !c.Amount.IsInteger()
}

// Plausible applies the amount filters: strictly positive, below MaxAmount, and not a
// whole number that looks like a calendar year.
func Plausible(amount decimal.Decimal) bool {
	if !amount.IsPositive() || !amount.LessThan(MaxAmount) {
		return false
	}
	if amount.IsInteger() && amount.GreaterThanOrEqual(yearMin) && amount.LessThanOrEqual(yearMax) {
		return false
	}
	return true
}

// Scan returns the plausible amounts in one text fragment in order of appearance.
// Time-only fragments yield nothing and quantity tokens are ignored.
func Scan(fragment string) []Candidate {
	text, ok := prepare(fragment)
	if !ok {
		return nil
	}

	var out []Candidate
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[2], ",", "")
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		if !Plausible(amount) {
			continue
		}
		out = append(out, Candidate{
			Amount: amount,
			Symbol: matchSymbol(m[1]),
			Raw:    m[2],
		})
	}
	return out
}

// Collect scans every node of the tree depth-first, pre-order. Recursion continues into all
// children regardless of whether a node matched.
func Collect(root model.TextNode) []Candidate {
	var out []Candidate
	model.Walk(root, func(n model.TextNode) bool {
		if text := n.Text(); text != "" {
			out = append(out, Scan(text)...)
		}
		return true
	})
	return out
}

// Best picks the first candidate that looks like a genuine money value (non-zero decimals),
// falling back to the first candidate.
func Best(candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if c.HasFraction() {
			return c, true
		}
	}
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[0], true
}

// FromTree extracts the best amount from a screen content tree.
func FromTree(root model.TextNode) (Candidate, bool) {
	return Best(Collect(root))
}

// FromNotification extracts the amount from notification text. Notification bodies often
// mention a reference number before the real amount, so the last candidate wins.
func FromNotification(text string) (Candidate, bool) {
	candidates := Scan(text)
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[len(candidates)-1], true
}
