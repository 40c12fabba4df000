package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is used when no symbol was detected or configured.
const DefaultCurrencySymbol = "¥"

// TransactionCandidate is a detected event that has not been persisted yet.
type TransactionCandidate struct {
	Timestamp        time.Time
	Amount           decimal.Decimal
	ID               string
	SourceApp        string
	DefaultCategory  string
	CurrencySymbol   string
	GeneratedNote    string
	SuggestedAssetID int64
	Trigger          TriggerType
}

// Signature returns the dedup key for a candidate: amount and trigger type,
// optionally followed by a category.
func Signature(amount decimal.Decimal, trigger TriggerType, category ...string) string {
	sig := fmt.Sprintf("%s|%d", amount.String(), trigger)
	for _, c := range category {
		sig += "|" + c
	}
	return sig
}

// Transaction is a persisted bookkeeping record.
type Transaction struct {
	Date           time.Time
	Amount         decimal.Decimal
	Category       string
	SubCategory    string
	Note           string
	Remark         string
	CurrencySymbol string
	SourceApp      string
	ID             int64
	AssetID        int64
	Type           TriggerType
}

// NewTransaction builds the transaction a candidate resolves to when accepted unchanged.
func NewTransaction(c TransactionCandidate) Transaction {
	currency := c.CurrencySymbol
	if currency == "" {
		currency = DefaultCurrencySymbol
	}
	return Transaction{
		Date:           c.Timestamp,
		Type:           c.Trigger,
		Category:       c.DefaultCategory,
		Amount:         c.Amount,
		Note:           c.GeneratedNote,
		AssetID:        c.SuggestedAssetID,
		CurrencySymbol: currency,
		SourceApp:      c.SourceApp,
	}
}
