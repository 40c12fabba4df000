package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetKind distinguishes accounts that hold money from accounts that owe it.
type AssetKind int

const (
	// AssetKindAsset is a regular account such as cash or a debit card.
	AssetKindAsset AssetKind = 0
	// AssetKindLiability is a debt such as a credit card.
	AssetKindLiability AssetKind = 1
	// AssetKindLent is money lent to somebody else.
	AssetKindLent AssetKind = 2
)

func (k AssetKind) String() string {
	switch k {
	case AssetKindLiability:
		return "liability"
	case AssetKindLent:
		return "lent"
	default:
		return "asset"
	}
}

// ParseAssetKind parses the names produced by AssetKind.String.
func ParseAssetKind(s string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asset":
		return AssetKindAsset, nil
	case "liability":
		return AssetKindLiability, nil
	case "lent":
		return AssetKindLent, nil
	}
	return AssetKindAsset, fmt.Errorf("invalid asset kind %q", s)
}

// Asset is a bookkeeping account whose balance follows posted transactions.
type Asset struct {
	UpdatedAt      time.Time
	Balance        decimal.Decimal
	Name           string
	CurrencySymbol string
	ID             int64
	Kind           AssetKind
}

// Delta returns the balance change a transaction of the given type and amount causes.
// Liabilities move the other way: spending increases the debt, income repays it.
// Lent balances are not touched by detected transactions.
func (a Asset) Delta(trigger TriggerType, amount decimal.Decimal) decimal.Decimal {
	switch a.Kind {
	case AssetKindAsset:
		if trigger == Income {
			return amount
		}
		return amount.Neg()
	case AssetKindLiability:
		if trigger == Income {
			return amount.Neg()
		}
		return amount
	default:
		return decimal.Zero
	}
}
