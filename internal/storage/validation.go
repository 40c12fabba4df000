// Package storage provides the data persistence layer for the tally application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAsset       = errors.New("invalid asset")
	ErrInvalidID          = errors.New("id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return nil
}

// validateTransaction validates a transaction before it is posted.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, txn.Amount)
	}
	if txn.Type != model.Expense && txn.Type != model.Income {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidTransaction, txn.Type)
	}
	if txn.AssetID < 0 {
		return fmt.Errorf("%w: negative asset id", ErrInvalidTransaction)
	}
	return nil
}

// validateAsset validates an asset account.
func validateAsset(asset *model.Asset) error {
	if asset == nil {
		return fmt.Errorf("%w: asset", ErrNilParameter)
	}
	if strings.TrimSpace(asset.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAsset)
	}
	switch asset.Kind {
	case model.AssetKindAsset, model.AssetKindLiability, model.AssetKindLent:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAsset, asset.Kind)
	}
	return nil
}
