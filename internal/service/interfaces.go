// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Since     *time.Time
	SourceApp string
	Limit     int
	Offset    int
}

// Ledger is the write side the confirmation flow needs. PostTransaction stores the
// transaction and applies its asset balance delta atomically, filling in txn.ID.
type Ledger interface {
	PostTransaction(ctx context.Context, txn *model.Transaction) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Ledger

	// Transaction operations
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	RevokeTransaction(ctx context.Context, id int64) (*model.Transaction, error)

	// Asset operations
	CreateAsset(ctx context.Context, asset *model.Asset) error
	GetAsset(ctx context.Context, id int64) (*model.Asset, error)
	ListAssets(ctx context.Context) ([]model.Asset, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
