// Package testutil provides ledger fixtures for tests that need a real database.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// TestDB is a migrated ledger in the test's temp dir plus the accounts seeded into it.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	assets  map[string]model.Asset
}

// SetupTestDB creates a migrated ledger seeded with the given accounts.
// It is closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.Account("零钱", "100"),
//		testutil.Liability("信用卡", "0"),
//	)
func SetupTestDB(t *testing.T, assets ...model.Asset) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t, assets: make(map[string]model.Asset, len(assets))}
	for _, asset := range assets {
		if err := store.CreateAsset(ctx, &asset); err != nil {
			t.Fatalf("failed to seed asset %q: %v", asset.Name, err)
		}
		db.assets[asset.Name] = asset
	}
	return db
}

// Account returns a regular asset account fixture.
func Account(name, balance string) model.Asset {
	return model.Asset{Name: name, Balance: decimal.RequireFromString(balance), Kind: model.AssetKindAsset}
}

// Liability returns a debt account fixture.
func Liability(name, balance string) model.Asset {
	return model.Asset{Name: name, Balance: decimal.RequireFromString(balance), Kind: model.AssetKindLiability}
}

// MustAssetID returns the id of a seeded account or fails the test.
func (db *TestDB) MustAssetID(name string) int64 {
	db.t.Helper()
	asset, ok := db.assets[name]
	if !ok {
		db.t.Fatalf("asset %q was not seeded", name)
	}
	return asset.ID
}

// Balance reads the current balance of a seeded account, formatted with two decimals.
func (db *TestDB) Balance(name string) string {
	db.t.Helper()
	asset, err := db.Storage.GetAsset(context.Background(), db.MustAssetID(name))
	if err != nil {
		db.t.Fatalf("failed to load asset %q: %v", name, err)
	}
	return asset.Balance.StringFixed(2)
}
