package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create an asset with an opening balance.
func createTestAsset(t *testing.T, store *SQLiteStorage, name string, kind model.AssetKind, balance string) *model.Asset {
	t.Helper()
	asset := &model.Asset{
		Name:    name,
		Kind:    kind,
		Balance: decimal.RequireFromString(balance),
	}
	require.NoError(t, store.CreateAsset(context.Background(), asset))
	return asset
}

func testTransaction(amount string, trigger model.TriggerType, assetID int64) *model.Transaction {
	return &model.Transaction{
		Date:      time.Date(2025, 3, 1, 12, 30, 0, 0, time.Local),
		Type:      trigger,
		Category:  "微信",
		Amount:    decimal.RequireFromString(amount),
		Note:      "03-01 12:30 auto",
		AssetID:   assetID,
		SourceApp: model.AppWeChat,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates missing directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "tally.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, dbPath, store.Path())
		assert.FileExists(t, dbPath)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var indexCount int
	err = store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_transactions_source_app'
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 1, indexCount)
}

func TestSQLiteStorage_Assets(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	wallet := createTestAsset(t, store, "零钱", model.AssetKindAsset, "100.00")
	card := createTestAsset(t, store, "信用卡", model.AssetKindLiability, "0")
	assert.Positive(t, wallet.ID)
	assert.Greater(t, card.ID, wallet.ID)

	got, err := store.GetAsset(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "零钱", got.Name)
	assert.Equal(t, model.DefaultCurrencySymbol, got.CurrencySymbol)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100")))

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, model.AssetKindLiability, assets[1].Kind)

	t.Run("duplicate name", func(t *testing.T) {
		err := store.CreateAsset(ctx, &model.Asset{Name: "零钱"})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("missing asset", func(t *testing.T) {
		_, err := store.GetAsset(ctx, 999)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid asset", func(t *testing.T) {
		assert.ErrorIs(t, store.CreateAsset(ctx, &model.Asset{}), ErrInvalidAsset)
		assert.ErrorIs(t, store.CreateAsset(ctx, nil), ErrNilParameter)
	})
}
