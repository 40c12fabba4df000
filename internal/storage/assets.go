package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const assetColumns = `id, name, balance, kind, currency_symbol, updated_at`

// CreateAsset inserts a new asset account and sets its ID.
func (s *SQLiteStorage) CreateAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAsset(asset); err != nil {
		return err
	}
	if asset.CurrencySymbol == "" {
		asset.CurrencySymbol = model.DefaultCurrencySymbol
	}
	asset.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_accounts (name, balance, kind, currency_symbol, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		asset.Name, asset.Balance.String(), int(asset.Kind), asset.CurrencySymbol, asset.UpdatedAt)
	if err != nil {
		return classifyError(fmt.Errorf("failed to create asset %q: %w", asset.Name, err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read asset id: %w", err)
	}
	asset.ID = id
	return nil
}

// GetAsset returns one asset account by id.
func (s *SQLiteStorage) GetAsset(ctx context.Context, id int64) (*model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return getAssetTx(ctx, s.db, id)
}

// ListAssets returns all asset accounts ordered by id.
func (s *SQLiteStorage) ListAssets(ctx context.Context) ([]model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM asset_accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}

func getAssetTx(ctx context.Context, q queryer, id int64) (*model.Asset, error) {
	row := q.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM asset_accounts WHERE id = ?", id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, common.ErrNotFound)
	}
	return asset, err
}

func scanAsset(row rowScanner) (*model.Asset, error) {
	var (
		asset   model.Asset
		balance string
		kind    int
	)
	err := row.Scan(&asset.ID, &asset.Name, &balance, &kind, &asset.CurrencySymbol, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	if asset.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("asset %d has a corrupt balance %q: %w", asset.ID, balance, err)
	}
	asset.Kind = model.AssetKind(kind)
	return &asset, nil
}
