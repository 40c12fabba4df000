package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

const transactionColumns = `id, date, type, category, sub_category, amount, note, remark,
	asset_id, currency_symbol, source_app`

// PostTransaction inserts txn and applies its balance delta to the linked asset in one
// database transaction. A transaction naming a missing asset is logged and stored with
// model.NoAsset. txn.ID and txn.AssetID reflect the stored row on success.
func (s *SQLiteStorage) PostTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.CurrencySymbol == "" {
		txn.CurrencySymbol = model.DefaultCurrencySymbol
	}

	var id int64
	assetID := txn.AssetID
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if assetID != model.NoAsset {
			_, err := getAssetTx(ctx, tx, assetID)
			if errors.Is(err, common.ErrNotFound) {
				slog.Warn("Transaction references a missing asset, saving it unlinked", "asset_id", assetID)
				assetID = model.NoAsset
			} else if err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (
				date, type, category, sub_category, amount, note, remark,
				asset_id, currency_symbol, source_app
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.Date,
			int(txn.Type),
			txn.Category,
			txn.SubCategory,
			txn.Amount.String(),
			txn.Note,
			txn.Remark,
			assetID,
			txn.CurrencySymbol,
			txn.SourceApp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read transaction id: %w", err)
		}

		return applyDeltaTx(ctx, tx, assetID, txn.Type, txn.Amount)
	})
	if err != nil {
		return err
	}

	txn.ID = id
	txn.AssetID = assetID
	return nil
}

// RevokeTransaction deletes a transaction and reverses its balance delta.
// It returns the deleted transaction.
func (s *SQLiteStorage) RevokeTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	var revoked *model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txn, err := getTransactionTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete transaction %d: %w", id, err)
		}

		if err := applyDeltaTx(ctx, tx, txn.AssetID, txn.Type, txn.Amount.Neg()); err != nil {
			return err
		}
		revoked = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

// GetTransaction returns one transaction by id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	return getTransactionTx(ctx, s.db, id)
}

// ListTransactions returns transactions newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Since != nil {
		where = append(where, "date >= ?")
		args = append(args, *filter.Since)
	}
	if filter.SourceApp != "" {
		where = append(where, "source_app = ?")
		args = append(args, filter.SourceApp)
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getTransactionTx(ctx context.Context, q queryer, id int64) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return txn, err
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn     model.Transaction
		txnType int
		amount  string
	)
	err := row.Scan(
		&txn.ID,
		&txn.Date,
		&txnType,
		&txn.Category,
		&txn.SubCategory,
		&amount,
		&txn.Note,
		&txn.Remark,
		&txn.AssetID,
		&txn.CurrencySymbol,
		&txn.SourceApp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %d has a corrupt amount %q: %w", txn.ID, amount, err)
	}
	txn.Type = model.TriggerType(txnType)
	return &txn, nil
}

// applyDeltaTx moves the balance of assetID by the delta a transaction of the given type
// and amount causes. Asset id 0 means unlinked.
func applyDeltaTx(ctx context.Context, tx *sql.Tx, assetID int64, trigger model.TriggerType, amount decimal.Decimal) error {
	if assetID == model.NoAsset {
		return nil
	}

	asset, err := getAssetTx(ctx, tx, assetID)
	if errors.Is(err, common.ErrNotFound) {
		slog.Warn("Transaction references a missing asset, balance left unchanged", "asset_id", assetID)
		return nil
	}
	if err != nil {
		return err
	}

	delta := asset.Delta(trigger, amount)
	if delta.IsZero() {
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE asset_accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		asset.Balance.Add(delta).String(), time.Now(), assetID)
	if err != nil {
		return fmt.Errorf("failed to update balance of asset %d: %w", assetID, err)
	}
	return nil
}
