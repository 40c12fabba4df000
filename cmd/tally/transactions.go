package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Inspect and revoke recorded transactions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			app, _ := cmd.Flags().GetString("app")

			ctx := cmd.Context()
			db, err := initStorage(ctx, store.Settings())
			if err != nil {
				return common.NewUserError("failed to open the ledger", err)
			}
			defer func() { _ = db.Close() }()

			filter := service.TransactionFilter{Limit: limit}
			if app != "" {
				filter.SourceApp = resolveApp(app)
			}
			txns, err := db.ListTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			if len(txns) == 0 {
				printLine(cmd, cli.FormatInfo("No transactions recorded"))
				return nil
			}

			rows := make([][]string, 0, len(txns))
			for _, t := range txns {
				rows = append(rows, transactionRow(t))
			}
			printLine(cmd, cli.RenderTable([]string{"ID", "Date", "Amount", "Category", "Account", "Note"}, rows))
			return nil
		},
	}
	list.Flags().Int("limit", 20, "maximum number of transactions to show")
	list.Flags().String("app", "", "only show transactions detected in this app")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke ID",
		Short: "Delete a transaction and undo its balance change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError("transaction id must be a number", err)
			}

			ctx := cmd.Context()
			db, err := initStorage(ctx, store.Settings())
			if err != nil {
				return common.NewUserError("failed to open the ledger", err)
			}
			defer func() { _ = db.Close() }()

			txn, err := db.RevokeTransaction(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("transaction %d does not exist", id), err)
				}
				return fmt.Errorf("failed to revoke transaction: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Revoked %s %s%s (%s)",
				txn.Type, txn.CurrencySymbol, txn.Amount.StringFixed(2), txn.Category)))
			return nil
		},
	})

	return cmd
}

func transactionRow(t model.Transaction) []string {
	amount := t.CurrencySymbol + t.Amount.StringFixed(2)
	if t.Type == model.Income {
		amount = cli.IncomeStyle.Render("+" + amount)
	} else {
		amount = cli.ExpenseStyle.Render("-" + amount)
	}

	category := t.Category
	if t.SubCategory != "" {
		category += "/" + t.SubCategory
	}

	account := ""
	if t.AssetID != model.NoAsset {
		account = strconv.FormatInt(t.AssetID, 10)
	}

	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.Local().Format("2006-01-02 15:04"),
		amount,
		category,
		account,
		t.Note,
	}
}
