package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func assetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage ledger accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := store.Settings()
			db, err := initStorage(ctx, s)
			if err != nil {
				return common.NewUserError("failed to open the ledger", err)
			}
			defer func() { _ = db.Close() }()

			assets, err := db.ListAssets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list assets: %w", err)
			}
			if len(assets) == 0 {
				printLine(cmd, cli.FormatInfo("No accounts yet. Add one with: tally assets add NAME"))
				return nil
			}

			rows := make([][]string, 0, len(assets))
			for _, a := range assets {
				marker := ""
				if a.ID == s.AutoTrack.DefaultAssetID {
					marker = "default"
				}
				rows = append(rows, []string{
					strconv.FormatInt(a.ID, 10),
					a.Name,
					a.Kind.String(),
					a.CurrencySymbol + a.Balance.StringFixed(2),
					marker,
				})
			}
			printLine(cmd, cli.RenderTable([]string{"ID", "Name", "Kind", "Balance", ""}, rows))
			return nil
		},
	})

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kindName, _ := cmd.Flags().GetString("kind")
			balanceText, _ := cmd.Flags().GetString("balance")
			currency, _ := cmd.Flags().GetString("currency")

			kind, err := model.ParseAssetKind(kindName)
			if err != nil {
				return common.NewUserError("kind must be asset, liability or lent", err)
			}
			balance, err := decimal.NewFromString(balanceText)
			if err != nil {
				return common.NewUserError("balance must be a number", err)
			}

			ctx := cmd.Context()
			db, err := initStorage(ctx, store.Settings())
			if err != nil {
				return common.NewUserError("failed to open the ledger", err)
			}
			defer func() { _ = db.Close() }()

			asset := &model.Asset{Name: args[0], Kind: kind, Balance: balance, CurrencySymbol: currency}
			if err := db.CreateAsset(ctx, asset); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("an account named %q already exists", args[0]), err)
				}
				return fmt.Errorf("failed to create asset: %w", err)
			}

			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created account %d: %s", asset.ID, asset.Name)))
			return nil
		},
	}
	add.Flags().String("kind", "asset", "account kind (asset, liability, lent)")
	add.Flags().String("balance", "0", "opening balance")
	add.Flags().String("currency", model.DefaultCurrencySymbol, "currency symbol")
	cmd.AddCommand(add)

	return cmd
}
