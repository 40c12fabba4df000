package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the keyword to account rules",
		Long: `Asset rules link a keyword seen on a payment screen to a ledger account.
When several rules match, the longest keyword wins.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List asset rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := store.Settings().AutoTrack
			rows := make([][]string, 0, len(s.AssetRules))
			for i, rule := range s.AssetRules {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					model.AppDisplayName(rule.App),
					rule.Keyword,
					strconv.FormatInt(rule.AssetID, 10),
				})
			}
			if len(rows) == 0 {
				printLine(cmd, cli.FormatInfo("No asset rules configured"))
			} else {
				printLine(cmd, cli.RenderTable([]string{"#", "App", "Keyword", "Account"}, rows))
			}
			if !s.AutoAsset {
				printLine(cmd, cli.FormatWarning("Automatic account matching is off (autotrack.auto_asset)"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add APP KEYWORD ACCOUNT_ID",
		Short: "Add an asset rule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := parseRule(args)
			if err != nil {
				return err
			}
			if err := rule.Validate(); err != nil {
				return common.NewUserError("invalid rule", err)
			}

			err = store.Update(func(s *config.Settings) {
				if !slices.Contains(s.AutoTrack.AssetRules, rule) {
					s.AutoTrack.AssetRules = append(s.AutoTrack.AssetRules, rule)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to save asset rules: %w", err)
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%q on %s now books to account %d",
				rule.Keyword, model.AppDisplayName(rule.App), rule.AssetID)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove APP KEYWORD ACCOUNT_ID",
		Short: "Remove an asset rule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := parseRule(args)
			if err != nil {
				return err
			}

			removed := false
			err = store.Update(func(s *config.Settings) {
				before := len(s.AutoTrack.AssetRules)
				s.AutoTrack.AssetRules = slices.DeleteFunc(s.AutoTrack.AssetRules, func(r model.AssetRule) bool {
					return r == rule
				})
				removed = len(s.AutoTrack.AssetRules) < before
			})
			if err != nil {
				return fmt.Errorf("failed to save asset rules: %w", err)
			}
			if !removed {
				return common.NewUserError("no such rule", common.ErrNotFound)
			}
			printLine(cmd, cli.FormatSuccess("Removed rule " + rule.Keyword))
			return nil
		},
	})

	return cmd
}

func parseRule(args []string) (model.AssetRule, error) {
	id, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return model.AssetRule{}, common.NewUserError("account id must be a number", err)
	}
	return model.AssetRule{App: resolveApp(args[0]), Keyword: args[1], AssetID: id}, nil
}
