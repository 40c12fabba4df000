package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
)

func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage the per-app detection keywords",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List detection keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			for _, entry := range store.Settings().AutoTrack.Keywords {
				name := model.AppDisplayName(entry.App)
				for _, kw := range entry.Expense {
					rows = append(rows, []string{name, entry.App, model.Expense.String(), kw})
				}
				for _, kw := range entry.Income {
					rows = append(rows, []string{name, entry.App, model.Income.String(), kw})
				}
			}
			if len(rows) == 0 {
				printLine(cmd, cli.FormatInfo("No keywords configured"))
				return nil
			}
			printLine(cmd, cli.RenderTable([]string{"App", "Package", "Type", "Keyword"}, rows))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add APP expense|income KEYWORD",
		Short: "Add a keyword",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editKeywords(cmd, args, model.KeywordSet.Add, "Added")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove APP expense|income KEYWORD",
		Short: "Remove a keyword",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editKeywords(cmd, args, model.KeywordSet.Remove, "Removed")
		},
	})

	return cmd
}

func editKeywords(cmd *cobra.Command, args []string, edit func(model.KeywordSet, string, model.TriggerType, string) model.KeywordSet, verb string) error {
	app := resolveApp(args[0])
	trigger, err := model.ParseTriggerType(args[1])
	if err != nil {
		return common.NewUserError("type must be expense or income", err)
	}

	err = store.Update(func(s *config.Settings) {
		s.AutoTrack.Keywords = edit(s.AutoTrack.Keywords, app, trigger, args[2])
	})
	if err != nil {
		return fmt.Errorf("failed to save keywords: %w", err)
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("%s %s keyword %q for %s", verb, trigger, args[2], model.AppDisplayName(app))))
	return nil
}

// resolveApp accepts either a package name or a known display name such as 微信.
func resolveApp(arg string) string {
	for _, app := range model.SupportedApps() {
		if model.AppDisplayName(app) == arg {
			return app
		}
	}
	return arg
}
