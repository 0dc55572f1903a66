package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/advisor"
)

var (
	suggestDeck  deckFlags
	suggestCount int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate and validate upgrade suggestions for a deck",
	Long: `Asks the configured completion backend (llm.provider) for upgrades, validates
them and regenerates once with a corrective prompt when too few survive.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		params, err := suggestDeck.resolve(a.DefaultFormat())
		if err != nil {
			return err
		}

		return runSuggest(cmd.Context(), a.Advisor, cmd.OutOrStdout(), cmd.ErrOrStderr(), advisor.SuggestRequest{
			Deck:          params.deck,
			Commander:     params.commander,
			AllowedColors: params.colors,
			Format:        params.format,
			Suggestions:   suggestCount,
		})
	},
}

func init() {
	suggestDeck.register(suggestCmd)
	suggestCmd.Flags().IntVarP(&suggestCount, "count", "n", 0, "Number of upgrades to request (default: validation.suggestions)")
	rootCmd.AddCommand(suggestCmd)
}

type suggester interface {
	Suggest(ctx context.Context, req advisor.SuggestRequest) (*advisor.SuggestResult, error)
}

func runSuggest(ctx context.Context, s suggester, stdout, stderr io.Writer, req advisor.SuggestRequest) error {
	out, err := s.Suggest(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(stdout, out)
	}

	fmt.Fprintln(stdout, out.Result.RepairedText)
	fmt.Fprintf(stderr, "\nprovider %s, %d attempt(s)", out.Provider, out.Attempts)
	if out.Regenerated {
		fmt.Fprint(stderr, ", regenerated")
	}
	fmt.Fprintln(stderr)
	printIssues(stderr, out.Result)
	return nil
}
