package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/deckimport"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// deckFlags are shared by validate and suggest.
type deckFlags struct {
	deckPath  string
	format    string
	commander string
	colors    string
}

func (f *deckFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.deckPath, "deck", "", "Decklist file (Arena export or plain text)")
	cmd.Flags().StringVar(&f.format, "format", "", "Deck format: commander, brawl or constructed (default: validation.default_format)")
	cmd.Flags().StringVar(&f.commander, "commander", "", "Commander name (default: the decklist's Commander section)")
	cmd.Flags().StringVar(&f.colors, "colors", "", "Allowed color identity, e.g. UB (default: looked up from the commander)")
	_ = cmd.MarkFlagRequired("deck")
}

// deckParams is the resolved deck a command runs against.
type deckParams struct {
	deck      []upgrades.DeckCard
	commander string
	colors    []string
	format    upgrades.Format
}

func (f *deckFlags) resolve(defaultFormat upgrades.Format) (*deckParams, error) {
	data, err := os.ReadFile(f.deckPath)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}

	parsed, err := deckimport.NewParser().Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse deck %s: %w", f.deckPath, err)
	}
	for _, w := range parsed.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	p := &deckParams{
		deck:      parsed.Deck.Cards(),
		commander: f.commander,
		colors:    upgrades.SplitColors(f.colors),
		format:    defaultFormat,
	}
	if p.commander == "" {
		p.commander = parsed.Deck.CommanderName()
	}
	if f.format != "" {
		format, ok := upgrades.FormatByName(f.format)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", f.format)
		}
		p.format = format
	}
	return p, nil
}

var (
	validateDeck        deckFlags
	validateSuggestions string
	validateRepairPass  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate upgrade suggestions against a deck",
	Long: `Reads model output from --suggestions (a file, or - for stdin), removes every
ADD/CUT block that breaks a deck rule and prints the repaired text. Issues are
printed to stderr.`,
	Example: `  upgrade-check validate --deck deck.txt --suggestions reply.txt
  ollama run qwen3:8b < prompt.txt | upgrade-check validate --deck deck.txt --suggestions -`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readSuggestions(validateSuggestions, cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		params, err := validateDeck.resolve(a.DefaultFormat())
		if err != nil {
			return err
		}

		return runValidate(cmd.Context(), a.Advisor, cmd.OutOrStdout(), cmd.ErrOrStderr(), upgrades.Request{
			Text:          text,
			Deck:          params.deck,
			Commander:     params.commander,
			AllowedColors: params.colors,
			Format:        params.format,
			RepairPass:    validateRepairPass,
		})
	},
}

func init() {
	validateDeck.register(validateCmd)
	validateCmd.Flags().StringVar(&validateSuggestions, "suggestions", "-", "File holding the model output, or - for stdin")
	validateCmd.Flags().BoolVar(&validateRepairPass, "repair-pass", false, "Treat the text as the regeneration attempt")
	rootCmd.AddCommand(validateCmd)
}

func readSuggestions(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read suggestions: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no suggestions to validate")
	}
	return string(data), nil
}

// requestValidator is the part of the advisor validate needs.
type requestValidator interface {
	Validate(ctx context.Context, req upgrades.Request) *upgrades.Result
}

func runValidate(ctx context.Context, v requestValidator, stdout, stderr io.Writer, req upgrades.Request) error {
	result := v.Validate(ctx, req)

	if jsonOutput {
		return writeJSON(stdout, result)
	}

	fmt.Fprint(stdout, result.RepairedText)
	if !strings.HasSuffix(result.RepairedText, "\n") && result.RepairedText != "" {
		fmt.Fprintln(stdout)
	}
	printIssues(stderr, result)
	return nil
}

func printIssues(w io.Writer, result *upgrades.Result) {
	fmt.Fprintf(w, "\n%d of %d suggestions kept\n", result.UpgradeBlocksRemaining, result.BlocksExtracted)
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  removed #%d %-20s %s\n", issue.Block+1, issue.Kind, issue.Message)
	}
	if result.NeedsRegeneration {
		fmt.Fprintln(w, "too few suggestions survived; regenerate with --repair-pass")
	}
}
