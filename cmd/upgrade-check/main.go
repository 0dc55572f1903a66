// Command upgrade-check validates and generates deck upgrade suggestions from
// the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/app"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/config"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/logging"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/version"
)

var (
	configPath string
	jsonOutput bool
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "upgrade-check",
	Short:         "Validate LLM deck upgrade suggestions",
	Long:          "upgrade-check extracts ADD/CUT upgrade suggestions from model output, removes the ones that break deck rules and prints the repaired text.",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.mtg-upgrade-advisor/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "verbose", "v", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// openApp builds the advisor from the config file. Logs go to stderr only in
// verbose mode so stdout stays clean for piping.
func openApp(ctx context.Context, requireCompleter bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()
	if debugFlag || cfg.App.DebugMode {
		if logger, err = logging.New(true); err != nil {
			return nil, err
		}
	}

	return app.New(ctx, cfg, app.Options{Logger: logger, RequireCompleter: requireCompleter})
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
