package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the local card identity cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many card identities are cached",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		return runCacheStats(cmd.Context(), a.Storage, cmd.OutOrStdout())
	},
}

var pruneOlderThan time.Duration

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached identities older than --older-than",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		return runCachePrune(cmd.Context(), a.Storage, cmd.OutOrStdout(), pruneOlderThan)
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Age above which identities are deleted")
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

type identityStore interface {
	CountIdentities(ctx context.Context) (int, error)
	DeleteStaleIdentities(ctx context.Context, olderThan time.Duration) (int64, error)
}

func runCacheStats(ctx context.Context, store identityStore, w io.Writer) error {
	count, err := store.CountIdentities(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, map[string]int{"identities": count})
	}
	fmt.Fprintf(w, "%d card identities cached\n", count)
	return nil
}

func runCachePrune(ctx context.Context, store identityStore, w io.Writer, olderThan time.Duration) error {
	deleted, err := store.DeleteStaleIdentities(ctx, olderThan)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, map[string]int64{"deleted": deleted})
	}
	fmt.Fprintf(w, "deleted %d identities older than %s\n", deleted, olderThan)
	return nil
}
