package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chronicle/reorder/internal/app"
	"chronicle/reorder/internal/config"
	"chronicle/reorder/internal/gitrepo"
	"chronicle/reorder/internal/layout"
	"chronicle/reorder/internal/ledger"
)

var rootCmd = &cobra.Command{
	Use:           "reorderctl",
	Short:         "Inspect and reorder documents in a local repository store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("repos", "", "Directory holding document repositories (defaults to REORDER_REPOS_DIR)")
	rootCmd.PersistentFlags().String("actor", "reorderctl", "Author recorded on commits")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log service activity to stderr")
}

// newService builds the same service the API uses, minus the network
// backends.
func newService(cmd *cobra.Command) (*app.Service, error) {
	cfg := config.Load()
	if repos, _ := cmd.Flags().GetString("repos"); repos != "" {
		cfg.ReposDir = repos
	}
	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		return nil, fmt.Errorf("create repos dir: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}
	svc := app.New(cfg, gitrepo.New(cfg.ReposDir), ledger.NewMemoryLedger(), logger)
	if cfg.Layout == config.LayoutBrowser && layout.Available() {
		svc.WithMeasurer(layout.NewBrowser())
	}
	return svc, nil
}

func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	return actor
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
