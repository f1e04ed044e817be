// Package cli implements the snekretairy CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomore1007/SnekretAIry/internal/config"
	"github.com/nomore1007/SnekretAIry/internal/store"
)

var (
	dirFlag    string
	budgetFlag int
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "snekretairy",
	Short: "Personal knowledge and goal tracking with supervised AI edits",
	Long: "Append-only memory for goals, tasks, and journal reflections.\n" +
		"Model suggestions become typed proposals that only apply after explicit approval.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	cfg := config.FromEnv()
	RootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "",
		"Memory directory (default: $"+config.EnvDir+" or ~/.snekretairy/memory)")
	RootCmd.PersistentFlags().IntVarP(&budgetFlag, "budget", "b", cfg.ContextBudget,
		"Context budget in tokens")
}

func loadConfig() config.Config {
	cfg := config.FromEnv()
	if dirFlag != "" {
		cfg.MemoryDir = dirFlag
	}
	if budgetFlag > 0 {
		cfg.ContextBudget = budgetFlag
	}
	return cfg
}

func openStore() (*store.Store, config.Config, error) {
	cfg := loadConfig()
	st, err := store.Open(cfg.MemoryDir)
	return st, cfg, err
}

func indexPath(cfg config.Config) string {
	return filepath.Join(cfg.MemoryDir, "index.db")
}

func setupLogging() {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv("SNEKRETAIRY_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// reportFaults surfaces corrupt regions found during a scan without hiding
// the readable entries around them.
func reportFaults(faults []store.ScanFault) {
	for _, f := range faults {
		fmt.Fprintf(os.Stderr, "warning: %v\n", f.Err)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
