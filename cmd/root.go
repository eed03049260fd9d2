package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/config"
	"github.com/abhisek/masterypath/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "masterypath",
	Short: "Adaptive mastery tracking and question selection",
	Long: `masterypath tracks what each learner knows about each objective with
Bayesian Knowledge Tracing, picks the next question to match, and unlocks
objectives in order as they are mastered.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		cfg = c
		logger = cfg.Log.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./masterypath.yaml or $XDG_CONFIG_HOME/masterypath/masterypath.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path or DSN (overrides database.dsn and MASTERYPATH_DB)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDSN returns the database DSN: --db flag, then database.dsn, then
// MASTERYPATH_DB or the default XDG path for SQLite.
func resolveDSN(cmd *cobra.Command) (string, error) {
	dsn, _ := cmd.Flags().GetString("db")
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	if dsn == "" {
		return store.DefaultDBPath()
	}
	return dsn, ensureSQLiteDir(cfg.Database.Driver, dsn)
}

// ensureSQLiteDir creates the parent directory of a SQLite file. Server
// DSNs are left alone.
func ensureSQLiteDir(driver, dsn string) error {
	if driver != "" && driver != store.DriverSQLite {
		return nil
	}
	return store.EnsureDir(dsn)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn, err := resolveDSN(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(cmd.Context(), store.Options{Driver: cfg.Database.Driver, DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
