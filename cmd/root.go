package cmd

import (
	"fmt"
	"nessql/config"
	"nessql/database"
	"nessql/logger"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile           string
	dataDirFlag       string
	appLogPathFlag    string
	accessLogPathFlag string
	logLevelFlag      string
)

// needsStore marks commands that open the local scan store.
const needsStore = "needs-store"

var rootCmd = &cobra.Command{
	Use:   "nessql",
	Short: "Query and triage Nessus scan results with SQL",
	Long: `nessql imports Nessus (.nessus) scans into per-scan SQLite databases and
serves them over an HTTP API. The interactive shell lets an analyst run SQL
against a scan, drill into a plugin's affected hosts, override its severity,
and view per-scan statistics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd {
			return nil
		}
		if err := config.Init(cfgFile, dataDirFlag, appLogPathFlag, accessLogPathFlag, logLevelFlag); err != nil {
			return fmt.Errorf("failed to initialize config in PersistentPreRunE: %w", err)
		}

		if cmd.Annotations[needsStore] != "true" {
			return nil
		}
		dataDir := config.AppConfig.Data.Dir
		if dataDir == "" {
			logger.Error("PersistentPreRunE: Data directory is empty after checking flag and config! Falling back to './scans'.")
			dataDir = "scans"
		}
		logger.Info("PersistentPreRunE: Opening scan store at '%s'", dataDir)
		if err := database.InitStore(dataDir); err != nil {
			return fmt.Errorf("failed to initialize scan store at %s: %w", dataDir, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database.Store != nil {
			database.Store.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/nessql/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "directory holding the scan databases (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&appLogPathFlag, "app-log", "", "path for the application log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&accessLogPathFlag, "access-log", "", "path for the HTTP access log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides config/default)")
}
