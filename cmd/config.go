package cmd

import (
	"fmt"
	"nessql/config"
	"nessql/logger"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the nessql configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetDefaultConfigPaths().ConfigFile
		if cfgFile != "" {
			path = cfgFile
		}
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefaultConfig(path, configForce); err != nil {
			logger.Error("config init: %v", err)
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		c := config.AppConfig
		fmt.Printf("data.dir:               %s\n", c.Data.Dir)
		fmt.Printf("server.port:            %s\n", c.Server.Port)
		fmt.Printf("server.log_path:        %s\n", c.Server.LogPath)
		fmt.Printf("server.access_log_path: %s\n", c.Server.AccessLogPath)
		fmt.Printf("server.static_dir:      %s\n", c.Server.StaticDir)
		fmt.Printf("server.max_upload_mb:   %d\n", c.Server.MaxUploadMB)
		fmt.Printf("query.timeout:          %s\n", c.Query.Timeout)
		fmt.Printf("client.base_url:        %s\n", c.Client.BaseURL)
		fmt.Printf("logging.level:          %s\n", c.Logging.Level)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
