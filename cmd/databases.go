package cmd

import (
	"fmt"
	"nessql/database"
	"nessql/logger"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var databasesCmd = &cobra.Command{
	Use:         "databases",
	Aliases:     []string{"dbs"},
	Short:       "List the scan databases in the data directory",
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		handles, err := database.Store.ListDatabases()
		if err != nil {
			logger.Error("databases: %v", err)
			return err
		}
		if len(handles) == 0 {
			fmt.Printf("No scan databases found in %s.\n", database.Store.Dir())
			return nil
		}

		writer := new(tabwriter.Writer)
		writer.Init(os.Stdout, 0, 8, 1, '\t', 0)
		fmt.Fprintln(writer, "DATABASE\tSCAN\tHOSTS")
		fmt.Fprintln(writer, "--------\t----\t-----")
		for _, h := range handles {
			stats, err := database.Store.Statistics(cmd.Context(), h)
			if err != nil {
				logger.Error("databases: reading %s: %v", h, err)
				fmt.Fprintf(writer, "%s\t?\t?\n", h)
				continue
			}
			fmt.Fprintf(writer, "%s\t%s\t%d\n", h, stats.ScanName, stats.TotalHosts)
		}
		writer.Flush()
		logger.Info("Listed %d scan databases", len(handles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
}
