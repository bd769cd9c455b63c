package cmd

import (
	"fmt"
	"nessql/core"
	"nessql/database"
	"nessql/logger"
	"nessql/models"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:         "import <file.nessus>...",
	Short:       "Import .nessus files into new scan databases",
	Long:        `Parses each .nessus file and writes it into a new scan database in the data directory, without going through the API server.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		writer := new(tabwriter.Writer)
		writer.Init(os.Stdout, 0, 8, 1, '\t', 0)
		fmt.Fprintln(writer, "FILE\tDATABASE\tSCAN\tHOSTS\tFINDINGS\tOPEN PORTS")
		fmt.Fprintln(writer, "----\t--------\t----\t-----\t--------\t----------")

		failed := 0
		for _, path := range args {
			summary, err := importFile(cmd, path)
			if err != nil {
				failed++
				logger.Error("import: %s: %v", path, err)
				continue
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%d\n", filepath.Base(path), summary.DB, summary.ScanName, summary.Hosts, summary.Findings, summary.OpenPorts)
		}
		writer.Flush()

		if failed > 0 {
			return fmt.Errorf("%d of %d imports failed", failed, len(args))
		}
		return nil
	},
}

func importFile(cmd *cobra.Command, path string) (models.ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ImportSummary{}, err
	}
	defer f.Close()
	return core.ImportNessus(cmd.Context(), database.Store, filepath.Base(path), f)
}

func init() {
	rootCmd.AddCommand(importCmd)
}
