package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the attendance ledger to CSV",
	Long: `Write every attendance record to a new timestamped CSV file in EXPORT_DIR.
Existing files are never overwritten. Use --stdout to print the CSV instead.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Bool("stdout", false, "Write CSV to standard output instead of a file")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	toStdout := mustGetBool(cmd, "stdout")

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if toStdout {
		_, err := eng.svc.WriteCSV(ctx, os.Stdout)
		return err
	}

	path, err := eng.svc.ExportToCSV(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Attendance exported to %s\n", path)
	return nil
}
