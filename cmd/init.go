package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the attendance database",
	Long: `Create the students and attendance tables, or apply pending migrations to an
existing database. Running it again is safe.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// openEngine migrates as part of Service.Init
	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	count, err := eng.store.CountSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to count students: %w", err)
	}
	fmt.Printf("Database ready (%s), %d students enrolled\n", eng.cfg.Database.Driver, count)
	return nil
}
