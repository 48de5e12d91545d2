package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"z-novel-migration/internal/application/migration"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [run-id]",
	Short: "Roll back a migration run",
	Long: `Delete all hierarchy rows created by a migration run, leaf to root.
Without a run ID the most recent rollbackable run is used. Source data is never touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var result *migration.RollbackResult
	if len(args) == 1 {
		fmt.Printf("Rolling back run %s...\n", args[0])
		result, err = a.migrator.RollbackRun(ctx, args[0])
	} else {
		fmt.Println("Rolling back the latest rollbackable run...")
		result, err = a.migrator.RollbackMigration(ctx)
	}
	if err != nil {
		return err
	}

	printRollbackResult(result)
	if !result.Success {
		return fmt.Errorf("rollback failed with %d error(s)", len(result.Errors))
	}
	return nil
}

func printRollbackResult(result *migration.RollbackResult) {
	if result.Success {
		fmt.Println("Rollback completed successfully.")
	} else {
		fmt.Println("Rollback failed.")
	}
	if result.RunID != "" {
		fmt.Printf("  Run ID:        %s\n", result.RunID)
	}
	for _, step := range result.RollbackSteps {
		fmt.Printf("  Step:          %s\n", step)
	}
	fmt.Printf("  Data restored: %t\n", result.DataRestored)
	for _, e := range result.Errors {
		fmt.Printf("  Error: %s\n", e)
	}
}
