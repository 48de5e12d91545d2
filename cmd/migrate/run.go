package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"z-novel-migration/internal/application/migration"
)

var (
	runBatchSize      int
	runDryRun         bool
	runSkipValidation bool
	runNoRollback     bool
	runBookIDs        []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the book-to-hierarchy migration",
	Long: `Migrate flat books and chapters into the story/part/chapter/scene hierarchy.
Books are processed in batches; already migrated books are skipped.`,
	RunE: runMigration,
}

func init() {
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "Books per batch (0 uses the configured default)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report what would be migrated without writing")
	runCmd.Flags().BoolVar(&runSkipValidation, "skip-validation", false, "Skip pre-migration validation")
	runCmd.Flags().BoolVar(&runNoRollback, "no-rollback", false, "Keep partially written data when a batch fails")
	runCmd.Flags().StringSliceVar(&runBookIDs, "book", nil, "Migrate only the given book IDs (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := migration.DefaultOptions()
	if a.cfg.Migration.BatchSize > 0 {
		opts.BatchSize = a.cfg.Migration.BatchSize
	}
	opts.ValidateBeforeMigration = a.cfg.Migration.ValidateBeforeRun
	opts.RollbackOnError = a.cfg.Migration.AutoRollback

	if runBatchSize > 0 {
		opts.BatchSize = runBatchSize
	} else if a.cfg.Migration.TargetBatchDuration > 0 {
		opts.BatchSize = a.migrator.TuneBatchSize(ctx, opts.BatchSize, a.cfg.Migration.TargetBatchDuration)
		fmt.Printf("Tuned batch size to %d (target batch duration %s)\n",
			opts.BatchSize, a.cfg.Migration.TargetBatchDuration)
	}
	opts.DryRun = runDryRun
	if cmd.Flags().Changed("skip-validation") {
		opts.ValidateBeforeMigration = !runSkipValidation
	}
	if cmd.Flags().Changed("no-rollback") {
		opts.RollbackOnError = !runNoRollback
	}
	opts.BookIDs = runBookIDs

	if opts.BatchSize < migration.MinBatchSize || opts.BatchSize > migration.MaxBatchSize {
		return fmt.Errorf("batch size must be between %d and %d", migration.MinBatchSize, migration.MaxBatchSize)
	}

	a.migrator.OnProgressUpdate(func(u migration.ProgressUpdate) {
		fmt.Printf("  [%s] %d/%d (%.1f%%)\n", u.Stage, u.CompletedItems, u.TotalItems, u.Percentage)
	})

	if opts.DryRun {
		fmt.Println("Starting migration (dry run)...")
	} else {
		fmt.Println("Starting migration...")
	}

	result, err := a.migrator.MigrateToHierarchy(ctx, opts)
	if err != nil {
		return err
	}

	printMigrationResult(result)
	if !result.Success {
		return fmt.Errorf("migration failed with %d error(s)", len(result.Errors))
	}
	return nil
}

func printMigrationResult(result *migration.MigrationResult) {
	if result.Success {
		fmt.Println("Migration completed successfully.")
	} else {
		fmt.Println("Migration failed.")
	}
	if result.RunID != "" {
		fmt.Printf("  Run ID:            %s\n", result.RunID)
	}
	if result.DryRun {
		fmt.Println("  Mode:              dry run (no data written)")
	}
	fmt.Printf("  Migrated books:    %d (skipped %d)\n", result.MigratedBooks, result.SkippedBooks)
	fmt.Printf("  Migrated chapters: %d\n", result.MigratedChapters)
	fmt.Printf("  Created:           %d stories, %d parts, %d scenes\n",
		result.CreatedStories, result.CreatedParts, result.CreatedScenes)
	fmt.Printf("  Batches:           %d\n", result.ProcessedInBatches)
	fmt.Printf("  Duration:          %s\n", result.TotalProcessingTime)
	for _, e := range result.Errors {
		fmt.Printf("  Error: %s\n", e)
	}
}
