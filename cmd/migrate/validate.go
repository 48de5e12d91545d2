package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"z-novel-migration/internal/application/migration"
)

var validateCmd = &cobra.Command{
	Use:   "validate [before|after|integrity]",
	Short: "Validate source data or migration results",
	Long: `Run read-only validation against the store.
  before     source data quality (empty books, orphan chapters, word count drift)
  after      migration completeness (chapter/scene counts, word count rollups)
  integrity  referential integrity across source and hierarchy data (default)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	phase := "integrity"
	if len(args) == 1 {
		phase = args[0]
	}
	switch phase {
	case "before", "after", "integrity":
	default:
		return fmt.Errorf("unknown validation phase %q, expected before, after or integrity", phase)
	}

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Running %s validation...\n", phase)
	result, err := runPhaseValidation(ctx, a.validator, phase)
	if err != nil {
		return err
	}

	printValidationResult(phase, result)
	if !result.IsValid {
		return fmt.Errorf("%s validation found %d error(s)", phase, len(result.Errors))
	}
	return nil
}

func runPhaseValidation(ctx context.Context, v *migration.Validator, phase string) (*migration.ValidationResult, error) {
	switch phase {
	case "before":
		return v.ValidateBeforeMigration(ctx)
	case "after":
		return v.ValidateAfterMigration(ctx)
	default:
		return v.CheckDataIntegrity(ctx)
	}
}

func printValidationResult(phase string, result *migration.ValidationResult) {
	if result.IsValid {
		fmt.Printf("Validation passed (%s).\n", phase)
	} else {
		fmt.Printf("Validation failed (%s).\n", phase)
	}

	d := result.DataIntegrityChecks
	fmt.Printf("  Source:    %d missing references, %d duplicate entries, %d word count mismatches\n",
		d.MissingReferences, d.DuplicateEntries, d.WordCountMismatches)

	m := result.MigrationIntegrityChecks
	fmt.Printf("  Hierarchy: %d unmapped chapters, %d orphaned scenes, %d hierarchy errors\n",
		m.UnmappedChapters, m.OrphanedScenes, m.IncorrectHierarchy)

	for _, w := range result.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("  Error: %s\n", e)
	}
}
