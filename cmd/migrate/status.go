package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"z-novel-migration/internal/domain/entity"
	"z-novel-migration/internal/domain/repository"
)

var (
	statusLimit  int
	statusRunID  string
	statusBookID string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration run history and rollback availability",
	Long: `Show the migration run ledger, the rollback snapshot, and recent run history.
With --run, show one run with its surviving hierarchy rows and created chapters.
With --book, show the migrated story/part/chapter/scene tree of one book.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to list")
	statusCmd.Flags().StringVar(&statusRunID, "run", "", "Show details of a single run")
	statusCmd.Flags().StringVar(&statusBookID, "book", "", "Show the migrated hierarchy of a single book")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if statusRunID != "" {
		return printRunDetail(ctx, a, statusRunID)
	}
	if statusBookID != "" {
		return printBookHierarchy(ctx, a, statusBookID)
	}

	active, err := a.runs.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to query active run: %w", err)
	}
	if active != nil {
		fmt.Printf("Active run: %s [%s] stage=%s %d/%d books\n",
			active.ID, active.Status, active.Stage, active.MigratedBooks, active.TotalBooks)
	} else {
		fmt.Println("No active migration run.")
	}

	latest, err := a.runs.GetLatestRollbackable(ctx)
	if err != nil {
		return fmt.Errorf("failed to query rollback snapshot: %w", err)
	}
	if latest != nil {
		fmt.Printf("Rollback snapshot: run %s (status: %s)\n", latest.ID, latest.Status)
	} else {
		fmt.Println("Rollback snapshot: none")
	}

	page, err := a.runs.List(ctx, repository.NewPagination(1, statusLimit))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(page.Items) == 0 {
		fmt.Println("No migration runs recorded.")
		return nil
	}

	fmt.Printf("Runs (%d of %d):\n", len(page.Items), page.Total)
	for _, run := range page.Items {
		printRunLine(run)
	}
	return nil
}

func printRunLine(run *entity.MigrationRun) {
	line := fmt.Sprintf("  %s  %-15s books=%d/%d chapters=%d scenes=%d",
		run.ID, run.Status, run.MigratedBooks, run.TotalBooks,
		run.MigratedChapters, run.CreatedScenes)
	if d := run.Duration(); d > 0 {
		line += fmt.Sprintf(" duration=%s", d)
	}
	if run.ErrorMessage != "" {
		line += fmt.Sprintf(" error=%q", run.ErrorMessage)
	}
	fmt.Println(line)
}

// printRunDetail 打印单次运行的台账、在库行数与创建的章节
func printRunDetail(ctx context.Context, a *app, runID string) error {
	run, err := a.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("migration run %s not found", runID)
	}
	printRunLine(run)

	counts, err := a.migrator.CountRunRows(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to count run rows: %w", err)
	}
	fmt.Printf("  Rows in store: %d stories, %d parts, %d chapters, %d scenes\n",
		counts.Stories, counts.Parts, counts.Chapters, counts.Scenes)

	chapters, err := a.migrator.ListRunChapters(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list run chapters: %w", err)
	}
	for _, ch := range chapters {
		fmt.Printf("    #%d %s (%d words)\n", ch.GlobalChapterNumber, ch.Title, ch.WordCount)
	}
	return nil
}

// printBookHierarchy 打印一本书迁移后的层级树
func printBookHierarchy(ctx context.Context, a *app, bookID string) error {
	view, err := a.migrator.InspectBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to inspect book: %w", err)
	}
	if view == nil {
		fmt.Printf("Book %s has not been migrated.\n", bookID)
		return nil
	}

	fmt.Printf("Book %s\n", view.BookID)
	fmt.Printf("  Story %q (%d words, run %s)\n", view.Story.Title, view.Story.WordCount, view.Story.MigrationRunID)
	for _, part := range view.Parts {
		fmt.Printf("    Part %d %q (%d words)\n", part.Part.PartNumber, part.Part.Title, part.Part.WordCount)
		for _, ch := range part.Chapters {
			fmt.Printf("      Chapter #%d %q (%d words, %d scenes)\n",
				ch.Chapter.GlobalChapterNumber, ch.Chapter.Title, ch.Chapter.WordCount, len(ch.Scenes))
		}
	}
	return nil
}
