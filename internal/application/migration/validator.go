package migration

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"z-novel-migration/internal/domain/repository"
	"z-novel-migration/pkg/logger"
	"z-novel-migration/pkg/metrics"
)

var tracer = otel.Tracer("application.migration")

// 校验扫描的游标分页大小
const scanPageSize = 500

// DataIntegrityChecks 源数据完整性检查计数
type DataIntegrityChecks struct {
	MissingReferences   int `json:"missing_references"`
	DuplicateEntries    int `json:"duplicate_entries"`
	WordCountMismatches int `json:"word_count_mismatches"`
}

// MigrationIntegrityChecks 迁移结果完整性检查计数
type MigrationIntegrityChecks struct {
	UnmappedChapters   int `json:"unmapped_chapters"`
	OrphanedScenes     int `json:"orphaned_scenes"`
	IncorrectHierarchy int `json:"incorrect_hierarchy"`
}

// ValidationResult 校验结果
// 预期内的数据质量问题通过计数与 Errors/Warnings 返回，
// 只有存储本身不可用才返回 Go error。
type ValidationResult struct {
	IsValid                  bool                     `json:"is_valid"`
	DataIntegrityChecks      DataIntegrityChecks      `json:"data_integrity_checks"`
	MigrationIntegrityChecks MigrationIntegrityChecks `json:"migration_integrity_checks"`
	Warnings                 []string                 `json:"warnings"`
	Errors                   []string                 `json:"errors"`
}

// Validator 迁移校验器，只读不写
type Validator struct {
	books    repository.BookRepository
	chapters repository.ChapterRepository
	stories  repository.StoryRepository
	parts    repository.PartRepository
	enhanced repository.EnhancedChapterRepository
	scenes   repository.SceneRepository
}

// NewValidator 创建迁移校验器
func NewValidator(
	books repository.BookRepository,
	chapters repository.ChapterRepository,
	stories repository.StoryRepository,
	parts repository.PartRepository,
	enhanced repository.EnhancedChapterRepository,
	scenes repository.SceneRepository,
) *Validator {
	return &Validator{
		books:    books,
		chapters: chapters,
		stories:  stories,
		parts:    parts,
		enhanced: enhanced,
		scenes:   scenes,
	}
}

// ValidateBeforeMigration 迁移前校验源数据
// 引用缺失、序号重复和书籍字段缺失阻断迁移；缓存字数不一致
// 只降级为警告，因为写入阶段会按正文重新计数。已存在层级数据
// 的书籍记为冲突警告，由编排器跳过。
func (v *Validator) ValidateBeforeMigration(ctx context.Context) (*ValidationResult, error) {
	ctx, span := tracer.Start(ctx, "migration.Validator.ValidateBeforeMigration")
	defer span.End()
	log := logger.FromContext(ctx)

	result := &ValidationResult{}

	missing, err := v.chapters.ListMissingBookRefs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check chapter book references: %w", err)
	}
	for _, ch := range missing {
		result.DataIntegrityChecks.MissingReferences++
		result.Errors = append(result.Errors,
			fmt.Sprintf("chapter %s references missing book %s", ch.ID, ch.BookID))
	}

	dups, err := v.chapters.ListDuplicateNumbers(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check duplicate chapter numbers: %w", err)
	}
	for _, dup := range dups {
		result.DataIntegrityChecks.DuplicateEntries++
		result.Errors = append(result.Errors,
			fmt.Sprintf("book %s has %d chapters numbered %d", dup.BookID, dup.Count, dup.ChapterNumber))
	}

	if err := v.recountChapterWords(ctx, result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	untitled, err := v.books.ListUntitled(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check book titles: %w", err)
	}
	for _, b := range untitled {
		result.Errors = append(result.Errors, fmt.Sprintf("book %s has an empty title", b.ID))
	}

	noAuthor, err := v.books.ListMissingAuthorRefs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check book author references: %w", err)
	}
	for _, b := range noAuthor {
		result.Errors = append(result.Errors,
			fmt.Sprintf("book %s references missing author %s", b.ID, b.AuthorID))
	}

	migrated, err := v.stories.ListBookIDsWithStories(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check existing hierarchy data: %w", err)
	}
	if len(migrated) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d books already have hierarchy data and will be skipped", len(migrated)))
	}

	result.IsValid = len(result.Errors) == 0
	v.recordValidation("before", result)
	metrics.ValidationIssues.WithLabelValues("missing_references").Add(float64(result.DataIntegrityChecks.MissingReferences))
	metrics.ValidationIssues.WithLabelValues("duplicate_entries").Add(float64(result.DataIntegrityChecks.DuplicateEntries))
	metrics.ValidationIssues.WithLabelValues("word_count_mismatches").Add(float64(result.DataIntegrityChecks.WordCountMismatches))

	log.Info("pre-migration validation finished",
		"is_valid", result.IsValid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// recountChapterWords 按正文抽取逐章重算缓存字数
func (v *Validator) recountChapterWords(ctx context.Context, result *ValidationResult) error {
	afterID := ""
	for {
		chapters, err := v.chapters.ListAfter(ctx, afterID, scanPageSize)
		if err != nil {
			return fmt.Errorf("failed to scan chapters: %w", err)
		}
		if len(chapters) == 0 {
			return nil
		}

		for _, ch := range chapters {
			text, err := ExtractPlainText(ch.Content)
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("chapter %s content cannot be parsed and will fail migration: %v", ch.ID, err))
				continue
			}
			if recount := CountWords(text); recount != ch.WordCount {
				result.DataIntegrityChecks.WordCountMismatches++
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("chapter %s cached word count %d differs from recount %d", ch.ID, ch.WordCount, recount))
			}
		}

		afterID = chapters[len(chapters)-1].ID
		if len(chapters) < scanPageSize {
			return nil
		}
	}
}

// ValidateAfterMigration 迁移后校验层级一致性
func (v *Validator) ValidateAfterMigration(ctx context.Context) (*ValidationResult, error) {
	ctx, span := tracer.Start(ctx, "migration.Validator.ValidateAfterMigration")
	defer span.End()
	log := logger.FromContext(ctx)

	result := &ValidationResult{}

	unmapped, err := v.chapters.ListUnmapped(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check chapter mappings: %w", err)
	}
	result.MigrationIntegrityChecks.UnmappedChapters = len(unmapped)
	if len(unmapped) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d source chapters of migrated books have no hierarchy chapter", len(unmapped)))
	}

	orphaned, err := v.scenes.ListOrphaned(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check orphaned scenes: %w", err)
	}
	result.MigrationIntegrityChecks.OrphanedScenes = len(orphaned)
	if len(orphaned) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d scenes reference a missing hierarchy chapter", len(orphaned)))
	}

	chaptersNoPart, err := v.enhanced.CountMissingPartRefs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check chapter part references: %w", err)
	}
	if chaptersNoPart > 0 {
		result.MigrationIntegrityChecks.IncorrectHierarchy += int(chaptersNoPart)
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d hierarchy chapters reference a missing part", chaptersNoPart))
	}

	partsNoStory, err := v.parts.CountMissingStoryRefs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check part story references: %w", err)
	}
	if partsNoStory > 0 {
		result.MigrationIntegrityChecks.IncorrectHierarchy += int(partsNoStory)
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d parts reference a missing story", partsNoStory))
	}

	result.IsValid = len(result.Errors) == 0
	v.recordValidation("after", result)
	metrics.ValidationIssues.WithLabelValues("unmapped_chapters").Add(float64(result.MigrationIntegrityChecks.UnmappedChapters))
	metrics.ValidationIssues.WithLabelValues("orphaned_scenes").Add(float64(result.MigrationIntegrityChecks.OrphanedScenes))
	metrics.ValidationIssues.WithLabelValues("incorrect_hierarchy").Add(float64(result.MigrationIntegrityChecks.IncorrectHierarchy))

	log.Info("post-migration validation finished",
		"is_valid", result.IsValid,
		"unmapped_chapters", result.MigrationIntegrityChecks.UnmappedChapters,
		"orphaned_scenes", result.MigrationIntegrityChecks.OrphanedScenes,
		"incorrect_hierarchy", result.MigrationIntegrityChecks.IncorrectHierarchy,
	)
	return result, nil
}

// CheckDataIntegrity 自底向上重算聚合字数并与存储值比对
// 场景按正文重新计数，其余层级按子行求和，任何不一致都计入
// WordCountMismatches。迁移前后皆可调用。
func (v *Validator) CheckDataIntegrity(ctx context.Context) (*ValidationResult, error) {
	ctx, span := tracer.Start(ctx, "migration.Validator.CheckDataIntegrity")
	defer span.End()
	log := logger.FromContext(ctx)

	result := &ValidationResult{}

	sceneMismatches, err := v.recountSceneWords(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sceneMismatches > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d scenes have word counts that do not match a recount of their content", sceneMismatches))
	}

	sceneSums, err := v.scenes.SumByChapter(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum scene word counts: %w", err)
	}
	chapterMismatches, err := v.checkChapterRollups(ctx, aggregateMap(sceneSums))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if chapterMismatches > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d hierarchy chapters have word counts that do not match the sum of their scenes", chapterMismatches))
	}

	chapterSums, err := v.enhanced.SumByPart(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum chapter word counts: %w", err)
	}
	partMismatches, err := v.checkPartRollups(ctx, aggregateMap(chapterSums))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if partMismatches > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d parts have word counts that do not match the sum of their chapters", partMismatches))
	}

	partSums, err := v.parts.SumByStory(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to sum part word counts: %w", err)
	}
	storyMismatches, err := v.checkStoryRollups(ctx, aggregateMap(partSums))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if storyMismatches > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d stories have word counts that do not match the sum of their parts", storyMismatches))
	}

	total := sceneMismatches + chapterMismatches + partMismatches + storyMismatches
	result.DataIntegrityChecks.WordCountMismatches = total
	result.IsValid = total == 0
	v.recordValidation("integrity", result)
	metrics.ValidationIssues.WithLabelValues("word_count_mismatches").Add(float64(total))

	log.Info("data integrity check finished",
		"is_valid", result.IsValid,
		"word_count_mismatches", total,
	)
	return result, nil
}

// recountSceneWords 逐场景按正文重算字数
func (v *Validator) recountSceneWords(ctx context.Context) (int, error) {
	mismatches := 0
	afterID := ""
	for {
		scenes, err := v.scenes.ListAfter(ctx, afterID, scanPageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to scan scenes: %w", err)
		}
		if len(scenes) == 0 {
			return mismatches, nil
		}

		for _, s := range scenes {
			if CountWords(s.Content) != s.WordCount {
				mismatches++
			}
		}

		afterID = scenes[len(scenes)-1].ID
		if len(scenes) < scanPageSize {
			return mismatches, nil
		}
	}
}

// checkChapterRollups 比对层级章节存储字数与场景求和
func (v *Validator) checkChapterRollups(ctx context.Context, sums map[string]int) (int, error) {
	mismatches := 0
	afterID := ""
	for {
		chapters, err := v.enhanced.ListAfter(ctx, afterID, scanPageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to scan hierarchy chapters: %w", err)
		}
		if len(chapters) == 0 {
			return mismatches, nil
		}

		for _, ch := range chapters {
			if ch.WordCount != sums[ch.ID] {
				mismatches++
			}
		}

		afterID = chapters[len(chapters)-1].ID
		if len(chapters) < scanPageSize {
			return mismatches, nil
		}
	}
}

// checkPartRollups 比对分部存储字数与章节求和
func (v *Validator) checkPartRollups(ctx context.Context, sums map[string]int) (int, error) {
	mismatches := 0
	afterID := ""
	for {
		parts, err := v.parts.ListAfter(ctx, afterID, scanPageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to scan parts: %w", err)
		}
		if len(parts) == 0 {
			return mismatches, nil
		}

		for _, p := range parts {
			if p.WordCount != sums[p.ID] {
				mismatches++
			}
		}

		afterID = parts[len(parts)-1].ID
		if len(parts) < scanPageSize {
			return mismatches, nil
		}
	}
}

// checkStoryRollups 比对故事存储字数与分部求和
func (v *Validator) checkStoryRollups(ctx context.Context, sums map[string]int) (int, error) {
	mismatches := 0
	afterID := ""
	for {
		stories, err := v.stories.ListAfter(ctx, afterID, scanPageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to scan stories: %w", err)
		}
		if len(stories) == 0 {
			return mismatches, nil
		}

		for _, s := range stories {
			if s.WordCount != sums[s.ID] {
				mismatches++
			}
		}

		afterID = stories[len(stories)-1].ID
		if len(stories) < scanPageSize {
			return mismatches, nil
		}
	}
}

func (v *Validator) recordValidation(phase string, result *ValidationResult) {
	status := "valid"
	if !result.IsValid {
		status = "invalid"
	}
	metrics.ValidationTotal.WithLabelValues(phase, status).Inc()
}

func aggregateMap(aggs []repository.WordCountAggregate) map[string]int {
	m := make(map[string]int, len(aggs))
	for _, a := range aggs {
		m[a.ParentID] = a.Total
	}
	return m
}
