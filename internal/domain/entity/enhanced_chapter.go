// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// EnhancedChapter 层级模型章节实体（迁移创建）
// GlobalChapterNumber 是整次迁移内的全局连续序号，而非分部内序号。
// SourceChapterID 记录来源旧章节，用于迁移后的 1:1 映射校验。
type EnhancedChapter struct {
	ID                  string    `json:"id" gorm:"type:uuid;primaryKey"`
	PartID              string    `json:"part_id" gorm:"type:uuid;index;not null"`
	SourceChapterID     string    `json:"source_chapter_id" gorm:"type:uuid;index"`
	MigrationRunID      string    `json:"migration_run_id" gorm:"type:uuid;index"`
	Title               string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	GlobalChapterNumber int       `json:"global_chapter_number" gorm:"not null"`
	WordCount           int       `json:"word_count" gorm:"default:0"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (EnhancedChapter) TableName() string {
	return "enhanced_chapters"
}

// NewEnhancedChapter 创建新层级章节
func NewEnhancedChapter(partID, sourceChapterID, migrationRunID, title string, globalChapterNumber int) *EnhancedChapter {
	now := time.Now()
	return &EnhancedChapter{
		ID:                  uuid.NewString(),
		PartID:              partID,
		SourceChapterID:     sourceChapterID,
		MigrationRunID:      migrationRunID,
		Title:               title,
		GlobalChapterNumber: globalChapterNumber,
		WordCount:           0,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
