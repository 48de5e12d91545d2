// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Scene 场景实体（层级模型的叶子，迁移创建）
// Content 是从旧章节富文本载荷抽取的纯文本，WordCount 按该文本
// 重新计数，不沿用旧缓存值。
type Scene struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	ChapterID       string    `json:"chapter_id" gorm:"type:uuid;index;not null"`
	SourceChapterID string    `json:"source_chapter_id" gorm:"type:uuid;index"`
	MigrationRunID  string    `json:"migration_run_id" gorm:"type:uuid;index"`
	SortOrder       int       `json:"sort_order" gorm:"default:0"`
	Content         string    `json:"content,omitempty" gorm:"type:text"`
	WordCount       int       `json:"word_count" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Scene) TableName() string {
	return "scenes"
}

// NewScene 创建新场景
func NewScene(chapterID, sourceChapterID, migrationRunID string, sortOrder int, content string, wordCount int) *Scene {
	now := time.Now()
	return &Scene{
		ID:              uuid.NewString(),
		ChapterID:       chapterID,
		SourceChapterID: sourceChapterID,
		MigrationRunID:  migrationRunID,
		SortOrder:       sortOrder,
		Content:         content,
		WordCount:       wordCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
