// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPartTitle 单分部策略下创建的分部标题
const DefaultPartTitle = "Part One"

// Part 分部实体（故事下的分卷，迁移创建）
type Part struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	StoryID        string    `json:"story_id" gorm:"type:uuid;index;not null"`
	MigrationRunID string    `json:"migration_run_id" gorm:"type:uuid;index"`
	Title          string    `json:"title" gorm:"type:varchar(255)"`
	PartNumber     int       `json:"part_number" gorm:"default:1"`
	WordCount      int       `json:"word_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Part) TableName() string {
	return "parts"
}

// NewPart 创建新分部
func NewPart(storyID, migrationRunID, title string, partNumber int) *Part {
	now := time.Now()
	return &Part{
		ID:             uuid.NewString(),
		StoryID:        storyID,
		MigrationRunID: migrationRunID,
		Title:          title,
		PartNumber:     partNumber,
		WordCount:      0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
