// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStoryTitle 单故事策略下创建的故事标题
const DefaultStoryTitle = "Main Story"

// Story 故事实体（层级模型的根，迁移创建）
// MigrationRunID 标记创建该行的迁移运行，回滚按此标记批量删除。
type Story struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	BookID         string    `json:"book_id" gorm:"type:uuid;index;not null"`
	MigrationRunID string    `json:"migration_run_id" gorm:"type:uuid;index"`
	Title          string    `json:"title" gorm:"type:varchar(255)"`
	SortOrder      int       `json:"sort_order" gorm:"default:0"`
	WordCount      int       `json:"word_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Story) TableName() string {
	return "stories"
}

// NewStory 创建新故事
func NewStory(bookID, migrationRunID, title string, sortOrder int) *Story {
	now := time.Now()
	return &Story{
		ID:             uuid.NewString(),
		BookID:         bookID,
		MigrationRunID: migrationRunID,
		Title:          title,
		SortOrder:      sortOrder,
		WordCount:      0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
