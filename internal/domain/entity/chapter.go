// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chapter 旧模型章节实体
// Content 保存富文本块结构的 JSON 文档，WordCount 为冗余缓存，
// 必须与正文抽取后的重新计数一致。旧表对 (book_id, chapter_number)
// 没有唯一约束，重复序号由迁移前校验检出。
type Chapter struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	BookID        string    `json:"book_id" gorm:"type:uuid;index;not null"`
	ChapterNumber int       `json:"chapter_number" gorm:"not null"`
	Title         string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content       string    `json:"content,omitempty" gorm:"type:jsonb"`
	WordCount     int       `json:"word_count" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(bookID string, chapterNumber int, title string) *Chapter {
	now := time.Now()
	return &Chapter{
		ID:            uuid.NewString(),
		BookID:        bookID,
		ChapterNumber: chapterNumber,
		Title:         title,
		WordCount:     0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetContent 设置章节内容与缓存字数
func (c *Chapter) SetContent(content string, wordCount int) {
	c.Content = content
	c.WordCount = wordCount
	c.UpdatedAt = time.Now()
}
