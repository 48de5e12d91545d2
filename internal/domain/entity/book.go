// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookStatus 书籍状态
type BookStatus string

const (
	BookStatusDraft     BookStatus = "draft"
	BookStatusOngoing   BookStatus = "ongoing"
	BookStatusCompleted BookStatus = "completed"
	BookStatusHiatus    BookStatus = "hiatus"
)

// Book 书籍实体（旧扁平模型的根）
type Book struct {
	ID        string     `json:"id" gorm:"type:uuid;primaryKey"`
	AuthorID  string     `json:"author_id" gorm:"type:uuid;index;not null"`
	Title     string     `json:"title" gorm:"type:varchar(255)"`
	Status    BookStatus `json:"status" gorm:"type:varchar(50);default:'draft'"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// NewBook 创建新书籍
func NewBook(authorID, title string) *Book {
	now := time.Now()
	return &Book{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Title:     title,
		Status:    BookStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
