// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Author 作者实体
type Author struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	PenName   string    `json:"pen_name" gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Author) TableName() string {
	return "authors"
}

// NewAuthor 创建新作者
func NewAuthor(penName string) *Author {
	now := time.Now()
	return &Author{
		ID:        uuid.NewString(),
		PenName:   penName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
