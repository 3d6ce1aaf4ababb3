package model

import (
	"time"

	"gorm.io/gorm"
)

// ShortLink 短链接模型
// 软删除由 gorm.DeletedAt 承担：删除后行保留，默认查询一律排除
type ShortLink struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	ShortCode   string         `gorm:"size:10;uniqueIndex;not null" json:"short_code"`
	OriginalURL string         `gorm:"type:text;not null" json:"original_url"`
	Clicks      int64          `gorm:"default:0" json:"clicks"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (ShortLink) TableName() string {
	return "short_links"
}
