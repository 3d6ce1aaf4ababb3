package model

import (
	"time"
)

// ClickEvent 单次访问记录，只插入不更新
// country/city 预留给未来的地理解析，当前始终为 null
type ClickEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortLinkID uint      `gorm:"not null;index" json:"short_link_id"`
	Referrer    *string   `gorm:"type:text" json:"referrer"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent"`
	IPAddress   *string   `gorm:"size:45" json:"ip_address"`
	Country     *string   `gorm:"size:100" json:"country"`
	City        *string   `gorm:"size:100" json:"city"`
	ClickedAt   time.Time `gorm:"index" json:"clicked_at"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}
