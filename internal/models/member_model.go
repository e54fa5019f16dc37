package models

import (
	"time"
)

// Member 留言墙主人
// 记录本身由外部的身份/资料服务负责，这里只在注册时落库，
// 之后仅读写 MessageCounter 字段（下一条留言的序号）。
type Member struct {
	ID          string `gorm:"primaryKey" json:"id"` // 外部身份服务分配的 uid
	Email       string `gorm:"index" json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	// MessageCounter 恒等于 1 + 历史留言总数，在 post 事务内自增
	MessageCounter int64 `gorm:"not null;default:1" json:"message_counter"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}
