package models

import (
	"time"
)

// DeniedPlaceholder 被屏蔽留言对所有读者展示的占位文案
const DeniedPlaceholder = "该留言已被设为私密"

// Message 留言模型
// Content 落库后不可变；屏蔽只是读取时的掩码，不改写原文。
// Reply 与 RepliedAt 要么同时为空、要么同时存在，且只能设置一次。
type Message struct {
	ID         string `gorm:"primaryKey" json:"id"`               // 创建时生成的 UUID
	MemberID   string `gorm:"not null;index" json:"member_id"`    // 所属留言墙主人
	SequenceNo int64  `gorm:"not null;index" json:"sequence_no"`  // 墙内单调递增、无空洞
	Content    string `gorm:"not null" json:"content"`

	// 留言人信息，匿名留言时两者皆空
	AuthorName     string `json:"author_name,omitempty"`
	AuthorPhotoURL string `json:"author_photo_url,omitempty"`

	Reply     *string    `json:"reply,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`

	Denied bool `gorm:"not null;default:false" json:"denied"`

	CreatedAt time.Time `json:"created_at"`

	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// Present 返回对外展示用的副本：被屏蔽的留言正文替换为占位文案，
// 其余字段原样透出。对所有读者一视同仁，墙主人也不例外。
func (m Message) Present() Message {
	if m.Denied {
		m.Content = DeniedPlaceholder
	}
	return m
}
