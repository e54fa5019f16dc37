package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Gopher0727/WhisperWall/internal/models"
)

// MessageRepository 留言仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建留言仓储实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateTx 在事务内创建留言
func (r *MessageRepository) CreateTx(tx *gorm.DB, message *models.Message) error {
	return tx.Create(message).Error
}

// GetByIDTx 在事务内获取某面墙上的一条留言；不存在时返回 (nil, nil)
func (r *MessageRepository) GetByIDTx(tx *gorm.DB, memberID, messageID string) (*models.Message, error) {
	var message models.Message
	err := tx.Where("member_id = ? AND id = ?", memberID, messageID).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// ListByCreated 获取整面墙的留言，按创建时间倒序
func (r *MessageRepository) ListByCreated(db *gorm.DB, memberID string) ([]models.Message, error) {
	var messages []models.Message
	err := db.Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&messages).Error
	return messages, err
}

// ListBySequenceWindow 按序号窗口获取留言：sequence_no <= startAt，
// 倒序取 limit 条。配合 pagination.ComputeWindow 实现最新在前的翻页。
func (r *MessageRepository) ListBySequenceWindow(db *gorm.DB, memberID string, startAt, limit int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.Where("member_id = ? AND sequence_no <= ?", memberID, startAt).
		Order("sequence_no DESC").
		Limit(int(limit)).
		Find(&messages).Error
	return messages, err
}

// SetReplyTx 在事务内写入回复及其时间戳（两者同批提交）
// 条件更新只命中 reply 尚空的行：read committed 下并发回复也只有
// 一个写入者能改到行，已写入的回复不会被覆盖。
// 返回 false 表示回复已存在。
func (r *MessageRepository) SetReplyTx(tx *gorm.DB, messageID string, reply string, repliedAt time.Time) (bool, error) {
	result := tx.Model(&models.Message{}).
		Where("id = ? AND reply IS NULL", messageID).
		Updates(map[string]any{"reply": reply, "replied_at": repliedAt})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetDeniedTx 在事务内切换屏蔽标记
func (r *MessageRepository) SetDeniedTx(tx *gorm.DB, messageID string, denied bool) error {
	return tx.Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("denied", denied).Error
}
