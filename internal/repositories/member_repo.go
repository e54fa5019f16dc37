package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/WhisperWall/internal/models"
)

// MemberRepository 墙主人仓储
type MemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建墙主人仓储实例
func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add 注册墙主人；uid 已存在时不覆盖既有资料，返回 created=false
func (r *MemberRepository) Add(member *models.Member) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID 根据 uid 获取墙主人；不存在时返回 (nil, nil)
func (r *MemberRepository) GetByID(id string) (*models.Member, error) {
	return getMember(r.db, id)
}

// GetByIDTx 在事务内根据 uid 获取墙主人
func (r *MemberRepository) GetByIDTx(tx *gorm.DB, id string) (*models.Member, error) {
	return getMember(tx, id)
}

func getMember(db *gorm.DB, id string) (*models.Member, error) {
	var member models.Member
	if err := db.Where("id = ?", id).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// IncrementCounterTx 在事务内原子自增留言计数器
// 返回 false 表示墙主人不存在。行锁保证并发 post 串行化取号。
func (r *MemberRepository) IncrementCounterTx(tx *gorm.DB, id string) (bool, error) {
	result := tx.Model(&models.Member{}).
		Where("id = ?", id).
		UpdateColumn("message_counter", gorm.Expr("message_counter + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
