package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/WhisperWall/internal/models"
	"github.com/Gopher0727/WhisperWall/internal/repositories"
	apperrors "github.com/Gopher0727/WhisperWall/pkg/errors"
)

// MemberService 墙主人服务
// 身份认证由外部服务负责，这里只维护已验证身份对应的墙记录。
type MemberService struct {
	db         *gorm.DB
	memberRepo *repositories.MemberRepository
}

// NewMemberService 创建墙主人服务实例
func NewMemberService(db *gorm.DB, memberRepo *repositories.MemberRepository) *MemberService {
	return &MemberService{db: db, memberRepo: memberRepo}
}

// RegisterMemberRequest 注册请求，UID 来自外部身份服务
type RegisterMemberRequest struct {
	UID         string `json:"uid" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// MemberDTO 墙主人数据传输对象
type MemberDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// Register 注册一面留言墙，重复注册不覆盖已有资料
// 返回 true 表示本次新建，false 表示 uid 已存在。
func (s *MemberService) Register(ctx context.Context, req *RegisterMemberRequest) (bool, error) {
	if req.UID == "" {
		return false, apperrors.ErrMissingOwnerID
	}
	if req.Email == "" {
		return false, apperrors.BadRequest("email is required")
	}

	member := &models.Member{
		ID:          req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		// MessageCounter 从 1 起步：第一条留言的序号是 1
		MessageCounter: 1,
	}
	return s.memberRepo.Add(member)
}

// Get 获取墙主人资料
func (s *MemberService) Get(ctx context.Context, memberID string) (*MemberDTO, error) {
	if memberID == "" {
		return nil, apperrors.ErrMissingOwnerID
	}

	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.ErrOwnerNotFound
	}
	return &MemberDTO{
		ID:          member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		PhotoURL:    member.PhotoURL,
	}, nil
}
