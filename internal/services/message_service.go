package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/WhisperWall/internal/models"
	"github.com/Gopher0727/WhisperWall/internal/repositories"
	apperrors "github.com/Gopher0727/WhisperWall/pkg/errors"
	"github.com/Gopher0727/WhisperWall/pkg/mq"
	"github.com/Gopher0727/WhisperWall/pkg/pagination"
)

// EventPublisher 领域事件出口，nil 表示降级运行（不发事件）
type EventPublisher interface {
	Publish(event mq.Event) error
}

// MessageService 留言墙核心服务
// post / 回复 / 屏蔽都在单个数据库事务内完成：计数器读写、留言读写
// 要么全部提交、要么全部回滚，读者永远看不到中间状态。
type MessageService struct {
	db          *gorm.DB
	memberRepo  *repositories.MemberRepository
	messageRepo *repositories.MessageRepository
	redisClient *redis.Client // 可为 nil：不启用首页缓存
	publisher   EventPublisher
	logger      *zap.Logger

	defaultPageSize int64
	maxPageSize     int64
	maxContentLen   int
	cacheTTL        time.Duration
}

// MessageServiceOptions 业务参数，零值回落到默认配置
type MessageServiceOptions struct {
	DefaultPageSize int64
	MaxPageSize     int64
	MaxContentLen   int
	CacheTTL        time.Duration
}

// NewMessageService 创建留言服务实例
func NewMessageService(
	db *gorm.DB,
	memberRepo *repositories.MemberRepository,
	messageRepo *repositories.MessageRepository,
	redisClient *redis.Client,
	publisher EventPublisher,
	logger *zap.Logger,
	opts MessageServiceOptions,
) *MessageService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.MaxContentLen <= 0 {
		opts.MaxContentLen = 1000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	return &MessageService{
		db:              db,
		memberRepo:      memberRepo,
		messageRepo:     messageRepo,
		redisClient:     redisClient,
		publisher:       publisher,
		logger:          logger,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
		maxContentLen:   opts.MaxContentLen,
		cacheTTL:        opts.CacheTTL,
	}
}

// AuthorInfo 留言人信息；整体缺省表示匿名留言
type AuthorInfo struct {
	DisplayName string `json:"display_name" binding:"required"`
	PhotoURL    string `json:"photo_url"`
}

// PostMessageRequest 发布留言请求
type PostMessageRequest struct {
	Content string      `json:"content" binding:"required"`
	Author  *AuthorInfo `json:"author"`
}

// MessageDTO 留言数据传输对象
type MessageDTO struct {
	ID         string      `json:"id"`
	SequenceNo int64       `json:"sequence_no"`
	Content    string      `json:"content"`
	Author     *AuthorInfo `json:"author,omitempty"`
	Reply      *string     `json:"reply,omitempty"`
	RepliedAt  *string     `json:"replied_at,omitempty"`
	Denied     bool        `json:"denied"`
	CreatedAt  string      `json:"created_at"`
}

// MessageListDTO 分页结果
type MessageListDTO struct {
	TotalElements int64        `json:"total_elements"`
	TotalPages    int64        `json:"total_pages"`
	Page          int64        `json:"page"`
	Size          int64        `json:"size"`
	Content       []MessageDTO `json:"content"`
}

// Post 发布一条留言并为其分配序号
// 计数器自增、留言落库在同一事务内：并发 post 拿到的序号连续且不重复。
func (s *MessageService) Post(ctx context.Context, memberID string, req *PostMessageRequest) (string, error) {
	if memberID == "" {
		return "", apperrors.ErrMissingOwnerID
	}
	if req.Content == "" {
		return "", apperrors.ErrMissingContent
	}
	if len(req.Content) > s.maxContentLen {
		return "", apperrors.BadRequest("message content too long")
	}

	message := &models.Message{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if req.Author != nil {
		message.AuthorName = req.Author.DisplayName
		message.AuthorPhotoURL = req.Author.PhotoURL
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先抢行锁自增计数器，墙主人不存在则整个事务回滚
		ok, err := s.memberRepo.IncrementCounterTx(tx, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrOwnerNotFound
		}

		// 读回自增后的计数器，本条留言的序号 = 新计数器 - 1
		member, err := s.memberRepo.GetByIDTx(tx, memberID)
		if err != nil {
			return err
		}
		message.SequenceNo = member.MessageCounter - 1

		return s.messageRepo.CreateTx(tx, message)
	})
	if err != nil {
		return "", err
	}

	s.invalidateCache(ctx, memberID)
	s.publish(mq.Event{
		Type:       mq.EventMessagePosted,
		MemberID:   memberID,
		MessageID:  message.ID,
		SequenceNo: message.SequenceNo,
		At:         message.CreatedAt,
	})

	return message.ID, nil
}

// Get 获取单条留言（屏蔽的正文已替换为占位文案）
func (s *MessageService) Get(ctx context.Context, memberID, messageID string) (*MessageDTO, error) {
	if memberID == "" {
		return nil, apperrors.ErrMissingOwnerID
	}
	if messageID == "" {
		return nil, apperrors.ErrMissingMessageID
	}

	var dto *MessageDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		message, err := s.loadMessageTx(tx, memberID, messageID)
		if err != nil {
			return err
		}
		dto = toMessageDTO(message.Present())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// List 获取整面墙的留言，按创建时间倒序，逐条做屏蔽掩码
func (s *MessageService) List(ctx context.Context, memberID string) ([]MessageDTO, error) {
	if memberID == "" {
		return nil, apperrors.ErrMissingOwnerID
	}

	var dtos []MessageDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.GetByIDTx(tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return apperrors.ErrOwnerNotFound
		}

		messages, err := s.messageRepo.ListByCreated(tx, memberID)
		if err != nil {
			return err
		}
		dtos = make([]MessageDTO, 0, len(messages))
		for _, m := range messages {
			dtos = append(dtos, *toMessageDTO(m.Present()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

// ListWithPage 分页获取留言，最新在前
// 窗口由墙主人的计数器推导（见 pkg/pagination）：窗口上界取自计数器，
// 之后并发提交的新留言序号更大、落在窗口之外，单次调用内
// total 与 content 必然一致。
func (s *MessageService) ListWithPage(ctx context.Context, memberID string, page, size int64) (*MessageListDTO, error) {
	if memberID == "" {
		return nil, apperrors.ErrMissingOwnerID
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.defaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}

	if cached := s.cachedFirstPage(ctx, memberID, page, size); cached != nil {
		return cached, nil
	}

	var result *MessageListDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.GetByIDTx(tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return apperrors.ErrOwnerNotFound
		}

		w := pagination.ComputeWindow(member.MessageCounter, page, size)
		result = &MessageListDTO{
			TotalElements: w.TotalElements,
			TotalPages:    w.TotalPages,
			Page:          page,
			Size:          size,
			Content:       []MessageDTO{},
		}
		if w.Count == 0 {
			return nil
		}

		messages, err := s.messageRepo.ListBySequenceWindow(tx, memberID, w.StartAt, size)
		if err != nil {
			return err
		}
		for _, m := range messages {
			result.Content = append(result.Content, *toMessageDTO(m.Present()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fillFirstPageCache(ctx, memberID, page, size, result)
	return result, nil
}

// PostReply 墙主人回复一条留言，每条留言只能回复一次
func (s *MessageService) PostReply(ctx context.Context, memberID, messageID, reply string) error {
	if memberID == "" {
		return apperrors.ErrMissingOwnerID
	}
	if messageID == "" {
		return apperrors.ErrMissingMessageID
	}
	if reply == "" {
		return apperrors.ErrMissingReply
	}

	repliedAt := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadMessageTx(tx, memberID, messageID); err != nil {
			return err
		}
		// 回复只能写入一次。靠条件更新保证：并发回复时只有一个
		// 写入者的 UPDATE 能命中 reply 仍为空的行，原回复保持不变。
		ok, err := s.messageRepo.SetReplyTx(tx, messageID, reply, repliedAt)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrDuplicateReply
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx, memberID)
	s.publish(mq.Event{
		Type:      mq.EventReplyPosted,
		MemberID:  memberID,
		MessageID: messageID,
		At:        repliedAt,
	})
	return nil
}

// SetVisibility 切换留言的屏蔽标记，可反复切换
// 返回更新后的记录（不做掩码，与旧版接口行为保持一致）。
func (s *MessageService) SetVisibility(ctx context.Context, memberID, messageID string, denied bool) (*MessageDTO, error) {
	if memberID == "" {
		return nil, apperrors.ErrMissingOwnerID
	}
	if messageID == "" {
		return nil, apperrors.ErrMissingMessageID
	}

	var dto *MessageDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		message, err := s.loadMessageTx(tx, memberID, messageID)
		if err != nil {
			return err
		}
		if err := s.messageRepo.SetDeniedTx(tx, messageID, denied); err != nil {
			return err
		}
		message.Denied = denied
		dto = toMessageDTO(*message)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, memberID)
	s.publish(mq.Event{
		Type:      mq.EventVisibilityUpdated,
		MemberID:  memberID,
		MessageID: messageID,
		Denied:    &denied,
		At:        time.Now(),
	})
	return dto, nil
}

// loadMessageTx 在事务内定位墙主人与留言，二者任一缺失都视为领域错误
func (s *MessageService) loadMessageTx(tx *gorm.DB, memberID, messageID string) (*models.Message, error) {
	member, err := s.memberRepo.GetByIDTx(tx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.ErrOwnerNotFound
	}

	message, err := s.messageRepo.GetByIDTx(tx, memberID, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (s *MessageService) publish(event mq.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		// 事件只服务于外部协作方，发送失败不影响本次操作
		s.logger.Warn("发布领域事件失败",
			zap.String("type", event.Type),
			zap.String("member_id", event.MemberID),
			zap.Error(err),
		)
	}
}

func (s *MessageService) firstPageCacheKey(memberID string) string {
	return "member:" + memberID + ":messages:first_page"
}

// cachedFirstPage 只缓存默认参数的第一页，命中直接返回
func (s *MessageService) cachedFirstPage(ctx context.Context, memberID string, page, size int64) *MessageListDTO {
	if s.redisClient == nil || page != 1 || size != s.defaultPageSize {
		return nil
	}
	raw, err := s.redisClient.Get(ctx, s.firstPageCacheKey(memberID)).Result()
	if err != nil {
		return nil
	}
	var dto MessageListDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil
	}
	return &dto
}

func (s *MessageService) fillFirstPageCache(ctx context.Context, memberID string, page, size int64, dto *MessageListDTO) {
	if s.redisClient == nil || page != 1 || size != s.defaultPageSize {
		return
	}
	bytes, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, s.firstPageCacheKey(memberID), bytes, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("写入首页缓存失败", zap.String("member_id", memberID), zap.Error(err))
	}
}

// invalidateCache 任何写操作后丢弃这面墙的首页缓存
func (s *MessageService) invalidateCache(ctx context.Context, memberID string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, s.firstPageCacheKey(memberID)).Err(); err != nil {
		s.logger.Warn("失效首页缓存失败", zap.String("member_id", memberID), zap.Error(err))
	}
}

func toMessageDTO(m models.Message) *MessageDTO {
	dto := &MessageDTO{
		ID:         m.ID,
		SequenceNo: m.SequenceNo,
		Content:    m.Content,
		Reply:      m.Reply,
		Denied:     m.Denied,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
	if m.AuthorName != "" || m.AuthorPhotoURL != "" {
		dto.Author = &AuthorInfo{
			DisplayName: m.AuthorName,
			PhotoURL:    m.AuthorPhotoURL,
		}
	}
	if m.RepliedAt != nil {
		at := m.RepliedAt.Format(time.RFC3339)
		dto.RepliedAt = &at
	}
	return dto
}
