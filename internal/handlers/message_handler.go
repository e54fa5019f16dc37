package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/WhisperWall/internal/middlewares"
	"github.com/Gopher0727/WhisperWall/internal/services"
	apperrors "github.com/Gopher0727/WhisperWall/pkg/errors"
)

// MessageHandler 留言处理器
type MessageHandler struct {
	messageService *services.MessageService
	logger         *zap.Logger
}

// NewMessageHandler 创建留言处理器实例
func NewMessageHandler(messageService *services.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// PostMessage 发布留言（匿名可用）
// POST /api/v1/members/:member_id/messages
func (h *MessageHandler) PostMessage(c *gin.Context) {
	memberID := c.Param("member_id")

	var req services.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.messageService.Post(c.Request.Context(), memberID, &req)
	if err != nil {
		h.abortWithError(c, "PostMessage", memberID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetMessage 获取单条留言
// GET /api/v1/members/:member_id/messages/:message_id
func (h *MessageHandler) GetMessage(c *gin.Context) {
	memberID := c.Param("member_id")
	messageID := c.Param("message_id")

	message, err := h.messageService.Get(c.Request.Context(), memberID, messageID)
	if err != nil {
		h.abortWithError(c, "GetMessage", memberID, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// ListMessages 分页获取留言列表
// GET /api/v1/members/:member_id/messages?page=1&size=10
func (h *MessageHandler) ListMessages(c *gin.Context) {
	memberID := c.Param("member_id")

	page := int64(1)
	size := int64(0) // 0 让服务层回落到默认 size

	if p := c.Query("page"); p != "" {
		if v, err := strconv.ParseInt(p, 10, 64); err == nil && v > 0 {
			page = v
		}
	}
	if s := c.Query("size"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			size = v
		}
	}

	result, err := h.messageService.ListWithPage(c.Request.Context(), memberID, page, size)
	if err != nil {
		h.abortWithError(c, "ListMessages", memberID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PostReply 墙主人回复留言
// POST /api/v1/members/:member_id/messages/:message_id/reply
func (h *MessageHandler) PostReply(c *gin.Context) {
	memberID := c.Param("member_id")
	messageID := c.Param("message_id")

	var req struct {
		Reply string `json:"reply" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageService.PostReply(c.Request.Context(), memberID, messageID, req.Reply); err != nil {
		h.abortWithError(c, "PostReply", memberID, err)
		return
	}

	c.Status(http.StatusCreated)
}

// SetVisibility 切换留言屏蔽状态，只有墙主人本人可以操作
// PUT /api/v1/members/:member_id/messages/:message_id/deny
func (h *MessageHandler) SetVisibility(c *gin.Context) {
	memberID := c.Param("member_id")
	messageID := c.Param("message_id")

	// 认证身份必须与路径里的墙主人一致
	tokenMemberID, exists := c.Get(middlewares.ContextMemberID)
	if !exists || tokenMemberID.(string) != memberID {
		h.abortWithError(c, "SetVisibility", memberID, apperrors.ErrCredentialMismatch)
		return
	}

	var req struct {
		Denied *bool `json:"denied" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.SetVisibility(c.Request.Context(), memberID, messageID, *req.Denied)
	if err != nil {
		h.abortWithError(c, "SetVisibility", memberID, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// abortWithError 按错误分类映射 HTTP 状态码
// 领域错误原样透出给调用方，其余错误一律 500 并只在日志里留详情。
func (h *MessageHandler) abortWithError(c *gin.Context, op, memberID string, err error) {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeBadRequest, apperrors.CodeOwnerNotFound,
		apperrors.CodeMessageNotFound, apperrors.CodeDuplicateReply:
		c.JSON(http.StatusBadRequest, gin.H{"code": code, "error": err.Error()})
	case apperrors.CodeUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"code": code, "error": err.Error()})
	default:
		h.logger.Error("请求处理失败",
			zap.String("op", op),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
