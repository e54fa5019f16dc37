package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/WhisperWall/internal/services"
	apperrors "github.com/Gopher0727/WhisperWall/pkg/errors"
	"github.com/Gopher0727/WhisperWall/pkg/utils"
)

// MemberHandler 墙主人处理器
type MemberHandler struct {
	memberService *services.MemberService
	tokens        *utils.TokenManager
	logger        *zap.Logger
}

// NewMemberHandler 创建墙主人处理器实例
func NewMemberHandler(memberService *services.MemberService, tokens *utils.TokenManager, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		tokens:        tokens,
		logger:        logger,
	}
}

// Register 注册一面留言墙，重复提交同一 uid 是幂等的
// POST /api/v1/members
func (h *MemberHandler) Register(c *gin.Context) {
	var req services.RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.memberService.Register(c.Request.Context(), &req)
	if err != nil {
		h.abortWithError(c, "Register", err)
		return
	}

	// 注册成功后代签 Token，墙主人用它操作屏蔽接口。
	// 正式部署中签发方是外部身份服务，这里只是没有它时的替身。
	token, err := h.tokens.Generate(req.UID, req.Email)
	if err != nil {
		h.logger.Error("签发 Token 失败", zap.String("member_id", req.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"id": req.UID, "token": token})
}

// Get 获取墙主人公开资料
// GET /api/v1/members/:member_id
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.memberService.Get(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		h.abortWithError(c, "Get", err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) abortWithError(c *gin.Context, op string, err error) {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeBadRequest, apperrors.CodeOwnerNotFound:
		c.JSON(http.StatusBadRequest, gin.H{"code": code, "error": err.Error()})
	default:
		h.logger.Error("请求处理失败", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
