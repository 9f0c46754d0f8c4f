package handler

import (
	"errors"
	"strconv"
	"time"

	"aichat/internal/config"
	"aichat/internal/infrastructure/ai"
	"aichat/internal/repository"
	"aichat/internal/service"
	"aichat/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	userService    *service.UserService
	chatService    *service.ChatService
	billingService *service.BillingService
	catalogService *service.CatalogService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, aiClient ai.Client, cfg *config.Config) *Handler {
	return &Handler{
		userService:    service.NewUserService(db, cfg),
		chatService:    service.NewChatService(db, rdb, aiClient, cfg),
		billingService: service.NewBillingService(db, cfg),
		catalogService: service.NewCatalogService(db),
	}
}

// ============================================================
// 认证相关接口
// ============================================================

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 注册
// POST /api/v1/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.BusinessError(c, 400, response.CodeEmailExists, "邮箱已注册")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"message": "注册成功，请验证邮箱",
		"user":    user,
	})
}

// VerifyEmail 邮箱验证
// GET /api/v1/verify-email/:userId
func (h *Handler) VerifyEmail(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		response.ParamError(c, "userId 参数错误")
		return
	}

	if err := h.userService.VerifyEmail(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, response.CodeUserNotFound, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "邮箱验证成功"})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/v1/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	jwt, user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, "邮箱或密码错误")
		case errors.Is(err, service.ErrEmailNotVerified):
			response.Unauthorized(c, "邮箱未验证，请先完成验证")
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"token": jwt,
		"user":  user,
	})
}

// CurrentUser 当前登录用户
// GET /api/v1/user
func (h *Handler) CurrentUser(c *gin.Context) {
	userID := c.GetInt64(ContextUserID)

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Unauthorized(c, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, user)
}

type ResetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset 申请密码重置
// POST /api/v1/reset-password-request
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if _, err := h.userService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	// 无论邮箱是否存在都返回同样的提示
	response.Success(c, gin.H{"message": "如果邮箱已注册，重置邮件已发送"})
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword 重置密码
// POST /api/v1/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			response.BusinessError(c, 400, response.CodeTokenInvalid, "重置令牌无效或已过期")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "密码已更新"})
}

// ============================================================
// 目录相关接口
// ============================================================

// ListLists AI 分类列表
// GET /api/v1/lists
func (h *Handler) ListLists(c *gin.Context) {
	lists, err := h.catalogService.ListLists(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, lists)
}

// ListTiers 订阅档位列表
// GET /api/v1/tiers
func (h *Handler) ListTiers(c *gin.Context) {
	tiers, err := h.catalogService.ListTiers(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, tiers)
}

// GetTier 单个订阅档位
// GET /api/v1/tiers/:tierId
func (h *Handler) GetTier(c *gin.Context) {
	tierID, err := strconv.ParseInt(c.Param("tierId"), 10, 64)
	if err != nil {
		response.ParamError(c, "tierId 参数错误")
		return
	}

	tier, err := h.catalogService.GetTier(c.Request.Context(), tierID)
	if err != nil {
		if errors.Is(err, repository.ErrTierNotFound) {
			response.NotFound(c, response.CodeTierNotFound, "订阅档位不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, tier)
}

// ============================================================
// 聊天相关接口
// ============================================================

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	ListaID int64  `json:"lista_id" binding:"required"`
}

// SendMessage 发送消息并扣费
// POST /api/v1/messages
//
// 额度不足返回 403 + 业务码 2001，前端据此引导升级；
// AI 服务失败返回 500，本轮不落库不扣费
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), &service.SendMessageRequest{
		UserID:  c.GetInt64(ContextUserID),
		ListaID: req.ListaID,
		Content: req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, response.CodeUserNotFound, "用户不存在")
		case errors.Is(err, service.ErrInsufficientCredit):
			response.Forbidden(c, response.CodeInsufficientCredit, "回复次数不足")
		case errors.Is(err, ai.ErrUpstream):
			response.BusinessError(c, 500, response.CodeUpstreamError, "获取 AI 回复失败")
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Created(c, result)
}

// GetMessages 单分类的聊天记录
// GET /api/v1/messages/:listId
func (h *Handler) GetMessages(c *gin.Context) {
	listaID, err := strconv.ParseInt(c.Param("listId"), 10, 64)
	if err != nil {
		response.ParamError(c, "listId 参数错误")
		return
	}

	messages, err := h.chatService.History(c.Request.Context(), c.GetInt64(ContextUserID), listaID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Unauthorized(c, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, messages)
}

// ============================================================
// 计费相关接口（外部系统回调，共享密钥鉴权）
// ============================================================

type PaymentRequest struct {
	UserID  int64 `json:"user_id" binding:"required"`
	Credits int64 `json:"credits" binding:"required,gt=0"`
}

// ApplyPayment 外部计费系统入账回调
// POST /api/v1/billing/payment
func (h *Handler) ApplyPayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.billingService.ApplyPayment(c.Request.Context(), req.UserID, req.Credits, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, response.CodeUserNotFound, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"message": "入账成功",
		"user":    user,
	})
}

// Reconcile 触发一次全量对账
// POST /api/v1/billing/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	result, err := h.billingService.ReconcileAll(c.Request.Context(), time.Now())
	if result == nil {
		response.ServerError(c, err.Error())
		return
	}

	// 单账户失败不影响批次结果，错误已汇总在 err 中由服务层记录
	response.Success(c, result)
}
