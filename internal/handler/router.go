package handler

import (
	"aichat/internal/config"
	"aichat/internal/infrastructure/ai"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 注册所有路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, aiClient ai.Client, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(LoggerMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, aiClient, cfg)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// 公开接口
		v1.POST("/register", h.Register)
		v1.GET("/verify-email/:userId", h.VerifyEmail)
		v1.POST("/login", h.Login)
		v1.POST("/reset-password-request", h.RequestPasswordReset)
		v1.POST("/reset-password", h.ResetPassword)
		v1.GET("/lists", h.ListLists)
		v1.GET("/tiers", h.ListTiers)
		v1.GET("/tiers/:tierId", h.GetTier)

		// 登录后接口
		auth := v1.Group("")
		auth.Use(JwtAuthMiddleware(cfg))
		{
			auth.GET("/user", h.CurrentUser)
			auth.POST("/messages", h.SendMessage)
			auth.GET("/messages/:listId", h.GetMessages)
		}

		// 计费回调接口
		billing := v1.Group("/billing")
		billing.Use(WebhookAuthMiddleware(cfg))
		{
			billing.POST("/payment", h.ApplyPayment)
			billing.POST("/reconcile", h.Reconcile)
		}
	}

	return r
}
