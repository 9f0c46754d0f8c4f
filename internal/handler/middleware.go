package handler

import (
	"log"
	"strings"
	"time"

	"aichat/internal/config"
	"aichat/pkg/response"
	"aichat/pkg/token"

	"github.com/gin-gonic/gin"
)

// ContextUserID JWT 鉴权后写入 gin 上下文的键
const ContextUserID = "user_id"

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		log.Printf("[HTTP] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), latency)
	}
}

// RecoveryMiddleware 恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Panic] %v", err)
				response.ServerError(c, "服务器内部错误")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Billing-Secret")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// JwtAuthMiddleware JWT 鉴权，通过后将 user_id 写入上下文
func JwtAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少 Authorization 头")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if raw == authHeader {
			response.Unauthorized(c, "Authorization 格式错误")
			c.Abort()
			return
		}

		userID, err := token.Parse(raw, []byte(cfg.Auth.JWTSecret))
		if err != nil {
			response.Unauthorized(c, "令牌无效或已过期")
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// WebhookAuthMiddleware 计费回调鉴权，校验共享密钥
func WebhookAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Billing-Secret") != cfg.Auth.WebhookSecret {
			response.Unauthorized(c, "回调密钥错误")
			c.Abort()
			return
		}
		c.Next()
	}
}
