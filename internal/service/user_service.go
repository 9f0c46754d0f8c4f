package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"aichat/internal/config"
	"aichat/internal/model"
	"aichat/internal/repository"
	"aichat/pkg/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrEmailNotVerified   = errors.New("邮箱未验证")
	ErrResetTokenInvalid  = errors.New("重置令牌无效或已过期")
)

// UserService 注册、登录与密码重置。
// 邮件发送是日志桩：真实投递由外部邮件服务承担
type UserService struct {
	db       *gorm.DB
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{
		db:       db,
		cfg:      cfg,
		userRepo: repository.NewUserRepository(db),
	}
}

// Register 创建用户：免费档、注册赠送额度、未验证状态
func (s *UserService) Register(ctx context.Context, name, email, phone, password string) (*model.User, error) {
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, repository.ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Name:               name,
		Email:              email,
		Phone:              phone,
		Password:           string(hashed),
		Verified:           false,
		ResponsesAvailable: s.cfg.Billing.SignupCredits,
		TierID:             s.cfg.Billing.FreeTierID,
		PaymentStatus:      model.PaymentStatusCurrent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	log.Printf("[Email] 验证链接: /api/v1/verify-email/%d", user.ID)
	return user, nil
}

// VerifyEmail 标记邮箱已验证
func (s *UserService) VerifyEmail(ctx context.Context, userID int64) error {
	_, err := s.userRepo.Update(ctx, nil, userID, map[string]interface{}{
		"verified": true,
	})
	return err
}

// Login 校验凭证并签发 JWT，未验证邮箱的用户拒绝登录
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !user.Verified {
		return "", nil, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	jwt, err := token.Generate(user.ID, []byte(s.cfg.Auth.JWTSecret), s.cfg.Auth.TokenTTL())
	if err != nil {
		return "", nil, fmt.Errorf("签发令牌失败: %w", err)
	}

	return jwt, user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// RequestPasswordReset 生成 1 小时有效的重置令牌。
// 邮箱不存在时静默返回空串，不向调用方泄露邮箱是否注册
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil
		}
		return "", err
	}

	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成令牌失败: %w", err)
	}
	resetToken := hex.EncodeToString(buf)
	expires := time.Now().Add(time.Hour)

	if _, err := s.userRepo.Update(ctx, nil, user.ID, map[string]interface{}{
		"reset_token":         resetToken,
		"reset_token_expires": expires,
	}); err != nil {
		return "", err
	}

	log.Printf("[Email] 密码重置链接: /reset-password?token=%s", resetToken)
	return resetToken, nil
}

// ResetPassword 按未过期令牌重置密码并清除令牌
func (s *UserService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	user, err := s.userRepo.GetByResetToken(ctx, resetToken, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	_, err = s.userRepo.Update(ctx, nil, user.ID, map[string]interface{}{
		"password":            string(hashed),
		"reset_token":         "",
		"reset_token_expires": nil,
	})
	return err
}
