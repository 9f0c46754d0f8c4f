package service

import (
	"context"
	"testing"
	"time"

	"aichat/internal/model"
	"aichat/internal/repository"
	"aichat/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewUserService(db, cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, "赵六", "zhaoliu@example.com", "11999990000", "senha123")
	require.NoError(t, err)

	// 注册即落免费档并赠送额度
	assert.Equal(t, cfg.Billing.FreeTierID, user.TierID)
	assert.Equal(t, cfg.Billing.SignupCredits, user.ResponsesAvailable)
	assert.Equal(t, model.PaymentStatusCurrent, user.PaymentStatus)
	assert.False(t, user.Verified)

	// 密码只存哈希
	assert.NotEqual(t, "senha123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("senha123")))

	_, err = svc.Register(ctx, "赵六", "zhaoliu@example.com", "11999990000", "outra")
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewUserService(db, cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, "赵六", "zhaoliu@example.com", "11999990000", "senha123")
	require.NoError(t, err)

	// 未验证邮箱拒绝登录
	_, _, err = svc.Login(ctx, "zhaoliu@example.com", "senha123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, svc.VerifyEmail(ctx, user.ID))

	jwt, logged, err := svc.Login(ctx, "zhaoliu@example.com", "senha123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	userID, err := token.Parse(jwt, []byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, _, err = svc.Login(ctx, "zhaoliu@example.com", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 不存在的邮箱与密码错误返回同一个错误
	_, _, err = svc.Login(ctx, "nobody@example.com", "senha123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordReset(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "赵六", "zhaoliu@example.com", "11999990000", "senha123")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyEmail(ctx, user.ID))

	resetToken, err := svc.RequestPasswordReset(ctx, "zhaoliu@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	// 未注册邮箱静默返回，不暴露是否存在
	silent, err := svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, silent)

	require.NoError(t, svc.ResetPassword(ctx, resetToken, "nova456"))

	_, _, err = svc.Login(ctx, "zhaoliu@example.com", "senha123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "zhaoliu@example.com", "nova456")
	assert.NoError(t, err)

	// 令牌一次性，重置后即失效
	err = svc.ResetPassword(ctx, resetToken, "outra789")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "赵六", "zhaoliu@example.com", "11999990000", "senha123")
	require.NoError(t, err)

	resetToken, err := svc.RequestPasswordReset(ctx, "zhaoliu@example.com")
	require.NoError(t, err)

	// 令牌过期
	expired := time.Now().Add(-time.Minute)
	_, err = repository.NewUserRepository(db).Update(ctx, nil, user.ID, map[string]interface{}{
		"reset_token_expires": expired,
	})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, resetToken, "nova456")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}
