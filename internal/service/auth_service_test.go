package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Christine-samola/Sistem-presensi/internal/dto"
	"github.com/Christine-samola/Sistem-presensi/internal/model"
	"github.com/Christine-samola/Sistem-presensi/pkg/jwt"
)

func newTestAuthService(env *testEnv) AuthService {
	jwtMgr := jwt.NewManager(&env.cfg.Auth)
	return NewAuthService(env.cfg, env.repo, jwtMgr, nil, zap.NewNop())
}

func createLoginUser(env *testEnv, nis, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{
		UserID:       "user-" + nis,
		Name:         "测试用户",
		NIS:          nis,
		Email:        nis + "@sekolah.sch.id",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	env.userRepo.users[user.UserID] = user
	env.userRepo.users[nis] = user
	env.userRepo.users["email:"+user.Email] = user
	return user
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	createLoginUser(env, "2026001", "password123", model.RoleStudent)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken 不应为空")
	}
	if result.User.NIS != "2026001" {
		t.Errorf("期望 NIS=2026001，实际=%s", result.User.NIS)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	createLoginUser(env, "2026001", "password123", model.RoleStudent)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "wrong_password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "nonexistent",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	user := createLoginUser(env, "2026001", "password123", model.RoleStudent)
	user.IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "password123",
	})
	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

// ── Refresh 测试 ──

func TestRefresh_Success(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	createLoginUser(env, "2026001", "password123", model.RoleTeacher)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &dto.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新后的 AccessToken 不应为空")
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	createLoginUser(env, "2026001", "password123", model.RoleTeacher)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "password123",
	})

	// 用 Access Token 冒充 Refresh Token
	_, err := svc.Refresh(context.Background(), &dto.RefreshRequest{
		RefreshToken: login.AccessToken,
	})
	if !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)

	_, err := svc.Refresh(context.Background(), &dto.RefreshRequest{
		RefreshToken: "not-a-jwt",
	})
	if !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

// ── ChangePassword 测试 ──

func TestChangePassword_Success(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	user := createLoginUser(env, "2026001", "oldpassword", model.RoleStudent)

	err := svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "oldpassword",
		NewPassword: "newpassword123",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	// 新密码可登录
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "newpassword123",
	}); err != nil {
		t.Errorf("改密后新密码应可登录: %v", err)
	}
	// 旧密码失效
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		NIS:      "2026001",
		Password: "oldpassword",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("旧密码应失效，实际: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	user := createLoginUser(env, "2026001", "oldpassword", model.RoleStudent)

	err := svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpassword123",
	})
	if !errors.Is(err, ErrWrongOldPassword) {
		t.Errorf("期望 ErrWrongOldPassword，实际: %v", err)
	}
}

// ── GetCurrentUser 测试 ──

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	user := createLoginUser(env, "2026001", "password123", model.RoleTeacher)
	user.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	detail, err := svc.GetCurrentUser(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if detail.Role != model.RoleTeacher {
		t.Errorf("期望角色 teacher，实际 %s", detail.Role)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "nonexistent"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
