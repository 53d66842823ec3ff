package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"menufolio/internal/api/middleware"
	"menufolio/internal/auth"
	"menufolio/internal/database"
	"menufolio/internal/store"
)

// AuthHandler 处理注册、登录、查询当前账号与 API 令牌颁发。
type AuthHandler struct {
	users                 store.UserStore
	authService           *auth.AuthService
	redis                 redisRateCounter
	logger                *slog.Logger
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(users store.UserStore, authService *auth.AuthService, redisClient redisRateCounter, logger *slog.Logger, loginRateLimitPerHour, loginLockThreshold int, loginLockTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:                 users,
		authService:           authService,
		redis:                 redisClient,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
		loginLockThreshold:    loginLockThreshold,
		loginLockTTL:          loginLockTTL,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *database.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

// Signup 创建新用户账号并立即颁发会话令牌。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", req.Email))

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hashed,
	}
	if err := h.users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			logger.Info("signup conflict: email already registered")
			Conflict(c, "Email already taken")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	token, err := h.authService.GenerateSessionToken(user.ID)
	if err != nil {
		logger.Error("generate session token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	Data(c, http.StatusCreated, gin.H{"token": token}, "New member was created")
}

// Login 校验口令并返回会话令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := h.verifyCredentials(c, req.Email, req.Password)
	if !ok {
		return
	}

	token, err := h.authService.GenerateSessionToken(user.ID)
	if err != nil {
		h.loggerFromContext(c).Error("generate session token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Data(c, http.StatusOK, gin.H{"token": token}, "Credentials were accepted")
}

// Token 颁发短期 API 令牌，与登录走同一套口令校验。
func (h *AuthHandler) Token(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := h.verifyCredentials(c, req.Email, req.Password)
	if !ok {
		return
	}

	token, err := h.authService.GenerateAPIToken(user.ID)
	if err != nil {
		h.loggerFromContext(c).Error("generate api token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	Data(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(h.authService.APITokenTTL().Seconds()),
	}, "Token was issued")
}

// Me 返回当前登录账号。
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	Data(c, http.StatusOK, gin.H{"user": newUserResponse(principal)}, "Welcome "+principal.Name)
}

// verifyCredentials applies the rate limit and lockout, then checks the
// password. Unknown email and wrong password are reported identically.
func (h *AuthHandler) verifyCredentials(c *gin.Context, email, password string) (*database.User, bool) {
	ctx := c.Request.Context()
	identity := strings.ToLower(email)
	logger := h.loggerFromContext(c).With(slog.String("email", identity))

	// 速率限制：每 IP+邮箱 每小时 N 次
	rateKey := "rate:login:" + c.ClientIP() + ":" + identity + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if h.loginRateLimitPerHour > 0 && count > int64(h.loginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
		return nil, false
	}

	// 锁定检查
	if ttl, _ := h.redis.TTL(ctx, "lock:login:"+identity).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "account temporarily locked"})
		return nil, false
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Info("login failed: unknown email")
			_ = h.incrementLoginFail(ctx, identity)
			Unauthorized(c, "Invalid credentials")
			return nil, false
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return nil, false
	}

	if !h.authService.CheckPasswordHash(password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		_ = h.incrementLoginFail(ctx, identity)
		Unauthorized(c, "Invalid credentials")
		return nil, false
	}

	_ = h.redis.Del(ctx, "lock:login:fail:"+identity).Err()
	return user, true
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, identity string) error {
	failKey := "lock:login:fail:" + identity
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.loginLockTTL).Err()
	}
	if h.loginLockThreshold > 0 && count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+identity, "1", h.loginLockTTL).Err()
	}
	return nil
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
