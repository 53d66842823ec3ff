package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the claims. Session tokens back the signup/login
// flow; api tokens are the short-lived variant from the token endpoint.
const (
	TokenTypeSession = "session"
	TokenTypeAPI     = "api"
)

// AuthService 负责处理密码哈希、JWT 生成与校验。
// Key material and lifetimes are injected at construction; there is no
// ambient signing state.
type AuthService struct {
	privateKey  *rsa.PrivateKey
	publicKey   *rsa.PublicKey
	sessionTTL  time.Duration
	apiTokenTTL time.Duration
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// NewAuthService 解析 PEM 密钥并构造服务实例。
func NewAuthService(privateKeyPEM, publicKeyPEM []byte, sessionTTL, apiTokenTTL time.Duration) (*AuthService, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &AuthService{
		privateKey:  privateKey,
		publicKey:   publicKey,
		sessionTTL:  sessionTTL,
		apiTokenTTL: apiTokenTTL,
	}, nil
}

// HashPassword 使用 bcrypt 生成密码哈希。
func (s *AuthService) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

// CheckPasswordHash 校验密码是否匹配哈希。
func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	return CheckPasswordHash(password, hash)
}

// GenerateSessionToken issues the long-lived credential for browser sessions.
func (s *AuthService) GenerateSessionToken(userID uint) (string, error) {
	return s.generateToken(userID, TokenTypeSession, s.sessionTTL)
}

// GenerateAPIToken issues the short-lived credential for the token endpoint.
func (s *AuthService) GenerateAPIToken(userID uint) (string, error) {
	return s.generateToken(userID, TokenTypeAPI, s.apiTokenTTL)
}

func (s *AuthService) generateToken(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return s.signClaims(claims)
}

// ValidateToken 解析并验证 JWT。Both token types are accepted; the caller
// decides whether the type matters.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) signClaims(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SessionTTL 暴露会话令牌有效期。
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// APITokenTTL 暴露 API 令牌有效期。
func (s *AuthService) APITokenTTL() time.Duration {
	return s.apiTokenTTL
}
