package security

import (
	"Helpdock/internal/api/config"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// visitorAudience 访客 Token 的受众，控制台鉴权遇到直接拒绝
const visitorAudience = "helpdock-widget"

var (
	jwtSecret  = []byte("helpdock-dev")
	jwtIssuer  = "Helpdock"
	jwtExpires = 720 * time.Hour
)

// Init 由启动流程调用，测试中也可以直接调用
func Init(cfg config.JWTConfig) {
	if cfg.Secret != "" {
		jwtSecret = []byte(cfg.Secret)
	}
	if cfg.Issuer != "" {
		jwtIssuer = cfg.Issuer
	}
	if cfg.ExpireHours > 0 {
		jwtExpires = time.Duration(cfg.ExpireHours) * time.Hour
	}
}

// GenerateTenantToken 本地联调与测试用，线上由认证方签发
func GenerateTenantToken(tenantID, email string, roles []string) (string, error) {
	now := time.Now()
	claims := &TenantClaims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID,
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpires)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
		},
	}
	return sign(claims)
}

// GenerateVisitorToken 签发访客 Token
func GenerateVisitorToken(workspaceID, conversationID, role string) (string, error) {
	now := time.Now()
	claims := &VisitorClaims{
		WorkspaceID:    workspaceID,
		ConversationID: conversationID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   conversationID,
			Audience:  jwt.ClaimStrings{visitorAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpires)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
		},
	}
	return sign(claims)
}

func sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}
	return tokenString, nil
}

// ValidateTenantToken 验证控制台 Token
func ValidateTenantToken(tokenString string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	if err := parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token 缺少 subject")
	}
	for _, aud := range claims.Audience {
		if aud == visitorAudience {
			return nil, errors.New("访客 token 不能访问控制台")
		}
	}
	return claims, nil
}

// ValidateVisitorToken 验证访客 Token
func ValidateVisitorToken(tokenString string) (*VisitorClaims, error) {
	claims := &VisitorClaims{}
	if err := parse(tokenString, claims, jwt.WithAudience(visitorAudience)); err != nil {
		return nil, err
	}
	if claims.ConversationID == "" || claims.WorkspaceID == "" {
		return nil, errors.New("访客 token 缺少会话信息")
	}
	return claims, nil
}

func parse(tokenString string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithIssuer(jwtIssuer))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("token 解析失败: %w", err)
	}
	if !token.Valid {
		return errors.New("token 无效或已过期")
	}
	return nil
}
