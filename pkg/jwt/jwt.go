// Package jwt 后台访问令牌检查
//
// 令牌由书店REST API签发，BFF只转发。这里负责：
// 1. 读取claims（用户、角色、过期时间）
// 2. 计算剩余有效期，用作Redis黑名单的TTL
// 3. 配置了共享密钥时校验签名，否则只做结构与过期检查
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/bookstore-admin/pkg/errors"
)

// Claims 上游签发的令牌内容
type Claims struct {
	UserID   string `json:"sub"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspector 令牌检查器
type Inspector struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewInspector secret为空时不校验签名
func NewInspector(secret string, leeway time.Duration) *Inspector {
	return &Inspector{secret: []byte(secret), leeway: leeway, now: time.Now}
}

// Parse 解析令牌并检查过期
func (i *Inspector) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrUnauthorized
	}

	claims := &Claims{}
	if len(i.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, apperrors.ErrInvalidToken.WithErr(err)
		}
		if exp := claims.ExpiresAt; exp != nil && !i.now().Before(exp.Add(i.leeway)) {
			return nil, apperrors.ErrTokenExpired
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithLeeway(i.leeway), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken.WithErr(err)
	}
	return claims, nil
}

// RemainingTTL 令牌剩余有效期
// 无exp的令牌返回fallback；已过期返回0
func (i *Inspector) RemainingTTL(tokenString string, fallback time.Duration) time.Duration {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return fallback
	}
	if claims.ExpiresAt == nil {
		return fallback
	}
	ttl := claims.ExpiresAt.Sub(i.now())
	if ttl < 0 {
		return 0
	}
	return ttl
}
