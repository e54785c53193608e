package jwt

import (
	"fundverse/config"
	"time"

	"github.com/getsentry/sentry-go"
	gojwt "github.com/golang-jwt/jwt"
)

const issuer = "fundverse"

// Payload 写入 token 的登录信息
type Payload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Claims struct {
	Payload
	gojwt.StandardClaims
}

// SentryUser 上报错误时附带的用户信息
func (c *Claims) SentryUser() sentry.User {
	return sentry.User{ID: c.UserID, Email: c.Email, Data: map[string]string{"role": c.Role}}
}

// CreateToken 使用配置中的密钥签发 HS256 token
func CreateToken(payload Payload) string {
	return CreateTokenAt(payload, time.Now())
}

func CreateTokenAt(payload Payload, now time.Time) string {
	cfg := config.Get().JWT
	claims := Claims{
		Payload: payload,
		StandardClaims: gojwt.StandardClaims{
			Issuer:    issuer,
			Subject:   payload.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(cfg.AccessExpire) * time.Second).Unix(),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		// 只有密钥类型错误时才会失败，HS256 + []byte 不会出现
		return ""
	}
	return token
}

// ParseToken 校验签名和有效期
func ParseToken(token string) (*Claims, bool) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, gojwt.ErrSignatureInvalid
		}
		return []byte(config.Get().JWT.AccessSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	return claims, true
}
