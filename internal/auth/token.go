// Package auth は認証・認可（JWT発行、トークン失効、ユーザー管理）を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager はHS256署名のJWTアクセストークンを発行・検証する。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue は指定ユーザーのアクセストークンを発行する。
// subクレームにユーザーIDを格納する。
func (m *TokenManager) Issue(userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗しました: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証してユーザーIDを返す。
// 署名不正・期限切れ・アルゴリズム不一致はすべてエラー。
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("トークンの検証に失敗しました: %w", err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("トークンにユーザーIDが含まれていません")
	}
	return claims.Subject, nil
}
