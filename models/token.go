package models

import "github.com/golang-jwt/jwt/v5"

// TokenKind, bir JWT'nin hangi amaçla basıldığını belirtir.
// Refresh token hiçbir zaman access token yerine kabul edilmez.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Identity, her iki token'ın da taşıdığı kimlik bilgisi: kullanıcı ID'si ve rolü.
// Sadece login veya refresh sırasında basılır, sonradan değişmez.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// TokenClaims, JWT payload'ı.
// ID (jti) refresh token iptali için kullanılır.
type TokenClaims struct {
	Identity
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}
