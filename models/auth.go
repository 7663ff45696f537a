package models

import "time"

// AuthResult, login sonrası handler'a dönen token çifti.
// Token'lar cookie olarak yazılır; yanıt gövdesinde sadece access token döner.
type AuthResult struct {
	User             *User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult, refresh token ile yeni access token basıldığında dönen sonuç.
type RefreshResult struct {
	Identity        Identity
	AccessToken     string
	AccessExpiresAt time.Time
}
