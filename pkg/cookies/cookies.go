// Package cookies, access ve refresh token cookie'lerinin nasıl yazılıp
// silineceğini tek yerde tanımlar.
//
// Kurallar:
//   - Her iki cookie de HttpOnly (JavaScript okuyamaz)
//   - SameSite=Strict
//   - Secure sadece production'da (lokal geliştirmede http kullanılır)
//   - Max-Age ilgili token'ın ömrü kadar
package cookies

import (
	"net/http"
	"time"
)

// Cookie adları. Client kütüphanesi de bu isimleri kullanır.
const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

// Policy, cookie özelliklerini taşır.
type Policy struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetAccess, access token cookie'sini yazar.
func (p Policy) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.build(AccessTokenName, token, p.AccessTTL))
}

// SetRefresh, refresh token cookie'sini yazar.
func (p Policy) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.build(RefreshTokenName, token, p.RefreshTTL))
}

// Clear, her iki cookie'yi de siler. Cookie zaten yoksa da sorun değildir.
func (p Policy) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenName, RefreshTokenName} {
		c := p.build(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (p Policy) build(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Read, request'ten cookie değerini okur. Cookie yoksa boş string döner.
func Read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
