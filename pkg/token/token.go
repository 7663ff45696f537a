// Package token, access ve refresh JWT'lerinin basılmasını ve doğrulanmasını sağlar.
//
// Doğrulama sonucu üç durumlu bir Result'tır: Valid, Expired, Invalid.
// Expired ile Invalid'in ayrılması önemlidir: auth middleware süresi dolmuş
// access token'da refresh cookie'sine bakar, geçersiz token'da ise direkt reddeder.
//
// Manager pure'dur: saat dışarıdan verilebilir (WithClock), global state yoktur.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akinalp/tms/models"
)

// Status, doğrulama sonucunun türü.
type Status int

const (
	StatusInvalid Status = iota
	StatusExpired
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Result, Verify'ın döndüğü etiketli sonuç.
//
// Claims sadece StatusValid'de güvenilirdir. StatusExpired'da imza doğru olduğu
// için log amaçlı doldurulur ama yetkilendirmede kullanılmamalıdır.
type Result struct {
	Status Status
	Claims *models.TokenClaims
	Err    error
}

// Valid, sonucun geçerli olup olmadığını döner.
func (r Result) Valid() bool { return r.Status == StatusValid }

// Signer, kimlik bilgisinden imzalı token basar.
type Signer interface {
	Issue(identity models.Identity, kind models.TokenKind) (string, time.Time, error)
}

// Verifier, bir token string'ini beklenen türe göre doğrular.
type Verifier interface {
	Verify(raw string, kind models.TokenKind) Result
}

// Config, Manager ayarları.
type Config struct {
	AccessSecret  string
	RefreshSecret string // boşsa AccessSecret kullanılır
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type keySpec struct {
	secret []byte
	ttl    time.Duration
}

// Manager, Signer ve Verifier'ın HS256 implementasyonu.
type Manager struct {
	keys   map[models.TokenKind]keySpec
	issuer string
	now    func() time.Time
	newID  func() string
}

// Option, Manager'ı test veya özel ihtiyaçlar için değiştirir.
type Option func(*Manager)

// WithClock, "şimdi"yi sağlayan fonksiyonu değiştirir.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

var (
	ErrMissingSecret = errors.New("token: secret is required")
	ErrInvalidTTL    = errors.New("token: ttl must be positive")
)

// NewManager, yeni bir Manager oluşturur.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.AccessSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.AccessSecret
	}

	m := &Manager{
		keys: map[models.TokenKind]keySpec{
			models.TokenKindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			models.TokenKindRefresh: {secret: []byte(refreshSecret), ttl: cfg.RefreshTTL},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL, verilen tür için token ömrünü döner.
func (m *Manager) TTL(kind models.TokenKind) time.Duration {
	return m.keys[kind].ttl
}

// Issue, kimlik bilgisini taşıyan imzalı bir token basar ve bitiş zamanını döner.
func (m *Manager) Issue(identity models.Identity, kind models.TokenKind) (string, time.Time, error) {
	key, ok := m.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("token: unknown kind %q", kind)
	}

	now := m.now()
	expiresAt := now.Add(key.ttl)
	claims := &models.TokenClaims{
		Identity: identity,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        m.newID(),
			Subject:   identity.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	// NumericDate saniye hassasiyetinde; dönen zaman token'dakiyle aynı olsun.
	return signed, claims.ExpiresAt.Time, nil
}

// Verify, token'ı doğrular. Hiçbir zaman panic atmaz, hata dönmez;
// tüm sonuçlar Result içinde taşınır.
func (m *Manager) Verify(raw string, kind models.TokenKind) Result {
	key, ok := m.keys[kind]
	if !ok || raw == "" {
		return Result{Status: StatusInvalid, Err: errors.New("token: empty or unknown kind")}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &models.TokenClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return key.secret, nil
	})

	if err != nil {
		// jwt/v5 imzayı claim doğrulamasından önce kontrol eder; ErrTokenExpired
		// geldiyse imza doğrudur.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenInvalidIssuer) && claims.Kind == kind {
			return Result{Status: StatusExpired, Claims: claims, Err: err}
		}
		return Result{Status: StatusInvalid, Err: err}
	}

	if claims.Kind != kind {
		return Result{Status: StatusInvalid, Err: fmt.Errorf("token: expected %s token, got %q", kind, claims.Kind)}
	}
	if claims.Identity.ID == "" || !claims.Identity.Role.IsValid() {
		return Result{Status: StatusInvalid, Err: errors.New("token: malformed identity claim")}
	}

	return Result{Status: StatusValid, Claims: claims}
}
