// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturur. Tüm iş kuralları
// burada yaşar: şifre hash'leme, token basma, yetki kontrolleri.
// Service http.Request/Response bilmez ve doğrudan SQL çalıştırmaz.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/blacklist"
	"github.com/akinalp/tms/pkg/email"
	"github.com/akinalp/tms/pkg/token"
	"github.com/akinalp/tms/pkg/validator"
	"github.com/akinalp/tms/repository"
)

const bcryptCost = 12

// Sabit hata mesajları; handler ve middleware testleri bunlara bakar.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidRefresh     = "Invalid or expired refresh token."
)

// TokenManager, servisin ihtiyaç duyduğu token yetenekleri.
type TokenManager interface {
	token.Signer
	token.Verifier
}

// AuthService interface'i. Handler ve auth middleware buna bağımlıdır.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	// Refresh, geçerli ve iptal edilmemiş bir refresh token'dan yeni access token basar.
	// Her başarısızlık ErrForbidden'dır; çağıran taraf oturumu sonlandırır.
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error)
	// Logout, refresh token'ı kalan ömrü boyunca iptal eder. Token boş veya
	// geçersizse de nil döner.
	Logout(ctx context.Context, refreshToken string) error
	GetUser(ctx context.Context, requester models.Identity, id string) (*models.User, error)
	UpdateUser(ctx context.Context, requester models.Identity, id string, req *models.UpdateUserRequest) (*models.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokens    TokenManager
	revoked   blacklist.Store
	validate  *validator.Validator
	mailer    email.EmailSender
	mailDelay time.Duration
}

// NewAuthService, constructor.
func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenManager,
	revoked blacklist.Store,
	validate *validator.Validator,
	mailer email.EmailSender,
) AuthService {
	if mailer == nil {
		mailer = email.NopSender{}
	}
	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		revoked:   revoked,
		validate:  validate,
		mailer:    mailer,
		mailDelay: 15 * time.Second,
	}
}

// Register, yeni kullanıcı oluşturur. İlk kullanıcı Admin olur, sonrakiler User;
// istekteki role alanı yok sayılır.
func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	go s.sendWelcome(user.Email, user.Name)

	return user, nil
}

// sendWelcome, request context'inden bağımsız çalışır; email hatası kaydı bozmaz.
func (s *authService) sendWelcome(to, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.mailDelay)
	defer cancel()

	if err := s.mailer.SendWelcome(ctx, to, name); err != nil {
		log.Printf("[auth] welcome email to %s failed: %v", to, err)
	}
}

// Login, email/şifre doğrular ve token çifti basar.
// Bilinmeyen email ile yanlış şifre aynı mesajı döner.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, msgInvalidCredentials)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, msgInvalidCredentials)
	}

	identity := models.Identity{ID: user.ID, Role: user.Role}

	access, accessExp, err := s.tokens.Issue(identity, models.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.Issue(identity, models.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error) {
	res := s.tokens.Verify(refreshToken, models.TokenKindRefresh)
	if !res.Valid() {
		return nil, fmt.Errorf("%w: %s", pkg.ErrForbidden, msgInvalidRefresh)
	}

	revoked, err := s.revoked.IsRevoked(ctx, res.Claims.RegisteredClaims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check refresh token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: %s", pkg.ErrForbidden, msgInvalidRefresh)
	}

	// Kimlik bilgisi refresh token'dan aynen taşınır.
	identity := res.Claims.Identity
	access, exp, err := s.tokens.Issue(identity, models.TokenKindAccess)
	if err != nil {
		return nil, err
	}

	return &models.RefreshResult{Identity: identity, AccessToken: access, AccessExpiresAt: exp}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	res := s.tokens.Verify(refreshToken, models.TokenKindRefresh)
	if !res.Valid() {
		// Süresi dolmuş veya sahte token zaten kullanılamaz.
		return nil
	}

	if err := s.revoked.Revoke(ctx, res.Claims.RegisteredClaims.ID, res.Claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// GetUser, kullanıcıyı döner. Sadece kendisi veya Admin erişebilir.
func (s *authService) GetUser(ctx context.Context, requester models.Identity, id string) (*models.User, error) {
	if _, err := s.authorizeUserAccess(ctx, requester, id); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// UpdateUser, profil alanlarını günceller. Rol değişikliği sadece Admin'e açıktır.
func (s *authService) UpdateUser(ctx context.Context, requester models.Identity, id string, req *models.UpdateUserRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	actor, err := s.authorizeUserAccess(ctx, requester, id)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = models.NormalizeEmail(*req.Email)
	}
	if req.Role != nil && *req.Role != user.Role {
		if actor.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: only an admin can change roles", pkg.ErrForbidden)
		}
		user.Role = *req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// authorizeUserAccess, istek sahibini DB'den okur; rol token'dan değil
// güncel kayıttan alınır.
func (s *authService) authorizeUserAccess(ctx context.Context, requester models.Identity, targetID string) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, requester.ID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", pkg.ErrUnauthorized)
		}
		return nil, err
	}
	if actor.ID != targetID && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: Access denied", pkg.ErrForbidden)
	}
	return actor, nil
}
