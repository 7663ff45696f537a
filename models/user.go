// Package models, uygulamanın domain modellerini tanımlar.
//
// Model hem veritabanındaki kaydın Go karşılığıdır hem de API'den
// gelen/giden JSON'un şeklini belirler. `validate` tag'leri pkg/validator
// tarafından okunur.
package models

import (
	"strings"
	"time"
)

// Role, kullanıcının yetki seviyesi.
// Go'da enum yoktur, typed constant kullanılır.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// IsValid, rolün bilinen değerlerden biri olup olmadığını döner.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User, bir kullanıcıyı temsil eder.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"` // API response'a asla girmez
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser, register yanıtında dönen minimal kullanıcı bilgisi.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Public, User'dan PublicUser üretir.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// CreateUserRequest, kayıt isteği.
// Role alanı kabul edilir ama dikkate alınmaz: ilk kullanıcı Admin olur,
// sonrakiler User.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     Role   `json:"role,omitempty"`
}

// Normalize, whitespace'i temizler ve email'i küçük harfe çevirir.
func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

// LoginRequest, giriş isteği.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest, profil güncellemesi. nil alanlar değiştirilmez.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Role  *Role   `json:"role,omitempty" validate:"omitempty,oneof=Admin User"`
}

// NormalizeEmail, email karşılaştırmalarının tek biçimde yapılmasını sağlar.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
