// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service katmanı SQL veya Mongo sorgusu yazmaz; bu interface'ler üzerinden
// çalışır. Her interface'in bir SQLite (varsayılan) ve bir MongoDB
// implementasyonu vardır, hangisinin kullanılacağına main.go karar verir.
//
// Bulunamayan kayıt her iki implementasyonda da pkg.ErrNotFound,
// unique ihlali pkg.ErrAlreadyExists olarak döner.
package repository

import (
	"context"

	"github.com/akinalp/tms/models"
)

// UserRepository, kullanıcı kayıtları için interface.
type UserRepository interface {
	// Create, ID ve zaman damgalarını doldurur.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDs, bulunan kullanıcıları ID'ye göre map olarak döner; eksik ID'ler atlanır.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// Update, name, email ve role alanlarını yazar, UpdatedAt'i yeniler.
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int, error)
}
