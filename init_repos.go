// Package main — Repository katmanı başlatma.
//
// initRepositories, DATABASE_DRIVER'a göre SQLite veya MongoDB
// implementasyonlarını oluşturur. Üst katmanlar sadece interface görür.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/akinalp/tms/config"
	"github.com/akinalp/tms/database"
	"github.com/akinalp/tms/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User repository.UserRepository
	Task repository.TaskRepository

	// close, seçilen veritabanı bağlantısını kapatır.
	close func() error
}

// Close, veritabanı bağlantısını kapatır.
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// initRepositories, veritabanına bağlanır ve repository'leri oluşturur.
func initRepositories(cfg *config.Config) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mongo, err := database.NewMongo(ctx, cfg.Database.MongoURI)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			User: repository.NewMongoUserRepo(mongo.DB),
			Task: repository.NewMongoTaskRepo(mongo.DB),
			close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return mongo.Close(ctx)
			},
		}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Database.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		db, err := database.New(cfg.Database.Path, database.Migrations())
		if err != nil {
			return nil, err
		}
		log.Printf("[main] sqlite database ready at %s", cfg.Database.Path)

		// sql.DB thread-safe bir connection pool'dur, repository'ler paylaşır.
		return &Repositories{
			User:  repository.NewSQLiteUserRepo(db.Conn),
			Task:  repository.NewSQLiteTaskRepo(db.Conn),
			close: db.Close,
		}, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}
