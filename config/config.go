// Package config, uygulamanın tüm konfigürasyonunu environment variable'lardan okur.
// .env dosyası varsa önce o yüklenir (lokal geliştirme için).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm ayarları. Her alt struct tek bir concern'ü taşır.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Email    EmailConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
	Env  string // "production" ise cookie'ler Secure yazılır
}

// DatabaseConfig, persistence ayarları.
type DatabaseConfig struct {
	Driver   string // "sqlite" veya "mongo"
	Path     string // SQLite dosya yolu
	MongoURI string
}

// JWTConfig, token ayarları.
type JWTConfig struct {
	Secret             string
	RefreshSecret      string // boşsa Secret kullanılır
	AccessTokenExpiry  int    // dakika
	RefreshTokenExpiry int    // saat
}

// RedisConfig, refresh token kara listesi için Redis ayarları.
// Addr boşsa in-memory liste kullanılır.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CORSConfig, izin verilen origin'ler.
type CORSConfig struct {
	AllowedOrigins []string
}

// EmailConfig, Resend ayarları. APIKey boşsa email gönderilmez.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	AppURL       string
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Load, environment variable'lardan Config oluşturur.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8081"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "60"))
	if err != nil || accessExpiry <= 0 {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %q", os.Getenv("JWT_ACCESS_EXPIRY_MINUTES"))
	}

	refreshExpiry, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRY_HOURS", "24"))
	if err != nil || refreshExpiry <= 0 {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRY_HOURS: %q", os.Getenv("JWT_REFRESH_EXPIRY_HOURS"))
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// NODE_ENV eski deploy'larla uyum için okunur
	env := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))

	driver := strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite))
	mongoURI := getEnv("CONNECTION_STRING", "")
	if mongoURI == "" && env != "production" {
		mongoURI = getEnv("MONGO_LOCAL_URI", "")
	}

	switch driver {
	case DriverSQLite:
	case DriverMongo:
		if mongoURI == "" {
			return nil, fmt.Errorf("CONNECTION_STRING is required when DATABASE_DRIVER=mongo")
		}
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER: %q (expected sqlite or mongo)", driver)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
			Env:  env,
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Path:     getEnv("DATABASE_PATH", "./data/tms.db"),
			MongoURI: mongoURI,
		},
		JWT: JWTConfig{
			Secret:             jwtSecret,
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("RESEND_FROM", "noreply@tms.local"),
			AppURL:       getEnv("APP_URL", "http://localhost:5173"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adres (ör: "0.0.0.0:8081").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction, Secure cookie kararını verir.
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// AccessTTL, access token ömrü.
func (c *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpiry) * time.Minute
}

// RefreshTTL, refresh token ömrü.
func (c *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiry) * time.Hour
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
