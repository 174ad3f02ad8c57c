package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DBType      string
	SQLitePath  string
	PostgresURL string
	MongoURL    string
	MongoDB     string
	RedisAddr   string
	RedisPass   string
	RedisDB     int

	WebhookURL        string
	GeocoderURL       string
	GeocoderUserAgent string

	R2Bucket          string
	R2AccountID       string
	R2PublicURL       string
	R2AccessKeyID     string
	R2SecretAccessKey string

	AuthTokenHash string
	BrandName     string
	ChromePath    string
	RenderSettle  time.Duration
	PDFSavePath   string
	AutosaveDelay time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBType:      getEnv("DB_TYPE", "sqlite"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/uebergabe.db"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		MongoURL:    os.Getenv("MONGO_URL"),
		MongoDB:     getEnv("MONGO_DB", "uebergabe"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:     getInt("REDIS_DB", 0),

		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "uebergabe/1.0"),

		R2Bucket:          os.Getenv("R2_BUCKET"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),

		AuthTokenHash: os.Getenv("AUTH_TOKEN_HASH"),
		BrandName:     os.Getenv("BRAND_NAME"),
		ChromePath:    os.Getenv("CHROME_PATH"),
		RenderSettle:  time.Duration(getInt("RENDER_SETTLE_MS", 500)) * time.Millisecond,
		PDFSavePath:   getEnv("PDF_SAVE_PATH", "./pdfs"),
		AutosaveDelay: time.Duration(getInt("AUTOSAVE_MS", 1000)) * time.Millisecond,
	}
	return cfg
}

// R2Enabled reports whether all settings for artifact archival are present.
func (c *Config) R2Enabled() bool {
	return c.R2Bucket != "" && c.R2AccountID != "" && c.R2PublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
