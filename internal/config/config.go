package config

import (
	"os"
	"time"
)

type Config struct {
	ServerAddress   string
	AuthProvider    string // "jwt" (local accounts) or "firebase"
	JWTSecret       string
	JWTExpiration   time.Duration
	MongoURI        string
	MongoDB         string
	StorageBucket   string
	SendGridAPIKey  string
	SupportFrom     string
	SupportTo       string
	RecaptchaSecret string
	UploadDir       string
	MaxUploadSizeMB int64
}

func Load() *Config {
	return &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		AuthProvider:    getEnv("AUTH_PROVIDER", "jwt"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:   24 * time.Hour,
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDB:         getEnv("MONGO_DB", "kidswap"),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		SupportFrom:     getEnv("SUPPORT_FROM_EMAIL", "no-reply@kidswap.app"),
		SupportTo:       getEnv("SUPPORT_TO_EMAIL", ""),
		RecaptchaSecret: getEnv("RECAPTCHA_SECRET", ""),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB: 10,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
