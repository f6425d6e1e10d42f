package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	MetaAppID         string
	MetaAppSecret     string
	MetaRedirectURI   string
	GraphAPIBaseURL   string
	PostgresURI       string
	RedisURI          string
	FrontendURL       string
	R2                R2
	SecretKey         string
	CookieName        string
	PollIntervalSec   int
	PollMaxAttempts   int
	PostDelaySec      int
	TokenExpiryDays   int
	RefreshBeforeDays int
}

func LoadConfig() *Config {
	return &Config{
		MetaAppID:       getEnv("META_APP_ID", ""),
		MetaAppSecret:   getEnv("META_APP_SECRET", ""),
		MetaRedirectURI: getEnv("META_REDIRECT_URI", ""),
		GraphAPIBaseURL: getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v21.0"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "instaflow_session"),
		PollIntervalSec:   getEnvInt("CONTAINER_POLL_INTERVAL_SEC", 2),
		PollMaxAttempts:   getEnvInt("CONTAINER_POLL_MAX_ATTEMPTS", 30),
		PostDelaySec:      getEnvInt("DUE_POST_DELAY_SEC", 1),
		TokenExpiryDays:   getEnvInt("PAGE_TOKEN_EXPIRY_DAYS", 60),
		RefreshBeforeDays: getEnvInt("TOKEN_REFRESH_BEFORE_DAYS", 7),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
