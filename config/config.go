package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	Env        string
	RedisAddr  string

	// CouponMinOrderPolicy decides what happens when an order is below a
	// coupon's minimum: "reject" fails the coupon check, "ignore" drops the
	// discount and lets the order through.
	CouponMinOrderPolicy string

	// Per-window request budgets for the sensitive endpoints.
	RateLimitCouponVerify int64
	RateLimitSettle       int64
	RateLimitWindowSecs   int64
}

// App is the loaded configuration, set by LoadConfig.
var App *Config

// LoadConfig loads configuration from environment variables. A missing .env
// file is fine; the environment itself may carry everything.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DBHost:               os.Getenv("DB_HOST"),
		DBPort:               os.Getenv("DB_PORT"),
		DBUser:               os.Getenv("DB_USER"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               os.Getenv("DB_NAME"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		CouponMinOrderPolicy: getEnv("COUPON_MIN_ORDER_POLICY", "reject"),

		RateLimitCouponVerify: getEnvInt("RATE_LIMIT_COUPON_VERIFY", 20),
		RateLimitSettle:       getEnvInt("RATE_LIMIT_SETTLE", 60),
		RateLimitWindowSecs:   getEnvInt("RATE_LIMIT_WINDOW_SECS", 60),
	}

	App = config
	return config, nil
}

// MinOrderPolicy returns the configured policy, defaulting to reject when
// config was never loaded (tests exercise services directly).
func MinOrderPolicy() string {
	if App == nil || App.CouponMinOrderPolicy == "" {
		return "reject"
	}
	return App.CouponMinOrderPolicy
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
