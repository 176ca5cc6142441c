package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the editor core and its
// supporting services.
type Config struct {
	DataDir            string
	Debug              bool
	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiEditModel    string
	GeminiSuggestModel string
	RequestTimeout     time.Duration
	EditCostCredits    int
	InitialFreeCredits int
	PricePerCredit     float64
	SessionSecret      string
	SessionTTL         time.Duration
	SuggestDebounce    time.Duration
	APIListenAddr      string
	AdminListenAddr    string
	AdminUsername      string
	AdminPassword      string
	S3Endpoint         string
	S3Region           string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3PublicBaseURL    string
	S3UsePathStyle     bool
	S3Prefix           string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:            getEnv("EDITOR_DATA_DIR", "data"),
		Debug:              getBool("EDITOR_DEBUG", false),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiEditModel:    getEnv("GEMINI_EDIT_MODEL", "gemini-2.5-flash-image"),
		GeminiSuggestModel: getEnv("GEMINI_SUGGEST_MODEL", "gemini-2.5-flash"),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		EditCostCredits:    getInt("EDIT_COST_CREDITS", 1),
		InitialFreeCredits: getInt("INITIAL_FREE_CREDITS", 3),
		PricePerCredit:     getFloat("PRICE_PER_CREDIT", 0.5),
		SessionSecret:      getEnv("SESSION_SECRET", "dev-insecure-session-secret"),
		SessionTTL:         time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 72)),
		SuggestDebounce:    time.Millisecond * time.Duration(getInt("SUGGEST_DEBOUNCE_MS", 400)),
		APIListenAddr:      getEnv("API_LISTEN_ADDR", ":8090"),
		AdminListenAddr:    getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "change-me"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "shared"),
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	var missing []string
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.EditCostCredits <= 0 {
		cfg.EditCostCredits = 1
	}
	if cfg.PricePerCredit <= 0 {
		return Config{}, fmt.Errorf("PRICE_PER_CREDIT must be positive")
	}
	if cfg.InitialFreeCredits < 0 {
		return Config{}, fmt.Errorf("INITIAL_FREE_CREDITS cannot be negative")
	}

	return cfg, nil
}

// ShareEnabled reports whether the S3 share uploader is fully configured.
func (c Config) ShareEnabled() bool {
	return c.S3Region != "" && c.S3AccessKey != "" && c.S3SecretKey != "" &&
		c.S3Bucket != "" && c.S3PublicBaseURL != ""
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
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running without an env file is fine; everything can come from the
	// real environment.
	return nil
}
