package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("BOOKHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("BOOKHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "bookhub"
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("BOOKHUB_JWT_TTL_HOURS"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			ttl = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: ttl,
	}
}

// FantLabConfig holds the endpoints for the FantLab integration. The API
// needs no credentials; the optional key is attached as a bearer token when
// present.
type FantLabConfig struct {
	APIURL string
	WebURL string
	APIKey string
}

func LoadFantLabConfig() FantLabConfig {
	cfg := FantLabConfig{
		APIURL: os.Getenv("BOOKHUB_FANTLAB_API_URL"),
		WebURL: os.Getenv("BOOKHUB_FANTLAB_WEB_URL"),
		APIKey: os.Getenv("BOOKHUB_FANTLAB_API_KEY"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.fantlab.ru"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "https://fantlab.ru"
	}
	return cfg
}

// AuthorTodayConfig holds endpoints and credentials for the Author.Today
// integration. Login/password are mandatory for a sync run; the whole run
// aborts when authentication fails.
type AuthorTodayConfig struct {
	APIURL   string
	WebURL   string
	Login    string
	Password string
	// Token short-circuits the password login when already known.
	Token string
}

func LoadAuthorTodayConfig() AuthorTodayConfig {
	cfg := AuthorTodayConfig{
		APIURL:   os.Getenv("BOOKHUB_AUTHORTODAY_API_URL"),
		WebURL:   os.Getenv("BOOKHUB_AUTHORTODAY_WEB_URL"),
		Login:    os.Getenv("BOOKHUB_AUTHORTODAY_LOGIN"),
		Password: os.Getenv("BOOKHUB_AUTHORTODAY_PASSWORD"),
		Token:    os.Getenv("BOOKHUB_AUTHORTODAY_TOKEN"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.author.today"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "https://author.today"
	}
	return cfg
}

// SyncConfig controls pacing between per-book iterations. The delay is
// courtesy toward the external platforms, not a correctness requirement.
type SyncConfig struct {
	BookDelay time.Duration
}

func LoadSyncConfig() SyncConfig {
	delay := time.Second
	if raw := os.Getenv("BOOKHUB_SYNC_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}
	return SyncConfig{BookDelay: delay}
}

// BooksDir is where FB2 files live for import and reading.
func BooksDir() string {
	if dir := os.Getenv("BOOKHUB_BOOKS_DIR"); dir != "" {
		return dir
	}
	return "books"
}
