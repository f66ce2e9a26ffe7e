package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageLocal = "local"
	StorageGCS   = "gcs"
)

type Config struct {
	AppName   string
	Env       string
	Host      string
	Port      int
	PublicURL string

	DBDriver    string
	DatabaseURL string

	JWTSecret          string
	AccessTokenMinutes int
	EncryptKey         string
	SigninKey          string
	SigninPrevKeys     []string
	SigninLinkTTL      time.Duration

	StorageBackend     string
	UploadDir          string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	GeminiAPIKey string
	GeminiModel  string
	BannedWords  []string

	CORSOrigins     []string
	Debug           bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:   getEnv("APP_NAME", "Campus Market API"),
		Env:       getEnv("APP_ENV", "development"),
		Host:      getEnv("HTTP_HOST", "0.0.0.0"),
		Port:      getEnvAsInt("HTTP_PORT", 8000),
		PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8000"), "/"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*7),
		EncryptKey:         os.Getenv("ENCRYPTION_KEY"),
		SigninKey:          os.Getenv("SIGNIN_KEY"),
		SigninPrevKeys:     splitList(os.Getenv("SIGNIN_PREVIOUS_KEYS")),
		SigninLinkTTL:      time.Duration(getEnvAsInt("SIGNIN_LINK_TTL_HOURS", 24)) * time.Hour,

		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSPrefix:          os.Getenv("GCS_PREFIX"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@campusmarket.local"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		BannedWords:  splitList(os.Getenv("BANNED_WORDS")),

		Debug:           getEnvAsBool("DEBUG", false),
		RequestTimeout:  time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL(cfg.DBDriver)
	}

	cfg.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET is required")
	case c.EncryptKey == "":
		return fmt.Errorf("ENCRYPTION_KEY is required")
	case c.SigninKey == "":
		return fmt.Errorf("SIGNIN_KEY is required")
	}
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageLocal, StorageGCS, c.StorageBackend)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SignInCallbackURL is where emailed sign-in links point.
func (c *Config) SignInCallbackURL() string {
	return c.PublicURL + "/api/auth/callback"
}

// UploadBaseURL is the public prefix of locally stored images.
func (c *Config) UploadBaseURL() string {
	return c.PublicURL + "/api/uploads"
}

// defaultDatabaseURL builds a DSN from POSTGRES_* parts, or a local file for
// SQLite.
func defaultDatabaseURL(driver string) string {
	if driver != DriverPostgres {
		return "file:" + getEnv("SQLITE_PATH", "campusmarket.db")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
		Host:     fmt.Sprintf("%s:%s", getEnv("POSTGRES_HOST", "localhost"), getEnv("POSTGRES_PORT", "5432")),
		Path:     getEnv("POSTGRES_DB", "campusmarket"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
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
