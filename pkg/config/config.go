package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Log          LogConfig
	Storage      StorageConfig
	TC           TCConfig
	Registration RegistrationConfig
	Students     StudentListConfig
	Metrics      MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig governs the sign-up then sign-in login flow.
type AuthConfig struct {
	AllowSignup bool
	DefaultRole string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig locates the object store and the base used for public URLs.
type StorageConfig struct {
	Dir           string
	PublicBaseURL string
}

// TCConfig tunes transfer certificate issuance and lookup.
type TCConfig struct {
	Bucket           string
	Format           string
	CallTimeout      time.Duration
	LookupRetries    int
	LookupRetryDelay time.Duration
	CleanupWorkers   int
	CleanupRetries   int
	CleanupQueue     int
	IdempotencyTTL   time.Duration
	VerifySecret     string
	VerifyTTL        time.Duration
	VerifyBaseURL    string
}

// RegistrationConfig controls draft persistence for the registration form.
type RegistrationConfig struct {
	DraftTTL time.Duration
}

// StudentListConfig controls caching of grouped student listings.
type StudentListConfig struct {
	CacheTTL time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{
		AllowSignup: v.GetBool("AUTH_ALLOW_SIGNUP"),
		DefaultRole: strings.ToUpper(strings.TrimSpace(v.GetString("AUTH_DEFAULT_ROLE"))),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Dir:           v.GetString("STORAGE_DIR"),
		PublicBaseURL: strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
	}

	cfg.TC = TCConfig{
		Bucket:           v.GetString("TC_BUCKET"),
		Format:           strings.ToLower(v.GetString("TC_FORMAT")),
		CallTimeout:      parseDuration(v.GetString("TC_CALL_TIMEOUT"), 10*time.Second),
		LookupRetries:    v.GetInt("TC_LOOKUP_RETRIES"),
		LookupRetryDelay: parseDuration(v.GetString("TC_LOOKUP_RETRY_DELAY"), 200*time.Millisecond),
		CleanupWorkers:   v.GetInt("TC_CLEANUP_WORKERS"),
		CleanupRetries:   v.GetInt("TC_CLEANUP_RETRIES"),
		CleanupQueue:     v.GetInt("TC_CLEANUP_QUEUE"),
		IdempotencyTTL:   parseDuration(v.GetString("TC_IDEMPOTENCY_TTL"), 24*time.Hour),
		VerifySecret:     v.GetString("TC_VERIFY_SECRET"),
		VerifyTTL:        parseDuration(v.GetString("TC_VERIFY_TTL"), 5*365*24*time.Hour),
		VerifyBaseURL:    strings.TrimRight(v.GetString("TC_VERIFY_BASE_URL"), "/"),
	}

	cfg.Registration = RegistrationConfig{
		DraftTTL: parseDuration(v.GetString("REGISTRATION_DRAFT_TTL"), 12*time.Hour),
	}

	cfg.Students = StudentListConfig{
		CacheTTL: parseDuration(v.GetString("STUDENT_LIST_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tc_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-tc-api")

	v.SetDefault("AUTH_ALLOW_SIGNUP", true)
	v.SetDefault("AUTH_DEFAULT_ROLE", "ADMIN")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/storage/public")

	v.SetDefault("TC_BUCKET", "transfer_certificates")
	v.SetDefault("TC_FORMAT", "txt")
	v.SetDefault("TC_CALL_TIMEOUT", "10s")
	v.SetDefault("TC_LOOKUP_RETRIES", 3)
	v.SetDefault("TC_LOOKUP_RETRY_DELAY", "200ms")
	v.SetDefault("TC_CLEANUP_WORKERS", 1)
	v.SetDefault("TC_CLEANUP_RETRIES", 5)
	v.SetDefault("TC_CLEANUP_QUEUE", 64)
	v.SetDefault("TC_IDEMPOTENCY_TTL", "24h")
	v.SetDefault("TC_VERIFY_SECRET", "dev_tc_verify_secret")
	v.SetDefault("TC_VERIFY_TTL", "43800h")
	v.SetDefault("TC_VERIFY_BASE_URL", "http://localhost:8080/api/v1/tc/verify")

	v.SetDefault("REGISTRATION_DRAFT_TTL", "12h")
	v.SetDefault("STUDENT_LIST_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_METRICS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
