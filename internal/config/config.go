package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"agendamento-backend/internal/schedule"
)

type Config struct {
	Env        string
	ServerAddr string
	LogLevel   string

	StoreEnabled bool
	MongoURI     string
	MongoDB      string

	FrontendOrigins    []string
	RateLimitBookings  int
	RateLimitWindowSec int

	RedisURL        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	AdminAPIKey       string
	AdminUser         string
	AdminPassword     string
	JWTSecret         string
	AccessTTLMinutes  int
	RefreshTTLMinutes int
	CookieSecure      bool

	MPAccessToken     string
	MPBaseURL         string
	MPNotificationURL string
	GatewayTimeout    time.Duration

	ReconcileInterval time.Duration
	ReconcileLookback time.Duration
	AllowReset        bool

	BrevoAPIKey      string
	BrevoSenderEmail string
	BrevoSenderName  string
	BrevoSandbox     bool

	OTelEndpoint    string
	OTelServiceName string

	PlaceholderEmail string
	Timezone         *time.Location
	Hours            schedule.BusinessHours
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TZ", "America/Sao_Paulo"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017/agendamento")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "agendamento"
	}

	addr := getEnv("SERVER_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}

	hours := schedule.DefaultHours()
	hours.Open = getEnv("OPEN_TIME", hours.Open)
	hours.Close = getEnv("CLOSE_TIME", hours.Close)
	hours.SlotMinutes = getEnvInt("SLOT_MINUTES", hours.SlotMinutes)
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("business hours: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		ServerAddr:         addr,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StoreEnabled:       getEnvBool("STORE_ENABLED", true),
		MongoURI:           mongoURI,
		MongoDB:            mongoDB,
		FrontendOrigins:    splitList(getEnv("FRONTEND_ORIGINS", getEnv("FRONTEND_ORIGIN", "http://localhost:5173"))),
		RateLimitBookings:  getEnvInt("RATE_LIMIT_BOOKINGS", 10),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 60),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		AdminUser:          getEnv("ADMIN_USER", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTTLMinutes:   getEnvInt("ACCESS_TTL_MINUTES", 15),
		RefreshTTLMinutes:  getEnvInt("REFRESH_TTL_MINUTES", 43200),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		MPAccessToken:      getEnv("MP_ACCESS_TOKEN", ""),
		MPBaseURL:          getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		MPNotificationURL:  getEnv("MP_NOTIFICATION_URL", ""),
		GatewayTimeout:     time.Duration(getEnvInt("GATEWAY_TIMEOUT_SEC", 15)) * time.Second,
		ReconcileInterval:  time.Duration(getEnvInt("RECONCILE_INTERVAL_SEC", 300)) * time.Second,
		ReconcileLookback:  time.Duration(getEnvInt("RECONCILE_LOOKBACK_HOURS", 168)) * time.Hour,
		AllowReset:         getEnvBool("ALLOW_RESET", false),
		BrevoAPIKey:        getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail:   getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:    getEnv("BREVO_SENDER_NAME", ""),
		BrevoSandbox:       getEnvBool("BREVO_SANDBOX", false),
		OTelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName:    getEnv("OTEL_SERVICE_NAME", "agendamento-backend"),
		PlaceholderEmail:   getEnv("PLACEHOLDER_EMAIL", "sem-email@agendamento.local"),
		Timezone:           loc,
		Hours:              hours,
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
