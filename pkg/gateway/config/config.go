package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// PublicBaseURL is the externally reachable base URL of this gateway.
	// Webhook action URLs handed back to the telephony provider are built
	// against it.
	PublicBaseURL string

	DatabaseURL string

	OpenAIAPIKey string
	OpenAIModel  string

	// WebhookAuthToken, when set, must match the token query parameter or
	// X-Webhook-Token header on telephony webhook requests.
	WebhookAuthToken string

	JWTSecret string
	JWTTTL    time.Duration

	// Outbound notification channels. Empty settings disable a channel.
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string

	// BusinessName personalizes notification email subjects; empty keeps
	// the generic ones.
	BusinessName string

	POSBaseURL    string
	POSAPIKey     string
	POSLocationID string

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Per-call processing budgets.
	ResponderTimeout  time.Duration
	ExtractionTimeout time.Duration
	LookupTimeout     time.Duration

	// In-memory limits (per client IP).
	LimitRPS   float64
	LimitBurst int

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("ANSWERLINE_ADDR", ":8080"),
		PublicBaseURL:       strings.TrimRight(envOr("ANSWERLINE_PUBLIC_BASE_URL", ""), "/"),
		DatabaseURL:         envOr("ANSWERLINE_DATABASE_URL", ""),
		OpenAIAPIKey:        envOr("ANSWERLINE_OPENAI_API_KEY", ""),
		OpenAIModel:         envOr("ANSWERLINE_OPENAI_MODEL", ""),
		WebhookAuthToken:    envOr("ANSWERLINE_WEBHOOK_TOKEN", ""),
		JWTSecret:           envOr("ANSWERLINE_JWT_SECRET", ""),
		JWTTTL:              envDurationOr("ANSWERLINE_JWT_TTL", 24*time.Hour),
		SMTPAddr:            envOr("ANSWERLINE_SMTP_ADDR", ""),
		SMTPUsername:        envOr("ANSWERLINE_SMTP_USERNAME", ""),
		SMTPPassword:        envOr("ANSWERLINE_SMTP_PASSWORD", ""),
		EmailFrom:           envOr("ANSWERLINE_EMAIL_FROM", ""),
		EmailTo:             envOr("ANSWERLINE_EMAIL_TO", ""),
		BusinessName:        envOr("ANSWERLINE_BUSINESS_NAME", ""),
		POSBaseURL:          envOr("ANSWERLINE_POS_BASE_URL", ""),
		POSAPIKey:           envOr("ANSWERLINE_POS_API_KEY", ""),
		POSLocationID:       envOr("ANSWERLINE_POS_LOCATION_ID", ""),
		CORSAllowedOrigins:  make(map[string]struct{}),
		ResponderTimeout:    envDurationOr("ANSWERLINE_RESPONDER_TIMEOUT", 10*time.Second),
		ExtractionTimeout:   envDurationOr("ANSWERLINE_EXTRACTION_TIMEOUT", 15*time.Second),
		LookupTimeout:       envDurationOr("ANSWERLINE_LOOKUP_TIMEOUT", 5*time.Second),
		LimitRPS:            envFloat64Or("ANSWERLINE_RATE_LIMIT_RPS", 10.0),
		LimitBurst:          envIntOr("ANSWERLINE_RATE_LIMIT_BURST", 20),
		ReadHeaderTimeout:   envDurationOr("ANSWERLINE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("ANSWERLINE_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:      envDurationOr("ANSWERLINE_TOTAL_REQUEST_TIMEOUT", 60*time.Second),
		ShutdownGracePeriod: envDurationOr("ANSWERLINE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("ANSWERLINE_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("ANSWERLINE_DATABASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("ANSWERLINE_JWT_SECRET must be set")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_JWT_TTL must be > 0")
	}
	if cfg.ResponderTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_RESPONDER_TIMEOUT must be > 0")
	}
	if cfg.ExtractionTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_EXTRACTION_TIMEOUT must be > 0")
	}
	if cfg.LookupTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_LOOKUP_TIMEOUT must be > 0")
	}
	if cfg.LimitRPS < 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.LimitBurst < 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("ANSWERLINE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.SMTPAddr != "" && (cfg.EmailFrom == "" || cfg.EmailTo == "") {
		return Config{}, fmt.Errorf("ANSWERLINE_EMAIL_FROM and ANSWERLINE_EMAIL_TO must be set when ANSWERLINE_SMTP_ADDR is set")
	}
	if cfg.PublicBaseURL != "" && !strings.HasPrefix(cfg.PublicBaseURL, "http") {
		return Config{}, fmt.Errorf("ANSWERLINE_PUBLIC_BASE_URL must be an absolute http(s) URL")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
