package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string

	ServerPort int

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string

	// WebhookSecrets holds the per-provider shared secret used to verify
	// payment webhook signatures, keyed by provider slug.
	WebhookSecrets map[string][]byte

	PaymentExpiry time.Duration
	SweepInterval time.Duration
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "warimarket"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),

		WebhookSecrets: SecretMap(os.Getenv("WEBHOOK_SECRETS")),

		PaymentExpiry: time.Duration(EnvIntDefault("PAYMENT_EXPIRY_MIN", 30)) * time.Minute,
		SweepInterval: time.Duration(EnvIntDefault("SWEEP_INTERVAL_SEC", 60)) * time.Second,
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SecretMap parses "provider=secret,provider=secret" pairs.
func SecretMap(v string) map[string][]byte {
	out := make(map[string][]byte)
	for _, pair := range CSV(v) {
		name, secret, ok := strings.Cut(pair, "=")
		if !ok || name == "" || secret == "" {
			continue
		}
		out[name] = []byte(secret)
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
