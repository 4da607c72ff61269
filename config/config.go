package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
)

// Config is the service configuration, read from the environment.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel zerolog.Level

	// DataDir holds the LevelDB database; empty keeps it in memory.
	DataDir string
	// KeysDir holds the circuit and proving keys; empty runs the setup on every start.
	KeysDir      string
	ProofBackend types.Backend

	SimulatedLatency bool
	DustCapRatio     float64
	DashboardRefresh time.Duration
	WalletName       string

	RateLimitPerMin int
	// TrustProxy reads client IPs from forwarding headers. Only enable it
	// behind a proxy that overwrites them.
	TrustProxy       bool
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads .env files when present, then the environment.
func Load() (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []string
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "3001"),
		DataDir:          os.Getenv("DATA_DIR"),
		KeysDir:          os.Getenv("KEYS_DIR"),
		WalletName:       getEnv("WALLET_NAME", "lace"),
		DashboardRefresh: time.Second * time.Duration(intVar("DASHBOARD_REFRESH_SECONDS", 30)),
		RateLimitPerMin:  intVar("RATE_LIMIT_PER_MINUTE", 30),
		HTTPReadTimeout:  time.Second * time.Duration(intVar("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(intVar("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(intVar("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.LogLevel, err = zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	if cfg.ProofBackend, err = types.ParseBackend(os.Getenv("PROOF_BACKEND")); err != nil {
		errs = append(errs, fmt.Sprintf("PROOF_BACKEND: %v", err))
	}
	if cfg.SimulatedLatency, err = getEnvBool("SIMULATED_LATENCY", false); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.TrustProxy, err = getEnvBool("TRUST_PROXY", false); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.DustCapRatio, err = getEnvFloat("DUST_CAP_RATIO", 5); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.DustCapRatio <= 0 {
		errs = append(errs, "DUST_CAP_RATIO must be positive")
	}
	if cfg.DashboardRefresh <= 0 {
		errs = append(errs, "DASHBOARD_REFRESH_SECONDS must be positive")
	}
	if cfg.RateLimitPerMin < 0 {
		errs = append(errs, "RATE_LIMIT_PER_MINUTE must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func splitList(s string) []string {
	var ret []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
