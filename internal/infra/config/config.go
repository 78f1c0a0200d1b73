package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Authz     AuthzSettings     `mapstructure:"authz"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the counter store.
type RedisSettings struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	DB            int           `mapstructure:"db"`
	Password      string        `mapstructure:"password"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	CounterPrefix string        `mapstructure:"counter_prefix"`
	CounterTTL    time.Duration `mapstructure:"counter_ttl"`
}

// KafkaSettings configures the audit event fan-out producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// AuthSettings configures principal resolution from bearer tokens. Token
// issuance lives outside this service; only the verification key is needed.
type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// AuthzSettings configures the authorization engine and middleware.
type AuthzSettings struct {
	// Bypass disables the authorization step entirely (staged rollout
	// escape hatch). No decision is computed and no authz audit fields are
	// populated while set.
	Bypass   bool          `mapstructure:"bypass"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitSettings configures per-purpose sliding windows and store selection.
type RateLimitSettings struct {
	// Store selects the counter backend: "redis" or "memory".
	Store               string        `mapstructure:"store"`
	FallbackEnabled     bool          `mapstructure:"fallback_enabled"`
	LoginMax            int           `mapstructure:"login_max"`
	LoginWindow         time.Duration `mapstructure:"login_window"`
	SignupMax           int           `mapstructure:"signup_max"`
	SignupWindow        time.Duration `mapstructure:"signup_window"`
	PasswordResetMax    int           `mapstructure:"password_reset_max"`
	PasswordResetWindow time.Duration `mapstructure:"password_reset_window"`
	APIMax              int           `mapstructure:"api_max"`
	APIWindow           time.Duration `mapstructure:"api_window"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ACCESS")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.counter_prefix",
		"redis.counter_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"auth.jwt_secret",
		"auth.issuer",
		"authz.bypass",
		"authz.cache_ttl",
		"rate_limit.store",
		"rate_limit.fallback_enabled",
		"rate_limit.login_max",
		"rate_limit.login_window",
		"rate_limit.signup_max",
		"rate_limit.signup_window",
		"rate_limit.password_reset_max",
		"rate_limit.password_reset_window",
		"rate_limit.api_max",
		"rate_limit.api_window",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "access-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "access")
	v.SetDefault("postgres.password", "access_password")
	v.SetDefault("postgres.database", "edossier")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.counter_prefix", "access:ratelimit")
	v.SetDefault("redis.counter_ttl", "2h")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "access")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "e-dossier")

	v.SetDefault("authz.bypass", false)
	v.SetDefault("authz.cache_ttl", "30s")

	v.SetDefault("rate_limit.store", "redis")
	v.SetDefault("rate_limit.fallback_enabled", true)
	v.SetDefault("rate_limit.login_max", 5)
	v.SetDefault("rate_limit.login_window", "15m")
	v.SetDefault("rate_limit.signup_max", 3)
	v.SetDefault("rate_limit.signup_window", "1h")
	v.SetDefault("rate_limit.password_reset_max", 3)
	v.SetDefault("rate_limit.password_reset_window", "1h")
	v.SetDefault("rate_limit.api_max", 100)
	v.SetDefault("rate_limit.api_window", "1m")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "access-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ACCESS_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
