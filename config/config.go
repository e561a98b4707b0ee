// Package config loads the pulse-auth service settings.
//
// Values are resolved in order: built in defaults, an optional YAML file,
// a .env file in the working directory and finally the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	auth "github.com/pulseapp/pulse-auth"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "PULSE_"

// DevSigningKey is used outside production when no secret is configured.
const DevSigningKey = "pulse-dev-secret-change-me-in-production"

type Config struct {
	Env      string `yaml:"env" json:"env"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	JWT      JWTConfig      `yaml:"jwt" json:"jwt"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" json:"kafka"`

	// Warnings collects non fatal issues found while loading. The caller
	// logs them once the logger exists.
	Warnings []string `yaml:"-" json:"-"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr" json:"addr"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" json:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins" json:"cors_origins"`
	ShutdownGrace  Duration `yaml:"shutdown_grace" json:"shutdown_grace"`
}

type DatabaseConfig struct {
	DSN         string `yaml:"dsn" json:"dsn" mask:"filled8"`
	AutoMigrate bool   `yaml:"auto_migrate" json:"auto_migrate"`
}

type JWTConfig struct {
	Secret   string   `yaml:"secret" json:"-"`
	Issuer   string   `yaml:"issuer" json:"issuer"`
	Audience []string `yaml:"audience" json:"audience"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
}

type AuthConfig struct {
	BcryptCost  int      `yaml:"bcrypt_cost" json:"bcrypt_cost"`
	PhoneRegion string   `yaml:"phone_region" json:"phone_region"`
	AdminEmails []string `yaml:"admin_emails" json:"admin_emails"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	Stream string `yaml:"stream" json:"stream"`
	MaxLen int64  `yaml:"max_len" json:"max_len"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// Duration accepts "15m" style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Env:      "development",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:           ":5000",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			ShutdownGrace:  Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			DSN:         "file:pulse.db?cache=shared",
			AutoMigrate: true,
		},
		JWT: JWTConfig{
			Issuer: "pulse-auth",
			TTL:    Duration(auth.DefaultTokenTTL),
		},
		Auth: AuthConfig{
			BcryptCost:  bcrypt.DefaultCost,
			PhoneRegion: auth.DefaultPhoneRegion,
		},
		Redis: RedisConfig{
			Stream: "pulse:auth:activity",
			MaxLen: 10000,
		},
		Kafka: KafkaConfig{
			Topic: "pulse.auth.activity",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), .env and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = DevSigningKey
		cfg.Warnings = append(cfg.Warnings, "JWT secret not set, using the development key")
	}

	if len(cfg.Auth.AdminEmails) == 0 {
		cfg.Warnings = append(cfg.Warnings, "no admin emails configured, HOC review routes will reject every caller")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = getenv("ENV", firstEnv("NODE_ENV"), c.Env)
	c.LogLevel = getenv("LOG_LEVEL", "", c.LogLevel)

	c.HTTP.Addr = getenv("HTTP_ADDR", portAddr(os.Getenv("PORT")), c.HTTP.Addr)
	c.HTTP.CORSOrigins = getenvList("CORS_ORIGINS", c.HTTP.CORSOrigins)

	c.Database.DSN = getenv("DATABASE_DSN", firstEnv("DATABASE_URL"), c.Database.DSN)

	c.JWT.Secret = getenv("JWT_SECRET", firstEnv("JWT_SECRET"), c.JWT.Secret)
	c.JWT.Issuer = getenv("JWT_ISSUER", "", c.JWT.Issuer)
	c.JWT.Audience = getenvList("JWT_AUDIENCE", c.JWT.Audience)

	c.Auth.PhoneRegion = getenv("PHONE_REGION", "", c.Auth.PhoneRegion)
	c.Auth.AdminEmails = getenvList("ADMIN_EMAILS", c.Auth.AdminEmails)

	c.Redis.Addr = getenv("REDIS_ADDR", "", c.Redis.Addr)
	c.Redis.Stream = getenv("REDIS_STREAM", "", c.Redis.Stream)

	c.Kafka.Brokers = getenvList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getenv("KAFKA_TOPIC", "", c.Kafka.Topic)

	var err error
	if c.HTTP.RateLimitRPS, err = getenvFloat("RATE_LIMIT_RPS", c.HTTP.RateLimitRPS); err != nil {
		return err
	}
	if c.HTTP.RateLimitBurst, err = getenvInt("RATE_LIMIT_BURST", c.HTTP.RateLimitBurst); err != nil {
		return err
	}
	if c.Auth.BcryptCost, err = getenvInt("BCRYPT_COST", c.Auth.BcryptCost); err != nil {
		return err
	}
	if c.Database.AutoMigrate, err = getenvBool("AUTO_MIGRATE", c.Database.AutoMigrate); err != nil {
		return err
	}

	ttl, err := getenvDuration("JWT_TTL", time.Duration(c.JWT.TTL))
	if err != nil {
		return err
	}
	c.JWT.TTL = Duration(ttl)

	grace, err := getenvDuration("SHUTDOWN_GRACE", time.Duration(c.HTTP.ShutdownGrace))
	if err != nil {
		return err
	}
	c.HTTP.ShutdownGrace = Duration(grace)

	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	} else if c.IsProduction() && len(c.JWT.Secret) < auth.MinSigningKeyLength {
		problems = append(problems, fmt.Sprintf("jwt.secret must be at least %d bytes in production", auth.MinSigningKeyLength))
	}
	if c.IsProduction() && c.JWT.Secret == DevSigningKey {
		problems = append(problems, "jwt.secret must not be the development key in production")
	}
	if c.JWT.TTL <= 0 {
		problems = append(problems, "jwt.ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HTTP.RateLimitBurst < 0 {
		problems = append(problems, "http.rate_limit_burst must not be negative")
	}
	if c.IsProduction() {
		for _, origin := range c.HTTP.CORSOrigins {
			if origin == "*" {
				problems = append(problems, "http.cors_origins must not contain * in production")
				break
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return goerrors.New("invalid configuration", goerrors.CategoryBadInput).
		WithTextCode("INVALID_CONFIG").
		WithMetadata(map[string]any{"problems": problems})
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) GetSigningKey() string {
	return c.JWT.Secret
}

func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.JWT.TTL)
}

func (c *Config) GetIssuer() string {
	return c.JWT.Issuer
}

func (c *Config) GetAudience() []string {
	return c.JWT.Audience
}

var _ auth.Config = (*Config)(nil)
