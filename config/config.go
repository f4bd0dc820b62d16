package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	JWT struct {
		SecretKey string        `mapstructure:"secret_key"`
		Algorithm string        `mapstructure:"algorithm"`
		Issuer    string        `mapstructure:"issuer"`
		AccessTTL time.Duration `mapstructure:"access_ttl"`
	} `mapstructure:"jwt"`
	Refresh struct {
		TTL           time.Duration `mapstructure:"ttl"`
		MaxDevices    int           `mapstructure:"max_devices"`
		RevokeOnReuse bool          `mapstructure:"revoke_on_reuse"`
	} `mapstructure:"refresh"`
	Hashing struct {
		Cost int `mapstructure:"cost"`
	} `mapstructure:"hashing"`
	Verification struct {
		EmailTTL         time.Duration `mapstructure:"email_ttl"`
		PasswordResetTTL time.Duration `mapstructure:"password_reset_ttl"`
		UsedRetention    time.Duration `mapstructure:"used_retention"`
	} `mapstructure:"verification"`
	Sweeper struct {
		Interval time.Duration `mapstructure:"interval"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"sweeper"`
}

var AppConfig Config

var ErrInvalidConfig = errors.New("invalid config")

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.issuer", "go-auth-api")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("refresh.ttl", 7*24*time.Hour)
	v.SetDefault("refresh.max_devices", 5)
	v.SetDefault("refresh.revoke_on_reuse", false)
	v.SetDefault("hashing.cost", 10)
	v.SetDefault("verification.email_ttl", 24*time.Hour)
	v.SetDefault("verification.password_reset_ttl", 15*time.Minute)
	v.SetDefault("verification.used_retention", 30*24*time.Hour)
	v.SetDefault("sweeper.interval", time.Hour)
	v.SetDefault("sweeper.lock_ttl", 5*time.Minute)
}

// Load reads config.yml from path, overlays environment variables
// (JWT_SECRET_KEY overrides jwt.secret_key) and validates the result.
// A missing config file is tolerated so the service can run on env alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"jwt.secret_key", "database.user", "database.password", "database.name", "redis.host", "redis.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the security-relevant settings.
func (c *Config) Validate() error {
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("%w: jwt.secret_key must be at least 32 bytes", ErrInvalidConfig)
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("%w: unsupported jwt.algorithm %q", ErrInvalidConfig, c.JWT.Algorithm)
	}
	if c.JWT.AccessTTL <= 0 || c.Refresh.TTL <= 0 {
		return fmt.Errorf("%w: token ttls must be positive", ErrInvalidConfig)
	}
	if c.Refresh.TTL < c.JWT.AccessTTL {
		return fmt.Errorf("%w: refresh.ttl must not be shorter than jwt.access_ttl", ErrInvalidConfig)
	}
	if c.Refresh.MaxDevices < 0 {
		return fmt.Errorf("%w: refresh.max_devices must not be negative", ErrInvalidConfig)
	}
	if c.Hashing.Cost < 4 || c.Hashing.Cost > 31 {
		return fmt.Errorf("%w: hashing.cost must be between 4 and 31", ErrInvalidConfig)
	}
	if c.Verification.EmailTTL <= 0 || c.Verification.PasswordResetTTL <= 0 || c.Verification.UsedRetention <= 0 {
		return fmt.Errorf("%w: verification durations must be positive", ErrInvalidConfig)
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("%w: sweeper.interval must be positive", ErrInvalidConfig)
	}
	// A zero TTL makes SET NX keep the lock forever if its holder dies.
	if c.Redis.Host != "" && c.Sweeper.LockTTL <= 0 {
		return fmt.Errorf("%w: sweeper.lock_ttl must be positive when redis is configured", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig loads the configuration into AppConfig and exits the process on failure.
func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error loading config, %s", err)
	}
	AppConfig = *cfg
}
