package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultPort          = 5000
	defaultTokenTTLHours = 7 * 24
)

type Config struct {
	Server struct {
		Host        string `json:"host"`
		Port        int    `json:"port"`
		Subpath     string `json:"subpath"`
		Environment string `json:"environment"`
	} `json:"server"`
	Auth struct {
		JWTSecret     string `json:"jwtSecret"`
		TokenTTLHours int    `json:"tokenTTLHours"`
		// CookieSecure and CookieSameSite override the environment defaults
		// when set.
		CookieSecure   *bool  `json:"cookieSecure,omitempty"`
		CookieSameSite string `json:"cookieSameSite"`
		CookieDomain   string `json:"cookieDomain"`
	} `json:"auth"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	CORS struct {
		AllowedOrigins []string `json:"allowedOrigins"`
	} `json:"cors"`
	Log struct {
		Level  string `json:"level"`
		Pretty bool   `json:"pretty"`
	} `json:"log"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads the JSON config at path, applies environment overrides
// (including a .env file in the working directory) and validates the result.
// It only does the work once; later calls return the same config.
// An empty path skips the file and builds the config from the environment.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		var c Config
		if path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				cfgErr = fmt.Errorf("failed to read config file: %w", err)
				return
			}
			if err := json.Unmarshal(raw, &c); err != nil {
				cfgErr = fmt.Errorf("invalid config format: %w", err)
				return
			}
		}
		_ = godotenv.Load()
		if err := applyEnv(&c); err != nil {
			cfgErr = err
			return
		}
		applyDefaults(&c)
		if c.Auth.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config or JWT_SECRET")
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}

func applyEnv(c *Config) error {
	if v, ok := os.LookupEnv("JWT_SECRET"); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok && v != "" {
		c.Postgres.DSN = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("APP_ENV"); ok && v != "" {
		c.Server.Environment = v
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.Environment == "" {
		c.Server.Environment = EnvDevelopment
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = defaultTokenTTLHours
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	}
}

// IsProduction reports whether the server runs with production cookie and
// logging defaults.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
