// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

// Config represents the application configuration
type Config struct {
	APIName          string        `env:"MB_CHARTS_APP_NAME" default:"moneybotscharts"`
	APIVersion       string        `env:"MB_CHARTS_APP_VERSION" default:"0.1.0"`
	ServerPort       string        `env:"MB_CHARTS_SERVER_PORT" default:"3008"`
	ServerLogLevel   string        `env:"MB_CHARTS_SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn      string        `env:"MB_CHARTS_PG_DSN"`
	PostgresLogLevel string        `env:"MB_CHARTS_PG_LOG_LEVEL" default:"error"`
	RedisHost        string        `env:"MB_CHARTS_REDIS_HOST" default:"localhost"`
	RedisPort        string        `env:"MB_CHARTS_REDIS_PORT" default:"6379"`
	RedisPassword    string        `env:"MB_CHARTS_REDIS_PASSWORD" default:""`
	APIKeyHash       string        `env:"MB_CHARTS_API_KEY_HASH"`
	SnapshotGroups   []string      `env:"MB_CHARTS_SNAPSHOT_GROUPS" default:"NIFTY 50,NIFTY BANK"`
	SnapshotCacheTTL time.Duration `env:"MB_CHARTS_SNAPSHOT_CACHE_TTL" default:"5m"`
	SnapshotWorkers  int           `env:"MB_CHARTS_SNAPSHOT_WORKERS" default:"4"`
	HTTPTimeout      time.Duration `env:"MB_CHARTS_HTTP_TIMEOUT" default:"10s"`
	HTTPRateLimit    float64       `env:"MB_CHARTS_HTTP_RATE_LIMIT" default:"3"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	zaplogger.Info(SingleLine)
	zaplogger.Info("Loading Configuration")

	once.Do(func() {
		instance, err = Load(os.LookupEnv)
	})
	return instance, err
}

// Load builds a Config from lookup. Fields without a default tag are required.
func Load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv(lookup func(string) (string, bool)) error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value, ok := lookup(envTag)
		if !ok || value == "" {
			def, hasDefault := field.Tag.Lookup("default")
			if !hasDefault {
				return fmt.Errorf("env variable %s is required but not set", envTag)
			}
			value = def
		}

		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("env variable %s: %w", envTag, err)
		}
	}

	return nil
}

func setField(f reflect.Value, value string) error {
	switch f.Interface().(type) {
	case string:
		f.SetString(value)
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		f.SetFloat(n)
	case []string:
		f.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprint(v.Field(i).Interface())

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "hash"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
