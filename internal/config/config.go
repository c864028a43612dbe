package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "ATLAS"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Store     StoreConfig
	Presenter PresenterConfig
	Kafka     KafkaConfig
	Geo       GeoConfig
	Misc      MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

// FeedConfig selects and configures the remote snapshot source.
type FeedConfig struct {
	Driver    string
	URL       string
	Timeout   time.Duration
	UserAgent string
	FilePath  string
	Watch     bool
	S3        S3Config
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
	UseSSL    bool
}

// StoreConfig selects the local cache driver: sqlite, file or memory.
type StoreConfig struct {
	Driver string
	Path   string
}

type PresenterConfig struct {
	RefreshInterval time.Duration // 0 disables periodic refresh
}

// KafkaConfig enables the refresh trigger when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type GeoConfig struct {
	Resolution int
	MaxRings   int
}

type MiscConfig struct {
	LogLevel          string
	GinMode           string
	HoneybadgerAPIKey string // empty disables error reporting
	Environment       string
}

// LoadConfig reads config.yaml from confPath (or ATLAS_CONFIG_PATH, or ./config),
// applies defaults and ATLAS_* environment overrides, and validates the result.
// A .env file in the working directory is loaded first when present.
func LoadConfig(confPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, assuming environment variables are set directly.")
	}

	if confPath == "" {
		confPath = getEnvOrDefault(envPrefix+"_CONFIG_PATH", "./config")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(confPath)
	setDefaults(v)

	// Environment variables like ATLAS_FEED_URL override feed.url
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logrus.Debug("No config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort(v, "PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: v.GetString("server.cors_allowed_origins"),
		},
		Feed: FeedConfig{
			Driver:    strings.ToLower(v.GetString("feed.driver")),
			URL:       v.GetString("feed.url"),
			Timeout:   v.GetDuration("feed.timeout"),
			UserAgent: v.GetString("feed.user_agent"),
			FilePath:  v.GetString("feed.file_path"),
			Watch:     v.GetBool("feed.watch"),
			S3: S3Config{
				Endpoint:  v.GetString("feed.s3.endpoint"),
				AccessKey: v.GetString("feed.s3.access_key"),
				SecretKey: v.GetString("feed.s3.secret_key"),
				Bucket:    v.GetString("feed.s3.bucket"),
				Key:       v.GetString("feed.s3.key"),
				UseSSL:    v.GetBool("feed.s3.use_ssl"),
			},
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Path:   v.GetString("store.path"),
		},
		Presenter: PresenterConfig{
			RefreshInterval: v.GetDuration("presenter.refresh_interval"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetStringSlice("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Geo: GeoConfig{
			Resolution: v.GetInt("geo.resolution"),
			MaxRings:   v.GetInt("geo.max_rings"),
		},
		Misc: MiscConfig{
			LogLevel:          v.GetString("misc.log_level"),
			GinMode:           v.GetString("misc.gin_mode"),
			HoneybadgerAPIKey: getEnvOrDefault("HONEYBADGER_API_KEY", v.GetString("misc.honeybadger_api_key")),
			Environment:       getEnvOrDefault("GO_ENV", v.GetString("misc.environment")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Driver != "memory" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("feed.driver", "http")
	v.SetDefault("feed.url", "http://localhost:8081/partners.json")
	v.SetDefault("feed.timeout", "10s")
	v.SetDefault("feed.user_agent", "")
	v.SetDefault("feed.file_path", "./data/snapshot.json")
	v.SetDefault("feed.watch", false)
	v.SetDefault("feed.s3.endpoint", "")
	v.SetDefault("feed.s3.access_key", "")
	v.SetDefault("feed.s3.secret_key", "")
	v.SetDefault("feed.s3.bucket", "")
	v.SetDefault("feed.s3.key", "")
	v.SetDefault("feed.s3.use_ssl", false)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/atlas.db")

	v.SetDefault("presenter.refresh_interval", "0s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "atlas.feed.updated")
	v.SetDefault("kafka.group_id", "atlas-sync")

	v.SetDefault("geo.resolution", 8)
	v.SetDefault("geo.max_rings", 10)

	v.SetDefault("misc.log_level", "info")
	v.SetDefault("misc.gin_mode", "release")
	v.SetDefault("misc.honeybadger_api_key", "")
	v.SetDefault("misc.environment", "production")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 || c.Server.ShutDownTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	switch c.Feed.Driver {
	case "http":
		if c.Feed.URL == "" {
			return errors.New("feed.url is required for the http driver")
		}
		if c.Feed.Timeout <= 0 {
			return errors.New("feed.timeout must be positive")
		}
	case "file":
		if c.Feed.FilePath == "" {
			return errors.New("feed.file_path is required for the file driver")
		}
	case "s3":
		if c.Feed.S3.Endpoint == "" || c.Feed.S3.Bucket == "" || c.Feed.S3.Key == "" {
			return errors.New("feed.s3.endpoint, bucket and key are required for the s3 driver")
		}
	default:
		return fmt.Errorf("invalid feed driver: %q", c.Feed.Driver)
	}

	switch c.Store.Driver {
	case "sqlite", "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store driver: %q", c.Store.Driver)
	}

	if c.Presenter.RefreshInterval < 0 {
		return errors.New("presenter.refresh_interval must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.Topic == "" || c.Kafka.GroupID == "") {
		return errors.New("kafka.topic and kafka.group_id are required when kafka.brokers is set")
	}
	if c.Geo.Resolution < 0 || c.Geo.Resolution > 15 {
		return fmt.Errorf("geo.resolution must be between 0 and 15, got %d", c.Geo.Resolution)
	}
	if c.Geo.MaxRings < 0 {
		return errors.New("geo.max_rings must not be negative")
	}

	return nil
}

func getEnvOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvOrViperPort(v *viper.Viper, envKey, viperKey string) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", envKey, val, err)
		}
		return port, nil
	}
	return v.GetInt(viperKey), nil
}

// splitList flattens comma separated entries, as produced by env vars like
// ATLAS_KAFKA_BROKERS=a:9092,b:9092.
func splitList(values []string) []string {
	out := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
