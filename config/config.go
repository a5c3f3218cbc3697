package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string
	Mode           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
	TimeZone string
	Debug    bool
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type MediaConfig struct {
	MongoURI string
	Database string
	BaseURL  string
	Width    int
	Height   int
	Quality  int
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level string
	JSON  bool
}

type FluentConfig struct {
	Enabled bool
	Host    string
	Port    int
	Tag     string
}

type AdminConfig struct {
	Email    string
	Password string
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Media      MediaConfig
	AMQP       AMQPConfig
	Log        LogConfig
	Fluent     FluentConfig
	Admin      AdminConfig
	BcryptCost int
}

// env maps config keys to the environment variables that feed them.
var env = map[string]string{
	"server.port":            "PORT",
	"server.mode":            "GIN_MODE",
	"server.allowed_origins": "CORS_ALLOWED_ORIGINS",
	"database.host":          "DB_HOST",
	"database.user":          "DB_USERNAME",
	"database.password":      "DB_PASSWORD",
	"database.name":          "DB_NAME",
	"database.port":          "DB_PORT",
	"database.sslmode":       "DB_SSLMODE",
	"database.timezone":      "DB_TIMEZONE",
	"database.debug":         "DB_DEBUG",
	"jwt.secret":             "JWT_SECRET_KEY",
	"jwt.access_ttl":         "JWT_ACCESS_TTL",
	"jwt.refresh_ttl":        "JWT_REFRESH_TTL",
	"media.mongo_uri":        "MONGO_URI",
	"media.database":         "MEDIA_DATABASE",
	"media.base_url":         "MEDIA_BASE_URL",
	"media.width":            "MEDIA_WIDTH",
	"media.height":           "MEDIA_HEIGHT",
	"media.quality":          "MEDIA_QUALITY",
	"amqp.url":               "AMQP_URL",
	"amqp.exchange":          "AMQP_EXCHANGE",
	"log.level":              "LOG_LEVEL",
	"log.json":               "LOG_JSON",
	"fluent.enabled":         "FLUENT_ENABLED",
	"fluent.host":            "FLUENT_HOST",
	"fluent.port":            "FLUENT_PORT",
	"fluent.tag":             "FLUENT_TAG",
	"admin.email":            "ADMIN_EMAIL",
	"admin.password":         "ADMIN_PASSWORD",
	"security.bcrypt_cost":   "BCRYPT_COST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("jwt.access_ttl", "1h")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("media.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("media.database", "homie")
	v.SetDefault("media.base_url", "http://localhost:8080")
	v.SetDefault("media.width", 1200)
	v.SetDefault("media.height", 800)
	v.SetDefault("media.quality", 80)
	v.SetDefault("amqp.exchange", "homie.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("fluent.host", "127.0.0.1")
	v.SetDefault("fluent.port", 24224)
	v.SetDefault("fluent.tag", "homie-api")
	v.SetDefault("security.bcrypt_cost", 10)
}

// Load reads the optional .env files (the working directory's .env when none
// are given) and then the environment. A missing .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			Mode:           v.GetString("server.mode"),
			AllowedOrigins: splitList(v.GetString("server.allowed_origins")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			Port:     v.GetString("database.port"),
			SSLMode:  v.GetString("database.sslmode"),
			TimeZone: v.GetString("database.timezone"),
			Debug:    v.GetBool("database.debug"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		Media: MediaConfig{
			MongoURI: v.GetString("media.mongo_uri"),
			Database: v.GetString("media.database"),
			BaseURL:  strings.TrimRight(v.GetString("media.base_url"), "/"),
			Width:    v.GetInt("media.width"),
			Height:   v.GetInt("media.height"),
			Quality:  v.GetInt("media.quality"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("amqp.url"),
			Exchange: v.GetString("amqp.exchange"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
		Fluent: FluentConfig{
			Enabled: v.GetBool("fluent.enabled"),
			Host:    v.GetString("fluent.host"),
			Port:    v.GetInt("fluent.port"),
			Tag:     v.GetString("fluent.tag"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
		BcryptCost: v.GetInt("security.bcrypt_cost"),
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is required")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
