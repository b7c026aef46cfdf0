package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "VAULT"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultMongoDatabase  = "car_catalog"
	defaultSQLitePath     = "vault.db"
	defaultLogLevel       = "info"
	defaultTokenTTLMinute = 30
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
	RedisAddress  string
	RedisPassword string
	SigningSecret string
	TokenTTL      time.Duration
	LogLevel      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("mongo.uri", "")
	configViper.SetDefault("mongo.database", defaultMongoDatabase)
	configViper.SetDefault("mongo.user", "")
	configViper.SetDefault("mongo.password", "")
	configViper.SetDefault("mongo.cluster", "")
	configViper.SetDefault("sqlite.path", defaultSQLitePath)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinute)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		MongoURI:      resolveMongoURI(configViper),
		MongoDatabase: configViper.GetString("mongo.database"),
		SQLitePath:    configViper.GetString("sqlite.path"),
		RedisAddress:  configViper.GetString("redis.address"),
		RedisPassword: configViper.GetString("redis.password"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		LogLevel:      configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// resolveMongoURI prefers an explicit URI, then hosted cluster credentials,
// and finally a local default.
func resolveMongoURI(configViper *viper.Viper) string {
	if uri := strings.TrimSpace(configViper.GetString("mongo.uri")); uri != "" {
		return uri
	}

	user := strings.TrimSpace(configViper.GetString("mongo.user"))
	password := strings.TrimSpace(configViper.GetString("mongo.password"))
	cluster := strings.TrimSpace(configViper.GetString("mongo.cluster"))
	database := strings.TrimSpace(configViper.GetString("mongo.database"))
	if user != "" && password != "" && cluster != "" {
		return fmt.Sprintf("mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority", user, password, cluster, database)
	}

	return fmt.Sprintf("mongodb://localhost:27017/%s", database)
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.MongoDatabase) == "" {
		return fmt.Errorf("mongo.database is required")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	return nil
}
