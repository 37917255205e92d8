package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	Store     StoreConfig
	Generator GeneratorConfig
}

type ServerConfig struct {
	Address string
}

type WhatsAppConfig struct {
	AccessToken       string
	PhoneNumberID     string
	BusinessAccountID string
	GraphAPIBase      string
	VerifyToken       string
	DefaultTemplate   string
	TemplateLanguage  string
}

type StoreConfig struct {
	Backend     string
	Redis       RedisConfig
	PostgresURL string
}

type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type GeneratorConfig struct {
	APIKey string
	Model  string
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:       mustEnv("ACCESS_TOKEN"),
			PhoneNumberID:     mustEnv("PHONE_NUMBER_ID"),
			BusinessAccountID: os.Getenv("BUSINESS_ACCOUNT_ID"),
			GraphAPIBase:      getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v22.0"),
			VerifyToken:       mustEnv("VERIFY_TOKEN"),
			DefaultTemplate:   getEnv("DEFAULT_TEMPLATE", "hello_world"),
			TemplateLanguage:  getEnv("TEMPLATE_LANGUAGE", "en_US"),
		},
		Store:     loadStoreConfig(),
		Generator: GeneratorConfig{
			APIKey: mustEnv("GOOGLE_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
	}

	validate(cfg)
	return cfg, nil
}

func loadStoreConfig() StoreConfig {
	backend := getEnv("STORE_BACKEND", BackendRedis)

	switch backend {
	case BackendRedis:
		return StoreConfig{
			Backend: BackendRedis,
			Redis: RedisConfig{
				Address:   mustEnv("REDIS_ADDR"),
				Password:  os.Getenv("REDIS_PASSWORD"),
				DB:        getEnvInt("REDIS_DB", 0),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "chat:"),
			},
		}
	case BackendPostgres:
		return StoreConfig{
			Backend:     BackendPostgres,
			PostgresURL: mustEnv("POSTGRES_URL"),
		}
	default:
		panic(fmt.Sprintf("unsupported STORE_BACKEND: %s", backend))
	}
}

func validate(cfg *Config) {
	if cfg.WhatsApp.GraphAPIBase == "" {
		panic("GRAPH_API_BASE must not be empty")
	}
	if cfg.WhatsApp.DefaultTemplate == "" {
		panic("DEFAULT_TEMPLATE must not be empty")
	}
	if cfg.Store.Backend == BackendRedis && cfg.Store.Redis.KeyPrefix == "" {
		panic("REDIS_KEY_PREFIX must not be empty")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}
