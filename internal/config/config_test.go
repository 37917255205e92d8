package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("ACCESS_TOKEN", "token-123")
	t.Setenv("PHONE_NUMBER_ID", "555000111")
	t.Setenv("VERIFY_TOKEN", "verify-secret")
	t.Setenv("GOOGLE_API_KEY", "gemini-key")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	// Clear optional vars so defaults are observable.
	for _, k := range []string{
		"SERVER_ADDRESS", "BUSINESS_ACCOUNT_ID", "GRAPH_API_BASE",
		"DEFAULT_TEMPLATE", "TEMPLATE_LANGUAGE", "STORE_BACKEND",
		"REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY_PREFIX",
		"POSTGRES_URL", "GEMINI_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadAll_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address :8080, got %q", cfg.Server.Address)
	}
	if cfg.WhatsApp.AccessToken != "token-123" {
		t.Fatalf("expected access token from env, got %q", cfg.WhatsApp.AccessToken)
	}
	if cfg.WhatsApp.GraphAPIBase != "https://graph.facebook.com/v22.0" {
		t.Fatalf("unexpected default graph base: %q", cfg.WhatsApp.GraphAPIBase)
	}
	if cfg.WhatsApp.DefaultTemplate != "hello_world" {
		t.Fatalf("unexpected default template: %q", cfg.WhatsApp.DefaultTemplate)
	}
	if cfg.WhatsApp.TemplateLanguage != "en_US" {
		t.Fatalf("unexpected template language: %q", cfg.WhatsApp.TemplateLanguage)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Fatalf("expected default backend redis, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Redis.Address != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %q", cfg.Store.Redis.Address)
	}
	if cfg.Store.Redis.KeyPrefix != "chat:" {
		t.Fatalf("unexpected redis key prefix: %q", cfg.Store.Redis.KeyPrefix)
	}
	if cfg.Generator.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected default model: %q", cfg.Generator.Model)
	}
}

func TestLoadAll_PostgresBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_BACKEND", BackendPostgres)
	t.Setenv("POSTGRES_URL", "postgres://localhost/chat")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Store.Backend != BackendPostgres {
		t.Fatalf("expected backend postgres, got %q", cfg.Store.Backend)
	}
	if cfg.Store.PostgresURL != "postgres://localhost/chat" {
		t.Fatalf("unexpected postgres url: %q", cfg.Store.PostgresURL)
	}
}

func TestLoadAll_MissingRequiredPanics(t *testing.T) {
	for _, key := range []string{"ACCESS_TOKEN", "PHONE_NUMBER_ID", "VERIFY_TOKEN", "GOOGLE_API_KEY", "REDIS_ADDR"} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("expected panic for missing %s", key)
				}
				if msg, ok := r.(string); !ok || !strings.Contains(msg, key) {
					t.Fatalf("expected panic naming %s, got %v", key, r)
				}
			}()

			_, _ = LoadAll()
		})
	}
}

func TestLoadAll_UnsupportedBackendPanics(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_BACKEND", "dynamo")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unsupported backend")
		}
	}()

	_, _ = LoadAll()
}

func TestLoadAll_InvalidIntPanics(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_DB", "not-a-number")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid REDIS_DB")
		}
	}()

	_, _ = LoadAll()
}
