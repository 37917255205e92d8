package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wo-aiml-user/whatsapp-bot/internal/api"
	"github.com/wo-aiml-user/whatsapp-bot/internal/client"
	"github.com/wo-aiml-user/whatsapp-bot/internal/config"
	"github.com/wo-aiml-user/whatsapp-bot/internal/generator"
	"github.com/wo-aiml-user/whatsapp-bot/internal/logging"
	"github.com/wo-aiml-user/whatsapp-bot/internal/service"
	"github.com/wo-aiml-user/whatsapp-bot/internal/store"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	cfg, err := config.LoadAll()
	if err != nil {
		logging.Fatal("config load failed", "error", err)
	}

	ctx := context.Background()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		logging.Fatal("store init failed", "backend", cfg.Store.Backend, "error", err)
	}

	gen, err := generator.NewGeminiGenerator(ctx, cfg.Generator.APIKey, cfg.Generator.Model)
	if err != nil {
		logging.Fatal("generator init failed", "error", err)
	}
	defer gen.Close()

	wa := client.NewWhatsAppClient(cfg.WhatsApp.GraphAPIBase, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken)
	svc := service.New(st, wa, gen, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.DefaultTemplate, cfg.WhatsApp.TemplateLanguage)
	h := api.NewHandler(svc, st, cfg.WhatsApp.VerifyToken)

	slog.Info("whatsapp bridge starting",
		"addr", cfg.Server.Address,
		"store", cfg.Store.Backend,
		"model", cfg.Generator.Model,
	)

	if err := http.ListenAndServe(cfg.Server.Address, loggingMiddleware(api.Router(h))); err != nil {
		logging.Fatal("server stopped", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.MessageStore, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return store.NewRedisStore(rdb, cfg.Redis.KeyPrefix), nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
