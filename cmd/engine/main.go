package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wambo-ai/wambo/internal/analysis"
	"github.com/wambo-ai/wambo/internal/catalog"
	"github.com/wambo-ai/wambo/internal/config"
	"github.com/wambo-ai/wambo/internal/credits"
	"github.com/wambo-ai/wambo/internal/engine"
	"github.com/wambo-ai/wambo/internal/history"
	"github.com/wambo-ai/wambo/internal/observability/metrics"
	"github.com/wambo-ai/wambo/internal/reply"
	"github.com/wambo-ai/wambo/pkg/breaker"
	"github.com/wambo-ai/wambo/pkg/logging"
)

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var (
		cat    catalog.Accessor
		ledger credits.Ledger
		orders history.OrderSource
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		cat = catalog.NewPostgresAccessor(pool)
		ledger = credits.NewPostgresLedger(pool)
		orders = history.NewPostgresOrders(pool)
	} else {
		logger.Warn("DATABASE_URL not set, running with empty catalog and unlimited credits")
		cat = catalog.NewStaticAccessor(nil)
		ledger = credits.UnlimitedLedger{}
	}

	turns := history.NewRedisTurns(redisClient)
	store := history.NewStore(turns, orders)

	analyzer := analysis.New(cat, store, logger,
		analysis.WithConfig(analysis.Config{
			MinMessageLength:  cfg.MinMessageLength,
			MaxMessageLength:  cfg.MaxMessageLength,
			LowStockThreshold: cfg.LowStockThreshold,
			Quantity:          analysis.QuantityConfig{Min: cfg.MinQuantity, Max: cfg.MaxQuantity},
			ContextTurns:      cfg.ContextTurns,
			IndexTTL:          cfg.CatalogIndexTTL,
		}),
		analysis.WithMetrics(pipelineMetrics),
	)

	registry := reply.NewRegistry(breaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
		HalfOpenRequests: cfg.BreakerHalfOpenRequests,
		CallTimeout:      cfg.ProviderCallTimeout,
	}, pipelineMetrics)

	if cfg.OpenAIAPIKey != "" {
		client, err := reply.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Error("failed to build openai client", "error", err)
			os.Exit(1)
		}
		registry.Register(reply.KindFlagship, "openai", client, cfg.MaxHistoryMessages, cfg.MaxHistoryTokens)
	}
	if cfg.GeminiAPIKey != "" {
		client, err := reply.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to build gemini client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		registry.Register(reply.KindSecondary, "gemini", client, cfg.MaxHistoryMessages, cfg.MaxHistoryTokens)
	}
	if cfg.OpenRouterAPIKey != "" {
		client, err := reply.NewGatewayClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModels, logger)
		if err != nil {
			logger.Error("failed to build gateway client", "error", err)
			os.Exit(1)
		}
		registry.Register(reply.KindGateway, "openrouter", client, cfg.MaxHistoryMessages, cfg.MaxHistoryTokens)
	}

	orchestrator := reply.NewOrchestrator(registry, ledger, logger,
		reply.WithOrchestratorMetrics(pipelineMetrics))

	eng := engine.New(analyzer, orchestrator, cat, logger,
		engine.WithTurnRecorder(turns))

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Post("/internal/handle", handleMessage(eng, logger))

	server := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("engine listening", "addr", cfg.OpsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops listener failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down engine...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops listener shutdown failed", "error", err)
	}
	logger.Info("engine stopped")
}

// handleRequest is the internal invocation payload: one inbound message
// plus the tenant's agent configuration.
type handleRequest struct {
	TenantID       string   `json:"tenant_id"`
	ConversationID string   `json:"conversation_id"`
	SenderRef      string   `json:"sender_ref"`
	Text           string   `json:"text"`
	BusinessName   string   `json:"business_name"`
	SystemPrompt   string   `json:"system_prompt"`
	Model          string   `json:"model"`
	Snippets       []string `json:"knowledge_snippets"`
}

func handleMessage(eng *engine.Engine, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req handleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}

		result, err := eng.Handle(r.Context(),
			reply.AgentConfig{
				TenantID:          req.TenantID,
				BusinessName:      req.BusinessName,
				SystemPrompt:      req.SystemPrompt,
				Model:             req.Model,
				KnowledgeSnippets: req.Snippets,
			},
			nil,
			analysis.InboundMessage{
				TenantID:       req.TenantID,
				ConversationID: req.ConversationID,
				SenderRef:      req.SenderRef,
				Text:           req.Text,
				Timestamp:      time.Now().UTC(),
			},
		)
		if err != nil {
			if errors.Is(err, reply.ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("handle failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}
