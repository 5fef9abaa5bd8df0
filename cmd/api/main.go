// Package main is the entry point for the chat orchestrator server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-orchestrator/internal/booking"
	"github.com/capitalize-ai/chat-orchestrator/internal/config"
	"github.com/capitalize-ai/chat-orchestrator/internal/crm"
	"github.com/capitalize-ai/chat-orchestrator/internal/handler"
	"github.com/capitalize-ai/chat-orchestrator/internal/llm"
	"github.com/capitalize-ai/chat-orchestrator/internal/middleware"
	natsclient "github.com/capitalize-ai/chat-orchestrator/internal/nats"
	"github.com/capitalize-ai/chat-orchestrator/internal/responder"
	"github.com/capitalize-ai/chat-orchestrator/internal/service"
	"github.com/capitalize-ai/chat-orchestrator/internal/store"
	"github.com/capitalize-ai/chat-orchestrator/pkg/logger"
	"github.com/capitalize-ai/chat-orchestrator/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat orchestrator")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-orchestrator", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// CRM side channel. The orchestrator serves chat without it; sync
	// becomes a no-op when NATS is disabled.
	var (
		natsClient *natsclient.Client
		syncer     crm.Syncer = crm.NopSyncer{}
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		syncer = crm.NewStreamSyncer(streamManager, log)
	}

	// Conversation store.
	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		defer rdb.Close()
		st = store.NewRedisStore(rdb, cfg.ClosedConvTTL)
	default:
		st = store.NewMemoryStore()
	}

	// Generative backend. Anthropic wins when both keys are set; with
	// neither, the tier declines and static fallback still answers.
	var llmClient llm.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, generative tier disabled", zap.Error(err))
		llmClient = nil
	}

	flow := booking.New()
	flow.IdleTimeout = cfg.BookingIdleTimeout

	chain := responder.NewChain(log,
		responder.NewEscalationResponder(),
		responder.NewBookingResponder(flow),
		responder.NewAgentResponder(nil, cfg.AgentTimeout),
		responder.NewGenerativeResponder(llmClient, cfg.LLMModel, cfg.LLMTimeout),
		responder.NewStaticResponder(),
	)

	turns := service.NewTurnService(st, chain, syncer, log)

	healthHandler := handler.NewHealthHandler(natsClient)
	chatHandler := handler.NewChatHandler(turns, log)
	wsHandler := handler.NewWSHandler(turns, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/chat", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/", chatHandler.Post)
		r.Get("/", chatHandler.Get)
		r.Delete("/", chatHandler.Delete)
	})

	r.With(middleware.OptionalAuth(cfg.JWTSecret)).Get("/ws", wsHandler.Serve)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
