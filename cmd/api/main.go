// Package main is the entry point for the API server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/commerce"
	"github.com/adalparedes/adalcore/internal/config"
	"github.com/adalparedes/adalcore/internal/handler"
	"github.com/adalparedes/adalcore/internal/middleware"
	natsclient "github.com/adalparedes/adalcore/internal/nats"
	"github.com/adalparedes/adalcore/internal/provider"
	"github.com/adalparedes/adalcore/internal/service"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/tracing"
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

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "adalcore", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.Open(cfg.DataPath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Event fan-out is optional; without NATS the portal still works, it just
	// loses cross-device updates.
	var events service.EventPublisher = service.NopPublisher{}
	var natsClient *natsclient.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
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

		publisher := natsclient.NewPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure event stream", zap.Error(err))
			os.Exit(1)
		}
		events = publisher
	} else {
		log.Warn("NATS_URL not set, event fan-out disabled")
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	registry := provider.NewRegistry(
		provider.NewGeminiAdapter(cfg.GeminiAPIKey, cfg.GeminiModel),
		provider.NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient),
		provider.NewDeepSeekAdapter(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, httpClient),
	)

	conversationSvc := service.NewConversationService(st, events, log)
	messageSvc := service.NewMessageService(st, conversationSvc, events, log)
	notificationSvc := service.NewNotificationService(st, events, log)
	commerceSvc := commerce.NewService(st, commerce.Config{
		StripeSecretKey:   cfg.StripeSecretKey,
		NOWPaymentsAPIKey: cfg.NOWPaymentsAPIKey,
		NOWPaymentsURL:    cfg.NOWPaymentsURL,
		SiteURL:           cfg.SiteURL,
	}, nil, notificationSvc, log)

	healthHandler := handler.NewHealthHandler(st, natsClient)
	chatHandler := handler.NewChatHandler(registry, log)
	sendHandler := handler.NewSendHandler(conversationSvc, messageSvc, registry, cfg.MessageCooldown, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, log)
	checkoutHandler := handler.NewCheckoutHandler(commerceSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.NotFound(handler.NotFound)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat/send", sendHandler.Send)
		r.Post("/chat/{provider}", chatHandler.Relay)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Append)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/packs", checkoutHandler.Packs)
			r.Post("/stripe", checkoutHandler.Stripe)
			r.Post("/crypto", checkoutHandler.Crypto)
		})
	})

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
