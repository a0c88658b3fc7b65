package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/snuzng/storefront/internal/agegate"
	"github.com/snuzng/storefront/internal/cart"
	"github.com/snuzng/storefront/internal/config"
	"github.com/snuzng/storefront/internal/events"
	h "github.com/snuzng/storefront/internal/http"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/notify"
	"github.com/snuzng/storefront/internal/payment"
	"github.com/snuzng/storefront/internal/paystack"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/snuzng/storefront/internal/web"
	"github.com/snuzng/storefront/internal/webhook"
)

const sessionCookie = "snuz_session"

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx := context.Background()

	// Storage: Redis when configured, otherwise in process.
	var kv storage.KV
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			zl.Fatal("Redis connection failed", zap.Error(err))
		}
		zl.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		kv = storage.NewRedisKV(redisClient)
	} else {
		mem := storage.NewMemoryKV()
		defer mem.Close()
		zl.Warn("REDIS_ADDR is not set, visitor state is kept in memory")
		kv = mem
	}

	sessionKey := []byte(cfg.SessionSecret)
	if len(sessionKey) == 0 {
		sessionKey = securecookie.GenerateRandomKey(32)
		zl.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}

	if cfg.PaystackSecretKey == "" {
		zl.Warn("PAYSTACK_SECRET_KEY is not set, payment endpoints will answer 500")
	}

	// Notifications
	var mailer notify.Mailer
	if cfg.EmailConfigured() {
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridBaseURL, cfg.NotifyFrom)
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.NotifyTo, cfg.NotifyWorkers, cfg.NotifyQueueSize, zl.Named("notify"))
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		zl.Info("Publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		zl.Fatal("Failed to parse templates", zap.Error(err))
	}

	gate := agegate.New(
		storage.NewPersistentBackend(kv),
		storage.NewSessionBackend(sessionCookie, sessionKey),
		storage.NewCookieBackend(),
		storage.NewWindowTokenBackend(),
	)
	carts := cart.NewManager(kv)
	payments := payment.NewService(paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.RequestTimeout))
	webhooks := webhook.NewService(cfg.PaystackSecretKey, dispatcher, publisher, kv, webhook.Options{
		Dedupe:    cfg.WebhookDedupe,
		DedupeTTL: cfg.WebhookDedupeTTL,
	})

	pages := h.NewPageHandler(renderer, gate, carts, payments, cfg.RequestTimeout)
	router := h.NewRouter(h.Handlers{
		Pages:    pages,
		Checkout: h.NewCheckoutHandler(pages, payments, cfg.PublicBaseURL, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(carts),
		AgeGate:  h.NewAgeGateHandler(gate),
		Payments: h.NewPaymentHandler(payments, webhooks, cfg.RequestTimeout, cfg.MaxRequestBodySize),
	}, h.RouterConfig{
		AssetsDir:      cfg.AssetsDir,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("Storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Optional gRPC health endpoint for orchestrators that probe over gRPC.
	var grpcServer *grpc.Server
	var healthServer *health.Server
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			zl.Fatal("Failed to listen", zap.Error(err))
		}
		grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("storefront", healthpb.HealthCheckResponse_SERVING)

		// Enable reflection for grpcurl/grpcui
		reflection.Register(grpcServer)

		go func() {
			zl.Info("gRPC health listening", zap.String("port", cfg.GRPCHealthPort))
			if err := grpcServer.Serve(lis); err != nil {
				zl.Error("gRPC health server stopped", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	if healthServer != nil {
		healthServer.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	dispatcher.Close()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		zl.Warn("notification queue not drained before shutdown timeout")
	}

	if err := publisher.Close(); err != nil {
		zl.Warn("event publisher close failed", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zl.Warn("redis close failed", zap.Error(err))
		}
	}

	zl.Info("server exited")
}
