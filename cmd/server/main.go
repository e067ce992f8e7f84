// Command server runs the covergate insurance administration API.
//
// main wires dependencies and the process lifecycle; business logic lives in
// the internal service packages. Every backing service is optional in dev:
// missing Postgres, Redis, Kafka or provider keys degrade to in-memory
// stores, log-only audit and local fakes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	assistanthandler "covergate/internal/assistant/handler"
	"covergate/internal/assistant/provider"
	assistantservice "covergate/internal/assistant/service"
	assistantstore "covergate/internal/assistant/store"
	"covergate/internal/audit"
	"covergate/internal/auth/credentials"
	authhandler "covergate/internal/auth/handler"
	"covergate/internal/auth/notify"
	authservice "covergate/internal/auth/service"
	"covergate/internal/auth/tokens"
	claimhandler "covergate/internal/claim/handler"
	claimservice "covergate/internal/claim/service"
	claimstore "covergate/internal/claim/store"
	"covergate/internal/document/blob"
	dochandler "covergate/internal/document/handler"
	docresolver "covergate/internal/document/resolver"
	docservice "covergate/internal/document/service"
	docstore "covergate/internal/document/store"
	identitystore "covergate/internal/identity/store"
	paymenthandler "covergate/internal/payment/handler"
	"covergate/internal/payment/processor"
	paymentservice "covergate/internal/payment/service"
	paymentstore "covergate/internal/payment/store"
	"covergate/internal/platform/config"
	"covergate/internal/platform/httpserver"
	"covergate/internal/platform/logger"
	"covergate/internal/platform/metrics"
	"covergate/internal/platform/middleware"
	"covergate/internal/platform/postgres"
	"covergate/internal/platform/redis"
	policyhandler "covergate/internal/policy/handler"
	policyservice "covergate/internal/policy/service"
	policystore "covergate/internal/policy/store"
	httptransport "covergate/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		log.Info("postgres connected")
	} else {
		log.Warn("postgres not configured, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	// Stores.
	var users identitystore.UserStore = identitystore.NewInMemory()
	var policies policystore.PolicyStore = policystore.NewInMemory()
	var claims claimstore.ClaimStore = claimstore.NewInMemory()
	var payments paymentstore.PaymentStore = paymentstore.NewInMemory()
	var attachments docstore.AttachmentStore = docstore.NewInMemory()
	var messages assistantstore.MessageStore = assistantstore.NewInMemory()
	if db != nil {
		users = identitystore.NewPostgres(db)
		policies = policystore.NewPostgres(db)
		claims = claimstore.NewPostgres(db)
		payments = paymentstore.NewPostgres(db)
		attachments = docstore.NewPostgres(db)
		messages = assistantstore.NewPostgres(db)
	}
	var creds authservice.CredentialStore = credentials.NewInMemory()
	if redisClient != nil {
		creds = credentials.NewRedis(redisClient)
	}

	// Audit trail.
	var sink audit.Sink = audit.NewLogSink(log)
	if cfg.KafkaBrokers != "" {
		kafkaSink, err := audit.NewKafkaSink(ctx, strings.Split(cfg.KafkaBrokers, ","), cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events publishing to kafka", "topic", cfg.AuditTopic)
	}
	auditor := audit.NewPublisher(sink, log)

	// Attachment storage.
	blobs, err := blob.NewDisk(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}
	documents := docservice.New(blobs, attachments,
		docservice.WithLogger(log),
		docservice.WithAuditPublisher(auditor),
		docservice.WithResolver(docresolver.New(policies, claims, users)),
	)

	// Domain services.
	jwt := tokens.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	auth := authservice.New(users, creds, jwt, notify.NewLogNotifier(log), cfg.OTPTTL, cfg.ResetTokenTTL,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditor),
		authservice.WithMetrics(m),
	)
	policySvc := policyservice.New(policies,
		policyservice.WithLogger(log),
		policyservice.WithAuditPublisher(auditor),
		policyservice.WithMetrics(m),
	)
	claimSvc := claimservice.New(claims, policies, documents,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(auditor),
		claimservice.WithMetrics(m),
	)

	var proc processor.Processor = processor.NewFake()
	if cfg.PaymentAPIKey != "" {
		proc = processor.NewHTTP(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)
	} else {
		log.Warn("payment provider not configured, using local fake")
	}
	paymentSvc := paymentservice.New(payments, policies, policySvc, proc,
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(auditor),
		paymentservice.WithMetrics(m),
	)

	var primary provider.Provider
	if cfg.AssistantAPIKey != "" {
		primary = provider.NewRemote(cfg.AssistantBaseURL, cfg.AssistantAPIKey, "gemini-1.5-flash", cfg.AssistantTimeout)
	}
	assistantSvc := assistantservice.New(messages, primary, provider.NewRuleBased(),
		assistantservice.WithLogger(log),
		assistantservice.WithMetrics(m),
	)

	// HTTP surface.
	global := []httptransport.Middleware{
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Logger(log),
		middleware.Device,
		middleware.Latency(m, "api"),
		middleware.Timeout(60 * time.Second),
	}
	router := httptransport.NewRouter(global, middleware.ContentTypeJSON,
		[]httptransport.Registrar{
			authhandler.New(auth, jwt, log, cfg.AccessTTL, cfg.RefreshTTL),
			policyhandler.New(policySvc, jwt, log),
			paymenthandler.New(paymentSvc, jwt, log),
			assistanthandler.New(assistantSvc, jwt, log),
		},
		[]httptransport.Registrar{
			claimhandler.New(claimSvc, jwt, log),
			dochandler.New(documents, jwt, log, cfg.MaxUploadSize),
		},
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return auditor.Run(ctx)
	})
	group.Go(func() error {
		return documents.RunSweeper(ctx, cfg.SweepInterval, cfg.SweepGrace)
	})
	group.Go(func() error {
		log.Info("starting covergate server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
