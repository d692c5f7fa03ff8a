// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages; anything not configured (database, redis, kafka) falls back to an
// in-process implementation so the binary runs standalone.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"idhub/internal/authz"
	credmetrics "idhub/internal/credential/metrics"
	"idhub/internal/credential/query"
	credservice "idhub/internal/credential/service"
	credstore "idhub/internal/credential/store"
	"idhub/internal/credential/watchdog"
	"idhub/internal/did"
	"idhub/internal/events"
	"idhub/internal/keys"
	participantmetrics "idhub/internal/participant/metrics"
	participantservice "idhub/internal/participant/service"
	participantstore "idhub/internal/participant/store"
	"idhub/internal/platform/config"
	"idhub/internal/platform/database"
	"idhub/internal/platform/kafka/producer"
	"idhub/internal/platform/logger"
	"idhub/internal/platform/redis"
	"idhub/internal/presentation/generator"
	presmetrics "idhub/internal/presentation/metrics"
	presservice "idhub/internal/presentation/service"
	"idhub/internal/secretstore"
	httptransport "idhub/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing idhub",
		"addr", cfg.Addr,
		"watchdog_interval", cfg.WatchdogInterval.String(),
	)

	// Storage. Postgres when configured, in-memory otherwise.
	var (
		participants participantstore.Store
		credentials  credstore.Store
	)
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck
		participants = participantstore.NewPostgres(pool.DB())
		credentials = credstore.NewPostgres(pool.DB())
		log.Info("using postgres storage")
	} else {
		participants = participantstore.NewInMemoryStore()
		credentials = credstore.NewInMemoryStore()
		log.Warn("no database configured, using in-memory storage")
	}

	// Secret store. Redis when configured.
	var secrets secretstore.Store
	redisCfg := redis.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisClient, err := redis.New(redisCfg)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		secrets = secretstore.NewRedisStore(redisClient)
		log.Info("using redis secret store")
	} else {
		secrets = secretstore.NewInMemoryStore()
		log.Warn("no redis configured, using in-memory secret store")
	}

	// Lifecycle events. Kafka when configured, structured log otherwise.
	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.KafkaBrokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			DeliveryTimeout: cfg.ExternalCallTimeout,
		}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer prod.Close()
		publisher = events.NewKafkaPublisher(prod, cfg.EventTopic, log)
		log.Info("publishing lifecycle events to kafka", "topic", cfg.EventTopic)
	}

	keyManager := keys.NewManager()
	credentialMetrics := credmetrics.New()

	credentialSvc := credservice.NewService(credentials, participants,
		credservice.WithLogger(log),
		credservice.WithMetrics(credentialMetrics),
		credservice.WithPublisher(publisher),
	)

	participantSvc := participantservice.NewService(participants, credentials, keyManager, secrets,
		participantservice.WithLogger(log),
		participantservice.WithMetrics(participantmetrics.New()),
		participantservice.WithPublisher(publisher),
	)

	gate := authz.NewGate(authz.WithLogger(log))
	gate.Register(authz.KindParticipant, participantSvc.Owner)
	gate.Register(authz.KindCredential, credentialSvc.Owner)

	resolver := query.NewResolver(credentials, query.WithLogger(log))

	presentationSvc := presservice.NewService(keyManager, did.NewStaticPublisher(keyManager),
		presservice.WithLogger(log),
		presservice.WithMetrics(presmetrics.New()),
	)
	presentationSvc.AddGenerator(generator.NewJWTGenerator())
	presentationSvc.AddGenerator(generator.NewLDPGenerator())
	presentationSvc.AddGenerator(generator.NewJOSEGenerator())

	router := httptransport.NewRouter(httptransport.RouterConfig{
		SigningKey:   []byte(cfg.JWTSigningKey),
		Participant:  httptransport.NewParticipantHandler(participantSvc, gate, log),
		Credential:   httptransport.NewCredentialHandler(credentialSvc, gate, log),
		Presentation: httptransport.NewPresentationHandler(participantSvc, resolver, presentationSvc, gate, log),
		Logger:       log,
	})

	rootCtx, stopWatchdog := context.WithCancel(context.Background())
	defer stopWatchdog()

	if cfg.WatchdogInterval > 0 {
		wd, err := watchdog.New(credentials, credentialSvc,
			watchdog.WithInterval(cfg.WatchdogInterval),
			watchdog.WithBatchSize(cfg.WatchdogBatch),
			watchdog.WithLogger(log),
			watchdog.WithMetrics(credentialMetrics),
		)
		if err != nil {
			log.Error("watchdog init failed", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := wd.Start(rootCtx); err != nil && err != context.Canceled {
				log.Error("watchdog stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stopWatchdog()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
