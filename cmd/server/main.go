// Command server runs the full ingestion-and-detection pipeline: the
// ingestion HTTP endpoint (components A-E), the NATS JetStream event bus
// (F/G), and the processing plane driven off it (H-N), all under a single
// suture supervisor tree.
//
// # Startup order
//
//  1. Configuration (Koanf v2: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. Backing clients: NATS/JetStream, rate limiter store, object store
//  4. Processing-plane components: dedup, enrich, archive, index, detect,
//     alert dispatch, playbooks
//  5. Ingestion HTTP handler and router
//  6. Supervisor tree: data/messaging/api layers, then Serve until a
//     shutdown signal cancels the root context
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/sentrywatch/siemcore/internal/alertdispatch"
	"github.com/sentrywatch/siemcore/internal/archive"
	"github.com/sentrywatch/siemcore/internal/auth"
	"github.com/sentrywatch/siemcore/internal/config"
	"github.com/sentrywatch/siemcore/internal/dedup"
	"github.com/sentrywatch/siemcore/internal/detection"
	"github.com/sentrywatch/siemcore/internal/enrich"
	"github.com/sentrywatch/siemcore/internal/eventbus"
	"github.com/sentrywatch/siemcore/internal/index"
	"github.com/sentrywatch/siemcore/internal/ingest"
	"github.com/sentrywatch/siemcore/internal/logging"
	"github.com/sentrywatch/siemcore/internal/model"
	"github.com/sentrywatch/siemcore/internal/parser"
	"github.com/sentrywatch/siemcore/internal/pipeline"
	"github.com/sentrywatch/siemcore/internal/playbook"
	"github.com/sentrywatch/siemcore/internal/ratelimit"
	"github.com/sentrywatch/siemcore/internal/supervisor"
	"github.com/sentrywatch/siemcore/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("starting siemcore")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, js, err := connectNATS(cfg.EventBus)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	streamCfg := eventbus.DefaultStreamConfig(cfg.EventBus)
	if _, err := eventbus.NewStreamInitializer(js, streamCfg).EnsureStream(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to ensure JetStream stream")
	}

	producer, err := eventbus.NewNATSProducer(cfg.EventBus)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create event bus producer")
	}
	consumer, err := eventbus.NewNATSConsumer(cfg.EventBus, streamCfg.Name)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create event bus consumer")
	}

	jwtSecret, err := config.ResolveJWTSecret(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to resolve JWT signing key")
	}

	gatekeeper, err := auth.New(auth.Config{
		TokenSecret:            jwtSecret,
		AccessTokenLifetime:    time.Duration(cfg.Security.AccessTokenExpireMinutes) * time.Minute,
		MaxFailedLoginAttempts: cfg.Security.MaxFailedLoginAttempts,
		LockoutDuration:        time.Duration(cfg.Security.LockoutDurationMinutes) * time.Minute,
		BindClientIP:           cfg.Security.BindClientIP,
	}, auth.NewStaticUserStore(model.User{
		Username:     cfg.Security.AdminUsername,
		PasswordHash: cfg.Security.AdminPasswordHash,
		Scopes:       []model.Scope{model.ScopeAdmin},
	}))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build gatekeeper")
	}

	limiter := ratelimit.New(rateLimitStore(cfg.RateLimit))
	perUserLimits := ratelimit.LoadPerUserLimits(
		cfg.RateLimit.DefaultUserEventLimit,
		cfg.RateLimit.DefaultUserBatchLimit,
		10000,
	)

	registry := parser.NewRegistry()

	deduplicator := dedup.New(dedup.Config{
		Capacity:      cfg.Dedup.Capacity,
		Window:        cfg.Dedup.Window,
		SweepSchedule: cfg.Dedup.SweepSchedule,
	})
	defer deduplicator.Stop()

	enricher := enrich.NewFromConfig(cfg.Enrich)

	objectStore, err := archive.NewFromConfig(ctx, cfg.Archive)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build archive object store")
	}
	archiver := archive.New(objectStore)

	indexClient := index.NewClient(cfg.Index)
	if err := indexClient.Bootstrap(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to bootstrap index")
	}

	detectionEngine, err := detection.NewFromConfig(cfg.Rules)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load detection rules")
	}

	dispatcher, hub := alertdispatch.NewFromConfig(cfg.Alerts)

	// No case-management/analyzer/automation backends are wired yet; any
	// playbook action of those types fails per-action rather than panics.
	playbookEngine, err := playbook.NewFromConfig(cfg.Rules, nil, nil, nil, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load playbooks")
	}

	proc := pipeline.New(deduplicator, enricher, archiver, indexClient, detectionEngine, dispatcher, playbookEngine)

	router := ingest.NewRouter(ingest.Config{
		CORSAllowedOrigin:    cfg.Server.FrontendURL,
		TokenGrantPerMinute:  cfg.RateLimit.TokenGrantPerMinute,
		IngestRawPerMinute:   cfg.RateLimit.IngestRawPerMinute,
		IngestTypedPerMinute: cfg.RateLimit.IngestTypedPerMinute,
		BatchPerMinute:       cfg.RateLimit.BatchPerMinute,
	}, gatekeeper, registry, producer, limiter, perUserLimits)

	mux := http.NewServeMux()
	mux.Handle("/ws/alerts", hub)
	mux.Handle("/", router)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + portString(cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewSupervisorTree("siemcore", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService("ingestion-http", httpServer, 10*time.Second))
	tree.AddMessagingService(services.NewConsumerService("event-bus-consumer", consumer, proc))
	tree.AddMessagingService(services.NewHubService(hub))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor tree to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree exited with error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("siemcore stopped")
}

// connectNATS dials the configured NATS server and opens a JetStream
// context over it. The connection is separate from the Watermill
// publisher/subscriber the producer and consumer open for themselves: this
// one exists solely to run EnsureStream before either attaches.
func connectNATS(cfg config.EventBusConfig) (*natsgo.Conn, jetstream.JetStream, error) {
	nc, err := natsgo.Connect(cfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

// rateLimitStore picks a Redis-backed counter store when a Redis host is
// configured, falling back to an in-process store for single-instance or
// test deployments.
func rateLimitStore(cfg config.RateLimitConfig) ratelimit.CounterStore {
	if cfg.RedisHost == "" {
		return ratelimit.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisHost + ":" + portString(cfg.RedisPort),
	})
	return ratelimit.NewRedisStore(client)
}

func portString(port int) string {
	return strconv.Itoa(port)
}
