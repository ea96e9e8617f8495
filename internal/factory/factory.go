package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bgv-dashboard/internal/audit"
	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/config"
	"bgv-dashboard/internal/handler"
	"bgv-dashboard/internal/service"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
	"bgv-dashboard/internal/view"
)

// Factory manages the lifecycle of all application dependencies.
type Factory struct {
	config *config.Config

	// Clients
	redisClient   *client.RedisClient
	kafkaProducer *client.KafkaProducer
	backendClient *client.BackendClient

	// Application wiring
	sessionStore   *session.Store
	auditPublisher *audit.Publisher
	renderer       *view.Renderer
	handlers       *handler.Handlers

	closeOnce sync.Once
}

// NewFactory creates and initializes all application dependencies.
func NewFactory() (*Factory, error) {
	cfg := config.Load()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{config: cfg}

	if err := f.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	renderer, err := view.NewRenderer(util.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}
	f.renderer = renderer

	f.auditPublisher = audit.NewPublisher(f.kafkaProducer, util.Get())
	f.sessionStore = session.NewStore(
		session.NewRedisCache(f.redisClient),
		cfg.Session.DefaultTTL,
		util.Get(),
	)

	authService := service.NewAuthService(f.backendClient, f.sessionStore, f.auditPublisher, util.Get())
	bgvService := service.NewBGVService(f.backendClient, f.auditPublisher, util.Get())
	f.handlers = handler.New(cfg, f.renderer, f.sessionStore, authService, bgvService, util.Get())

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("backend_url", cfg.Backend.BaseURL),
		util.Bool("audit_enabled", cfg.AuditEnabled()),
	)

	return f, nil
}

// initializeClients initializes all external service clients with
// health checks. Redis is required; the audit producer is optional.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisClient, err := client.NewRedisClient(f.config, util.Get())
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	f.redisClient = redisClient
	if err := f.redisClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}

	if f.config.AuditEnabled() {
		producer, err := client.NewKafkaProducer(f.config, util.Get())
		if err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without audit events", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	f.backendClient = client.NewBackendClient(f.config, util.Get())
	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Handlers() *handler.Handlers {
	return f.handlers
}

// Close releases every held resource exactly once.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		if f.kafkaProducer != nil {
			_ = f.kafkaProducer.Close()
		}
		if f.redisClient != nil {
			_ = f.redisClient.Close()
		}
		util.Sync()
	})
}
