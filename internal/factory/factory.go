package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admin-service/internal/bucketing"
	"admin-service/internal/client"
	"admin-service/internal/config"
	"admin-service/internal/hashing"
	"admin-service/internal/notification"
	"admin-service/internal/repository/clickhouse"
	"admin-service/internal/repository/elastic"
	redisrepo "admin-service/internal/repository/redis"
	"admin-service/internal/repository/scylla"
	"admin-service/internal/secrets"
	"admin-service/internal/service"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher           *hashing.Hasher
	secretsManager   *secrets.Manager
	bucketingManager *bucketing.Manager
	issuer           *token.Issuer
	notifier         notification.Notifier

	// Repositories
	adminRepository scylla.AdminRepository
	userRepository  scylla.UserRepository
	auditRepository clickhouse.AuditRepository
	userSearch      elastic.UserSearch
	challengeCache  *redisrepo.ChallengeCache

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		}
	}

	// Kafka is optional; audit entries still land in ClickHouse without it.
	if producer, err := client.NewKafkaProducer(f.config); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
	}

	// Elasticsearch
	if esClient, err := client.NewElasticsearchClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = esClient
	}

	// ClickHouse
	if chClient, err := client.NewClickHouseClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = chClient
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers wires the hasher, secret resolution, bucketing, the
// credential issuer, and the mailer.
func (f *Factory) initializeManagers() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	f.hasher = hashing.NewHasher(hashing.DefaultParams(), f.config.OTP.Pepper)
	f.bucketingManager = bucketing.NewManager(f.config)
	f.notifier = notification.NewSMTPNotifier(f.config)

	secretsManager, err := secrets.NewManager(ctx, f.config)
	if err != nil {
		return err
	}
	f.secretsManager = secretsManager

	secret, err := f.secretsManager.SessionSecret(ctx)
	if err != nil {
		return err
	}
	f.issuer = token.NewIssuer(secret, f.config.Auth.SessionLifetime)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("issuer_initialized", f.issuer != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)

	return nil
}

// ==============================
// Repository Initialization
// ==============================

func (f *Factory) AdminRepository() scylla.AdminRepository {
	if f.adminRepository == nil {
		f.adminRepository = scylla.NewAdminRepository(f.scyllaClient)
	}
	return f.adminRepository
}

func (f *Factory) UserRepository() scylla.UserRepository {
	if f.userRepository == nil {
		f.userRepository = scylla.NewUserRepository(f.scyllaClient, f.bucketingManager)
	}
	return f.userRepository
}

func (f *Factory) AuditRepository() clickhouse.AuditRepository {
	if f.auditRepository == nil {
		f.auditRepository = clickhouse.NewAuditRepository(f.clickhouseClient)
	}
	return f.auditRepository
}

func (f *Factory) UserSearch() elastic.UserSearch {
	if f.userSearch == nil {
		f.userSearch = elastic.NewUserSearch(f.esClient, f.config)
	}
	return f.userSearch
}

func (f *Factory) ChallengeCache() *redisrepo.ChallengeCache {
	if f.challengeCache == nil {
		f.challengeCache = redisrepo.NewChallengeCache(f.redisClient)
	}
	return f.challengeCache
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		var publisher service.EventPublisher
		if f.kafkaProducer != nil {
			publisher = service.NewKafkaPublisher(f.kafkaProducer, f.config.Kafka.SecurityEventTopic)
		}

		f.serviceFactory = service.NewServiceFactory(
			f.AdminRepository(),
			f.UserRepository(),
			f.UserSearch(),
			f.AuditRepository(),
			f.ChallengeCache(),
			f.hasher,
			f.issuer,
			f.notifier,
			publisher,
			f.config.OTP,
		)
	}
	return f.serviceFactory
}

func (f *Factory) Issuer() *token.Issuer {
	return f.issuer
}

func (f *Factory) Config() *config.Config {
	return f.config
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	} else {
		healthErrors["elasticsearch"] = fmt.Errorf("elasticsearch client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	} else {
		healthErrors["clickhouse"] = fmt.Errorf("clickhouse client not initialized")
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}
