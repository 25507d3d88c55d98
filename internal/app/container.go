// Package app wires the application together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	automationApp "github.com/bookline/bookline/internal/automation/application"
	automationDomain "github.com/bookline/bookline/internal/automation/domain"
	automationPersistence "github.com/bookline/bookline/internal/automation/infrastructure/persistence"
	bookingApp "github.com/bookline/bookline/internal/booking/application"
	bookingDomain "github.com/bookline/bookline/internal/booking/domain"
	bookingCache "github.com/bookline/bookline/internal/booking/infrastructure/cache"
	bookingPersistence "github.com/bookline/bookline/internal/booking/infrastructure/persistence"
	inboxApp "github.com/bookline/bookline/internal/inbox/application"
	inboxDomain "github.com/bookline/bookline/internal/inbox/domain"
	inboxPersistence "github.com/bookline/bookline/internal/inbox/infrastructure/persistence"
	inventoryApp "github.com/bookline/bookline/internal/inventory/application"
	inventoryDomain "github.com/bookline/bookline/internal/inventory/domain"
	inventoryPersistence "github.com/bookline/bookline/internal/inventory/infrastructure/persistence"
	"github.com/bookline/bookline/internal/notification"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
	"github.com/bookline/bookline/internal/shared/infrastructure/database/postgres"
	"github.com/bookline/bookline/internal/shared/infrastructure/database/sqlite"
	"github.com/bookline/bookline/internal/shared/infrastructure/eventbus"
	"github.com/bookline/bookline/internal/shared/infrastructure/migrations"
	"github.com/bookline/bookline/pkg/config"
)

// Container holds all application dependencies.
//
// PostgreSQL deployments wire every context. SQLite local mode carries
// the automation engine only: the booking tables need the range
// exclusion constraint, which SQLite cannot enforce, so the scheduling
// services stay nil there.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories
	BookingRepo      bookingDomain.BookingRepository
	AvailabilityRepo bookingDomain.AvailabilityRepository
	ContactRepo      inboxDomain.ContactRepository
	ConversationRepo inboxDomain.ConversationRepository
	ItemRepo         inventoryDomain.ItemRepository
	UsageRepo        inventoryDomain.UsageRepository
	EventStore       automationDomain.EventStore
	RuleRepo         automationDomain.RuleRepository
	RunRepo          automationDomain.RunRepository
	AlertRepo        automationDomain.AlertRepository

	// Publishers
	EventPublisher eventbus.Publisher

	// Unit of Work
	UnitOfWork *database.UnitOfWork

	// Event log
	Appender *automationApp.LogAppender

	// Automation engine
	RuleMatcher    *automationApp.RuleMatcher
	ActionExecutor *automationApp.ActionExecutor
	RunExecutor    *automationApp.RunExecutor
	Dispatcher     *eventbus.RelayDispatcher
	RunProcessor   *automationApp.RunProcessor

	// Notification
	Gateway notification.Gateway
	Sender  *notification.ConversationSender
	Pauser  *notification.ConversationPauser

	// Booking services
	DatesCache         bookingApp.DatesCache
	AvailabilityIndex  *bookingApp.AvailabilityIndex
	ReservationService *bookingApp.ReservationService
	LifecycleService   *bookingApp.LifecycleService
	ScheduleAdmin      *bookingApp.ScheduleAdminService
	FormTracker        *bookingApp.FollowUpFormTracker

	// Inbox and inventory services
	IntakeService    *inboxApp.IntakeService
	DeductionService *inventoryApp.DeductionService
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)

	if err := c.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	// Redis is optional in development; the availability date cache
	// degrades to recomputation without it.
	if cfg.RedisURL != "" && c.DBDriver == database.DriverPostgres {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				conn.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, date cache disabled", "error", err)
		} else {
			client := redis.NewClient(opt)
			if err := client.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					conn.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, date cache disabled", "error", err)
			} else {
				c.RedisClient = client
				logger.Info("connected to Redis")
			}
		}
	}

	// Event publisher with dev fallback, same policy as Redis.
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			c.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	} else {
		c.EventPublisher = publisher
	}

	c.UnitOfWork = database.NewUnitOfWork(conn)

	// Automation engine, driver-agnostic.
	c.EventStore = automationPersistence.NewEventStore(conn)
	c.RuleRepo = automationPersistence.NewRuleRepository(conn)
	c.RunRepo = automationPersistence.NewRunRepository(conn)
	c.AlertRepo = automationPersistence.NewAlertRepository(conn)
	c.Appender = automationApp.NewLogAppender(c.EventStore)

	if c.DBDriver == database.DriverPostgres {
		c.wirePostgresContexts()
	}

	c.ActionExecutor = automationApp.NewActionExecutor(senderOrNil(c.Sender), c.AlertRepo, pauserOrNil(c.Pauser), logger)
	c.RuleMatcher = automationApp.NewRuleMatcher(c.RuleRepo)
	c.RunExecutor = automationApp.NewRunExecutor(c.RunRepo, c.EventStore, c.AlertRepo, c.ActionExecutor, logger)

	engine := automationApp.NewEngineDispatcher(c.RuleMatcher, c.RunRepo, c.RunExecutor, cfg.DispatchDeferred, logger)
	c.Dispatcher = eventbus.NewRelayDispatcher(c.EventPublisher, engine, logger)

	c.RunProcessor = automationApp.NewRunProcessor(c.RunRepo, c.RuleRepo, c.EventStore, c.RunExecutor,
		automationApp.ProcessorConfig{
			PollInterval:  cfg.RunPollInterval,
			BatchSize:     cfg.RunBatchSize,
			StatsInterval: cfg.RunStatsInterval,
		}, logger)

	if c.DBDriver == database.DriverPostgres {
		c.wirePostgresServices()
	}

	return c, nil
}

// wirePostgresContexts creates the repositories that need PostgreSQL.
func (c *Container) wirePostgresContexts() {
	conn := c.DBConn
	c.BookingRepo = bookingPersistence.NewPostgresBookingRepository(conn)
	c.AvailabilityRepo = bookingPersistence.NewPostgresAvailabilityRepository(conn)
	c.ContactRepo = inboxPersistence.NewPostgresContactRepository(conn)
	c.ConversationRepo = inboxPersistence.NewPostgresConversationRepository(conn)
	c.ItemRepo = inventoryPersistence.NewPostgresItemRepository(conn)
	c.UsageRepo = inventoryPersistence.NewPostgresUsageRepository(conn)

	c.Gateway = notification.NewBreakerGateway(
		notification.NewLogGateway(c.Logger),
		c.Config.NotifyBreakerThreshold,
		c.Config.NotifyBreakerTimeout,
	)
	c.Sender = notification.NewConversationSender(c.ContactRepo, c.ConversationRepo, c.Gateway, c.Logger)
	c.Pauser = notification.NewConversationPauser(c.ConversationRepo, c.Appender, c.Logger)
}

// wirePostgresServices creates the application services that need
// PostgreSQL repositories. Runs after the automation engine exists so
// side effects can dispatch.
func (c *Container) wirePostgresServices() {
	cfg := c.Config

	if c.RedisClient != nil {
		c.DatesCache = bookingCache.NewRedisDatesCache(c.RedisClient, cfg.DateCacheTTL, c.Logger)
	}

	c.IntakeService = inboxApp.NewIntakeService(c.ContactRepo, c.ConversationRepo, c.Appender, c.Logger)
	c.DeductionService = inventoryApp.NewDeductionService(c.ItemRepo, c.UsageRepo, c.Appender, c.Dispatcher, c.Logger)
	c.FormTracker = bookingApp.NewFollowUpFormTracker(c.Appender, c.Dispatcher, c.Logger)

	c.AvailabilityIndex = bookingApp.NewAvailabilityIndex(c.AvailabilityRepo, c.BookingRepo, cfg.SlotUnit, c.DatesCache, c.Logger)
	c.ReservationService = bookingApp.NewReservationService(c.UnitOfWork, c.BookingRepo, c.Appender,
		c.IntakeService, c.Dispatcher, c.DatesCache, c.Logger)
	c.LifecycleService = bookingApp.NewLifecycleService(c.UnitOfWork, c.BookingRepo, c.Appender,
		c.DeductionService, c.FormTracker, c.Dispatcher, c.Logger)
	c.ScheduleAdmin = bookingApp.NewScheduleAdminService(c.AvailabilityRepo, c.DatesCache, c.Logger)
}

func (c *Container) migrate(ctx context.Context) error {
	switch conn := c.DBConn.(type) {
	case *postgres.Connection:
		if err := migrations.RunPostgresMigrations(ctx, conn.Pool()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	case *sqlite.Connection:
		if err := migrations.RunSQLiteMigrations(ctx, conn.DB()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	c.Logger.Info("migrations applied", "driver", c.DBDriver)
	return nil
}

// Close releases all resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close Redis client", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("failed to close database connection", "error", err)
		}
	}
}

// senderOrNil keeps a typed nil from leaking into the interface field.
func senderOrNil(s *notification.ConversationSender) automationApp.MessageSender {
	if s == nil {
		return nil
	}
	return s
}

func pauserOrNil(p *notification.ConversationPauser) automationApp.ConversationPauser {
	if p == nil {
		return nil
	}
	return p
}
