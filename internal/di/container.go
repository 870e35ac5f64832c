package di

import (
	"time"

	"github.com/ecotrail/trail-booking/internal/handler"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/internal/service"
	"github.com/ecotrail/trail-booking/pkg/database"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/redis"
)

// Container holds all dependencies for the booking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Storage
	TxManager repository.TxManager

	// Services
	AdmissionService service.AdmissionService
	QueryService     service.BookingQueryService

	// Handlers
	HealthHandler  *handler.HealthHandler
	BookingHandler *handler.BookingHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB and Redis are optional; nil means the component is not configured
	DB        *database.PostgresDB
	Redis     *redis.Client
	TxManager repository.TxManager

	ProtocolPrefix   string
	ProtocolAttempts int
	Location         *time.Location
	DefaultTime      string
	RequestTimeout   time.Duration

	Logger *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Container{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		TxManager: cfg.TxManager,
	}

	ledger := service.NewCapacityLedger()
	issuer := service.NewProtocolIssuer(&service.ProtocolIssuerConfig{
		Prefix:      cfg.ProtocolPrefix,
		MaxAttempts: cfg.ProtocolAttempts,
		Location:    cfg.Location,
	}, log)

	// Initialize services
	c.AdmissionService = service.NewAdmissionService(
		c.TxManager,
		ledger,
		service.NewGuideResolver(),
		issuer,
		&service.AdmissionServiceConfig{
			DefaultTime:    cfg.DefaultTime,
			Location:       cfg.Location,
			RequestTimeout: cfg.RequestTimeout,
		},
		log,
	)
	c.QueryService = service.NewBookingQueryService(c.TxManager.Store(), ledger)

	// Initialize handlers
	components := map[string]handler.HealthChecker{"database": nil, "redis": nil}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components)
	c.BookingHandler = handler.NewBookingHandler(c.AdmissionService, c.QueryService, log)

	return c
}
