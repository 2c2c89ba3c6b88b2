package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/cache"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	event        *EventPostgreSQL
	eventHistory repositories.EventHistoryRepository
	media        repositories.MediaRepository
	registration repositories.RegistrationRepository
	profile      repositories.ProfileRepository
	identity     repositories.IdentityProvider
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB           *gorm.DB
	RedisClient  *redis.Client
	CacheManager *cache.CacheManager

	CasdoorConfig casdoor.CasdoorConfig
	// Identity overrides the Casdoor provider built from CasdoorConfig
	Identity repositories.IdentityProvider
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := config.CacheManager
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(config.RedisClient)
	}

	identity := config.Identity
	if identity == nil {
		identity = casdoor.NewIdentityCasdoor(config.CasdoorConfig)
	}

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
		identity:     identity,
	}
	repo.bind(config.DB, NewEventPostgreSQL(config.DB, cacheManager), newRegistrationPostgreSQL(config.DB, cacheManager))

	return repo
}

func (r *PostgreSQLRepository) bind(db *gorm.DB, event *EventPostgreSQL, registration *RegistrationPostgreSQL) {
	r.event = event
	r.eventHistory = NewEventHistoryPostgreSQL(db)
	r.media = NewMediaPostgreSQL(db)
	r.registration = registration
	r.profile = NewProfilePostgreSQL(db)
}

func (r *PostgreSQLRepository) Event() repositories.EventRepository {
	return r.event
}

func (r *PostgreSQLRepository) EventHistory() repositories.EventHistoryRepository {
	return r.eventHistory
}

func (r *PostgreSQLRepository) Media() repositories.MediaRepository {
	return r.media
}

func (r *PostgreSQLRepository) Registration() repositories.RegistrationRepository {
	return r.registration
}

func (r *PostgreSQLRepository) Profile() repositories.ProfileRepository {
	return r.profile
}

// Identity returns the external identity provider; it takes no part in transactions
func (r *PostgreSQLRepository) Identity() repositories.IdentityProvider {
	return r.identity
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	var (
		txEvents        *EventPostgreSQL
		txRegistrations *RegistrationPostgreSQL
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
			identity:     r.identity,
		}
		txEvents = newTxEventPostgreSQL(tx, r.cacheManager)
		txRegistrations = newTxRegistrationPostgreSQL(tx, r.cacheManager)
		txRepo.bind(tx, txEvents, txRegistrations)

		return fn(txRepo)
	})
	if err != nil {
		return err
	}

	commitCtx := context.WithoutCancel(ctx)
	txEvents.afterCommit(commitCtx)
	txRegistrations.afterCommit(commitCtx)
	return nil
}

// Ping reports the first unreachable backing store
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	if err := pingDB(ctx, r.db); err != nil {
		return err
	}
	if !r.cacheManager.Available() {
		return nil
	}
	if err := r.cacheManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

// Close closes the database pool. The Redis client belongs to the caller.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// RepositoryManager owns the repository lifecycle for main
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize fails fast when a configured store is unreachable
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return errors.New("database connection is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pingDB(ctx, rm.config.DB); err != nil {
		return err
	}
	if rm.config.RedisClient != nil {
		if err := rm.config.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return errors.New("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(_ context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
