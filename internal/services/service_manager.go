package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

// ServiceManager owns the lifecycle of every service
type ServiceManager interface {
	Initialize(ctx context.Context) error

	Identity() IdentityService
	Event() EventService
	Registration() RegistrationService
	Media() MediaService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	ReservedDomains      []string
	AdminInitialPassword string

	DefaultTimeout time.Duration
}

// ServiceDependencies are the collaborators shared by all services
type ServiceDependencies struct {
	Repo        repositories.Repository
	Roles       RoleStore
	Revocations TokenRevoker
	Publisher   events.EventPublisher
	Logger      *slog.Logger
	Validator   *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDependencies
	config ServiceManagerConfig

	// Service instances
	identityService     IdentityService
	eventService        EventService
	registrationService RegistrationService
	mediaService        MediaService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	return &serviceManager{deps: deps, config: config}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if err := sm.deps.validate(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	d := sm.deps
	sm.identityService = NewIdentityService(d.Repo, d.Roles, d.Revocations, authz.NewDomainPolicy(sm.config.ReservedDomains),
		sm.config.AdminInitialPassword, d.Publisher, d.Logger.With("service", "identity"), d.Validator)
	sm.eventService = NewEventService(d.Repo, d.Publisher, d.Logger.With("service", "event"), d.Validator)
	sm.registrationService = NewRegistrationService(d.Repo, d.Publisher, d.Logger.With("service", "registration"), d.Validator)
	sm.mediaService = NewMediaService(d.Repo, d.Publisher, d.Logger.With("service", "media"), d.Validator)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters
func (sm *serviceManager) Identity() IdentityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.identityService
}

func (sm *serviceManager) Event() EventService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.eventService
}

func (sm *serviceManager) Registration() RegistrationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.registrationService
}

func (sm *serviceManager) Media() MediaService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.mediaService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.DefaultTimeout)
	defer cancel()

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	var errs []error
	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}

	if repoManager, ok := sm.deps.Repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.deps.Logger.Error("Failed to shutdown repository manager", "error", err)
			errs = append(errs, err)
		}
	} else if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
		errs = append(errs, err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return errors.Join(errs...)
}

// ===== CONFIGURATION VALIDATION =====

func (config *ServiceManagerConfig) Validate() error {
	var errs []error
	if len(config.ReservedDomains) == 0 {
		errs = append(errs, errors.New("at least one reserved domain is required"))
	}
	if config.AdminInitialPassword == "" {
		errs = append(errs, errors.New("admin initial password is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func (d ServiceDependencies) validate() error {
	switch {
	case d.Repo == nil:
		return errors.New("repository is required")
	case d.Roles == nil:
		return errors.New("role store is required")
	case d.Revocations == nil:
		return errors.New("token revoker is required")
	case d.Logger == nil:
		return errors.New("logger is required")
	case d.Validator == nil:
		return errors.New("validator is required")
	}
	return nil
}
