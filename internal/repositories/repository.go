package repositories

import "context"

// Repository aggregates the per-table repositories of the event service
type Repository interface {
	// Event domain
	Event() EventRepository
	EventHistory() EventHistoryRepository
	Media() MediaRepository

	// Registration domain
	Registration() RegistrationRepository

	// Accounts
	Profile() ProfileRepository
	Identity() IdentityProvider

	// WithTransaction runs fn against repositories bound to one database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
