package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconnect/event-service/internal/cache"
)

func (e *testEnv) serviceDeps() ServiceDependencies {
	return ServiceDependencies{
		Repo:        e.repo,
		Roles:       e.roles,
		Revocations: cache.NewSessionRevocations(e.cache),
		Publisher:   e.publisher,
		Logger:      e.logger,
		Validator:   e.validator,
	}
}

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sm := NewServiceManager(env.serviceDeps(), ServiceManagerConfig{
		ReservedDomains:      []string{"srmist.edu.in"},
		AdminInitialPassword: "SRMIST@2024",
		DefaultTimeout:       time.Second,
	})

	assert.Panics(t, func() { sm.Event() })
	assert.Error(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Initialize(ctx))
	require.NoError(t, sm.Initialize(ctx))

	assert.NotNil(t, sm.Identity())
	assert.NotNil(t, sm.Event())
	assert.NotNil(t, sm.Registration())
	assert.NotNil(t, sm.Media())
	assert.NoError(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Shutdown(ctx))
	require.NoError(t, sm.Shutdown(ctx))
	assert.Error(t, sm.HealthCheck(ctx))
}

func TestServiceManager_InitializeValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("config", func(t *testing.T) {
		sm := NewServiceManager(env.serviceDeps(), ServiceManagerConfig{})
		err := sm.Initialize(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved domain")
		assert.Contains(t, err.Error(), "admin initial password")
	})

	t.Run("dependencies", func(t *testing.T) {
		deps := env.serviceDeps()
		deps.Roles = nil
		sm := NewServiceManager(deps, ServiceManagerConfig{ReservedDomains: []string{"srmist.edu.in"}, AdminInitialPassword: "x"})
		err := sm.Initialize(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "role store")
	})
}
