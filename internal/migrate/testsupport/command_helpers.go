package testsupport

import (
	"context"
	"time"

	"go.uber.org/zap"

	migrate "github.com/temirov/secretmigrate/internal/migrate"
	"github.com/temirov/secretmigrate/internal/secretstore"
)

// StoreFactoryStub hands out a fixed store and records the configuration it was asked for.
type StoreFactoryStub struct {
	Store                  secretstore.Store
	CreationError          error
	CloseError             error
	ReceivedConfigurations []migrate.CommandConfiguration
	CloseCount             int
}

// Build implements migrate.StoreFactory.
func (factory *StoreFactoryStub) Build(_ context.Context, configuration migrate.CommandConfiguration, _ *zap.Logger) (secretstore.Store, migrate.StoreCloser, error) {
	factory.ReceivedConfigurations = append(factory.ReceivedConfigurations, configuration)
	if factory.CreationError != nil {
		return nil, nil, factory.CreationError
	}
	return factory.Store, func() error {
		factory.CloseCount++
		return factory.CloseError
	}, nil
}

// FixedClock returns a clock that always reports instant.
func FixedClock(instant time.Time) func() time.Time {
	return func() time.Time {
		return instant
	}
}

// FixedRunIdentifier returns a provider that always reports identifier.
func FixedRunIdentifier(identifier string) func() string {
	return func() string {
		return identifier
	}
}
