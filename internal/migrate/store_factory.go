package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/secretmigrate/internal/execshell"
	"github.com/temirov/secretmigrate/internal/secretstore"
	"github.com/temirov/secretmigrate/internal/secretstore/gcloudcli"
	"github.com/temirov/secretmigrate/internal/secretstore/gcpsecretmanager"
	"github.com/temirov/secretmigrate/internal/secretstore/vaultkv"
)

const (
	storeCreationErrorTemplateConstant = "unable to construct %s secret store: %w"
	rateLimiterErrorTemplateConstant   = "unable to apply request rate limit: %w"
	requestsPerSecondFieldNameConstant = "requests_per_second"
	requestBurstFieldNameConstant      = "request_burst"
	backendFieldNameConstant           = "backend"
	storeRateLimitedMessageConstant    = "Throttling secret store requests"
)

// StoreCloser releases resources held by a store.
type StoreCloser func() error

// StoreFactory constructs the secret store for the configured backend.
type StoreFactory func(executionContext context.Context, configuration CommandConfiguration, logger *zap.Logger) (secretstore.Store, StoreCloser, error)

func noopStoreCloser() error {
	return nil
}

// NewBackendStore builds the store named by configuration.Backend.
func NewBackendStore(executionContext context.Context, configuration CommandConfiguration, logger *zap.Logger) (secretstore.Store, StoreCloser, error) {
	switch configuration.Backend {
	case BackendGcloud:
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, nil, fmt.Errorf(storeCreationErrorTemplateConstant, configuration.Backend, executorError)
		}
		client, clientError := gcloudcli.NewClient(shellExecutor)
		if clientError != nil {
			return nil, nil, fmt.Errorf(storeCreationErrorTemplateConstant, configuration.Backend, clientError)
		}
		return client, noopStoreCloser, nil
	case BackendVault:
		client, clientError := vaultkv.NewClient(configuration.Vault)
		if clientError != nil {
			return nil, nil, fmt.Errorf(storeCreationErrorTemplateConstant, configuration.Backend, clientError)
		}
		return client, noopStoreCloser, nil
	default:
		client, clientError := gcpsecretmanager.NewClient(executionContext)
		if clientError != nil {
			return nil, nil, fmt.Errorf(storeCreationErrorTemplateConstant, BackendGoogleSecretManager, clientError)
		}
		return client, client.Close, nil
	}
}

// applyRateLimit wraps store when a positive request rate is configured.
func applyRateLimit(store secretstore.Store, configuration CommandConfiguration, logger *zap.Logger) (secretstore.Store, error) {
	if configuration.RequestsPerSecond <= 0 {
		return store, nil
	}
	limitedStore, limitError := secretstore.NewRateLimitedStore(store, secretstore.NewRequestsPerSecondLimiter(configuration.RequestsPerSecond, configuration.RequestBurst))
	if limitError != nil {
		return nil, fmt.Errorf(rateLimiterErrorTemplateConstant, limitError)
	}
	logger.Debug(
		storeRateLimitedMessageConstant,
		zap.String(backendFieldNameConstant, configuration.Backend),
		zap.Float64(requestsPerSecondFieldNameConstant, configuration.RequestsPerSecond),
		zap.Int(requestBurstFieldNameConstant, configuration.RequestBurst),
	)
	return limitedStore, nil
}
