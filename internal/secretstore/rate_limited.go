package secretstore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter blocks until a request may proceed.
type RateLimiter interface {
	Wait(executionContext context.Context) error
}

// RateLimitedStore throttles every primitive of the wrapped Store.
type RateLimitedStore struct {
	store   Store
	limiter RateLimiter
}

// NewRateLimitedStore wraps store so that each call first waits on limiter.
func NewRateLimitedStore(store Store, limiter RateLimiter) (*RateLimitedStore, error) {
	if store == nil {
		return nil, ErrStoreNotConfigured
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &RateLimitedStore{store: store, limiter: limiter}, nil
}

// NewRequestsPerSecondLimiter builds a token-bucket limiter. Non-positive rates disable throttling.
func NewRequestsPerSecondLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// ListSecrets implements Store.
func (limited *RateLimitedStore) ListSecrets(executionContext context.Context, scope string) ([]SecretMetadata, error) {
	if waitError := limited.limiter.Wait(executionContext); waitError != nil {
		return nil, OperationError{Operation: OperationListSecrets, Scope: scope, Cause: waitError}
	}
	return limited.store.ListSecrets(executionContext, scope)
}

// CreateSecret implements Store.
func (limited *RateLimitedStore) CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error {
	if waitError := limited.limiter.Wait(executionContext); waitError != nil {
		return OperationError{Operation: OperationCreateSecret, Scope: scope, Identifier: identifier, Cause: waitError}
	}
	return limited.store.CreateSecret(executionContext, scope, identifier, labels)
}

// AddSecretVersion implements Store.
func (limited *RateLimitedStore) AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error {
	if waitError := limited.limiter.Wait(executionContext); waitError != nil {
		return OperationError{Operation: OperationAddSecretVersion, Scope: scope, Identifier: identifier, Cause: waitError}
	}
	return limited.store.AddSecretVersion(executionContext, scope, identifier, payload)
}

// AccessSecretVersion implements Store.
func (limited *RateLimitedStore) AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error) {
	if waitError := limited.limiter.Wait(executionContext); waitError != nil {
		return nil, OperationError{Operation: OperationAccessSecretVersion, Scope: scope, Identifier: identifier, Cause: waitError}
	}
	return limited.store.AccessSecretVersion(executionContext, scope, identifier, version)
}
