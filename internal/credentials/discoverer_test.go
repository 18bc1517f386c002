package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/secretmigrate/internal/credentials"
	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	testSourceScopeConstant        = "my_project"
	payloadUnavailableLogMessage   = "Credential payload unavailable; migrating empty value"
	missingTenantLogMessage        = "Credential has no tenant; dropping"
	globalLabelDefaultedLogMessage = "Global label unreadable; treating credential as tenant-scoped"
	discoveryCompletedLogMessage   = "Discovered credentials"
)

func newObservedDiscoverer(testInstance *testing.T, store secretstore.Store) (*credentials.Discoverer, *observer.ObservedLogs) {
	testInstance.Helper()
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	discoverer, discovererError := credentials.NewDiscoverer(credentials.DiscovererDependencies{
		Logger: zap.New(observedCore),
		Store:  store,
	})
	require.NoError(testInstance, discovererError)
	return discoverer, observedLogs
}

func TestDiscoverReconstructsCredentials(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	store.Seed(testSourceScopeConstant, "acme-api-key", map[string]string{
		credentials.DisplayNameLabel: "api-key",
		credentials.TenantLabel:      "acme",
		credentials.GlobalLabel:      "false",
		"team":                       "payments",
	}, []byte("old"), []byte("xyz"))
	store.Seed(testSourceScopeConstant, "globex-shared", map[string]string{
		credentials.DisplayNameLabel: "shared",
		credentials.TenantLabel:      "globex",
		credentials.GlobalLabel:      "true",
	}, []byte("shared-value"))
	store.Seed(testSourceScopeConstant, "terraform-state", map[string]string{"owner": "infra"}, []byte("ignored"))

	discoverer, observedLogs := newObservedDiscoverer(testInstance, store)
	discovered, discoverError := discoverer.Discover(context.Background(), testSourceScopeConstant)
	require.NoError(testInstance, discoverError)

	require.Equal(testInstance, []credentials.Credential{
		{
			Key:            "api-key",
			OrganizationID: "acme",
			Value:          "xyz",
			Labels: map[string]string{
				credentials.DisplayNameLabel: "api-key",
				credentials.TenantLabel:      "acme",
				credentials.GlobalLabel:      "false",
				"team":                       "payments",
			},
		},
		{
			Key:            "shared",
			OrganizationID: "globex",
			Value:          "shared-value",
			IsGlobal:       true,
			Labels: map[string]string{
				credentials.DisplayNameLabel: "shared",
				credentials.TenantLabel:      "globex",
				credentials.GlobalLabel:      "true",
			},
		},
	}, discovered)

	for _, call := range store.CallsFor(secretstore.OperationAccessSecretVersion) {
		require.NotEqual(testInstance, "terraform-state", call.Identifier)
	}

	summaries := observedLogs.FilterMessage(discoveryCompletedLogMessage).All()
	require.Len(testInstance, summaries, 1)
	require.Equal(testInstance, int64(3), summaries[0].ContextMap()["listed"])
	require.Equal(testInstance, int64(2), summaries[0].ContextMap()["retained"])
}

func TestDiscoverFallsBackToEmptyPayload(testInstance *testing.T) {
	testCases := []struct {
		name    string
		prepare func(store *secretstore.MemoryStore)
	}{
		{
			name: "no versions",
			prepare: func(store *secretstore.MemoryStore) {
				store.Seed(testSourceScopeConstant, "acme-db-pass", map[string]string{
					credentials.DisplayNameLabel: "db-pass",
					credentials.TenantLabel:      "acme",
				})
			},
		},
		{
			name: "access failure",
			prepare: func(store *secretstore.MemoryStore) {
				store.Seed(testSourceScopeConstant, "acme-db-pass", map[string]string{
					credentials.DisplayNameLabel: "db-pass",
					credentials.TenantLabel:      "acme",
				}, []byte("unreadable"))
				store.InjectFailure(secretstore.OperationAccessSecretVersion, testSourceScopeConstant, "acme-db-pass", errors.New("permission denied"))
			},
		},
		{
			name: "listed under another name",
			prepare: func(store *secretstore.MemoryStore) {
				store.Seed(testSourceScopeConstant, "legacy-name", map[string]string{
					credentials.DisplayNameLabel: "db-pass",
					credentials.TenantLabel:      "acme",
				}, []byte("unreachable"))
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			store := secretstore.NewMemoryStore()
			testCase.prepare(store)

			discoverer, observedLogs := newObservedDiscoverer(subTest, store)
			discovered, discoverError := discoverer.Discover(context.Background(), testSourceScopeConstant)
			require.NoError(subTest, discoverError)
			require.Len(subTest, discovered, 1)
			require.Equal(subTest, "db-pass", discovered[0].Key)
			require.Equal(subTest, "acme", discovered[0].OrganizationID)
			require.Empty(subTest, discovered[0].Value)
			require.True(subTest, discovered[0].PayloadMissing)

			warnings := observedLogs.FilterMessage(payloadUnavailableLogMessage).All()
			require.Len(subTest, warnings, 1)
			require.Equal(subTest, zapcore.WarnLevel, warnings[0].Level)
			require.Equal(subTest, "db-pass", warnings[0].ContextMap()["secret_key"])
			require.Equal(subTest, "acme", warnings[0].ContextMap()["organization_id"])
		})
	}
}

func TestDiscoverDropsCredentialsWithoutTenant(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	store.Seed(testSourceScopeConstant, "orphan", map[string]string{credentials.DisplayNameLabel: "orphan-key"}, []byte("value"))
	store.Seed(testSourceScopeConstant, "blank-tenant", map[string]string{
		credentials.DisplayNameLabel: "blank-key",
		credentials.TenantLabel:      "",
	}, []byte("value"))
	store.Seed(testSourceScopeConstant, "zeta-api-key", map[string]string{
		credentials.DisplayNameLabel: "api-key",
		credentials.TenantLabel:      "zeta",
	}, []byte("kept"))

	discoverer, observedLogs := newObservedDiscoverer(testInstance, store)
	discovered, discoverError := discoverer.Discover(context.Background(), testSourceScopeConstant)
	require.NoError(testInstance, discoverError)
	require.Len(testInstance, discovered, 1)
	require.Equal(testInstance, "zeta", discovered[0].OrganizationID)
	require.Equal(testInstance, "kept", discovered[0].Value)

	require.Len(testInstance, observedLogs.FilterMessage(missingTenantLogMessage).All(), 2)
}

func TestDiscoverDefaultsUnreadableGlobalLabelToFalse(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	store.Seed(testSourceScopeConstant, "acme-api-key", map[string]string{
		credentials.DisplayNameLabel: "api-key",
		credentials.TenantLabel:      "acme",
		credentials.GlobalLabel:      "maybe",
	}, []byte("xyz"))

	discoverer, observedLogs := newObservedDiscoverer(testInstance, store)
	discovered, discoverError := discoverer.Discover(context.Background(), testSourceScopeConstant)
	require.NoError(testInstance, discoverError)
	require.Len(testInstance, discovered, 1)
	require.False(testInstance, discovered[0].IsGlobal)
	require.Len(testInstance, observedLogs.FilterMessage(globalLabelDefaultedLogMessage).All(), 1)
}

func TestDiscoverPropagatesListFailure(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	listFailure := errors.New("quota exceeded")
	store.InjectFailure(secretstore.OperationListSecrets, testSourceScopeConstant, "", listFailure)

	discoverer, _ := newObservedDiscoverer(testInstance, store)
	discovered, discoverError := discoverer.Discover(context.Background(), testSourceScopeConstant)
	require.Nil(testInstance, discovered)
	require.ErrorIs(testInstance, discoverError, listFailure)

	var operationError secretstore.OperationError
	require.ErrorAs(testInstance, discoverError, &operationError)
	require.Equal(testInstance, secretstore.OperationListSecrets, operationError.Operation)
}

func TestDiscoverStopsWhenContextIsCancelled(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	cancellingStore := &cancelOnListStore{Store: store}
	store.Seed(testSourceScopeConstant, "acme-api-key", map[string]string{
		credentials.DisplayNameLabel: "api-key",
		credentials.TenantLabel:      "acme",
	}, []byte("xyz"))

	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancellingStore.cancel = cancel

	discoverer, _ := newObservedDiscoverer(testInstance, cancellingStore)
	_, discoverError := discoverer.Discover(executionContext, testSourceScopeConstant)
	require.ErrorIs(testInstance, discoverError, context.Canceled)
}

type cancelOnListStore struct {
	secretstore.Store
	cancel context.CancelFunc
}

func (store *cancelOnListStore) ListSecrets(executionContext context.Context, scope string) ([]secretstore.SecretMetadata, error) {
	listed, listError := store.Store.ListSecrets(executionContext, scope)
	store.cancel()
	return listed, listError
}

func TestDiscovererGet(testInstance *testing.T) {
	store := secretstore.NewMemoryStore()
	store.Seed(testSourceScopeConstant, "acme-db-pass", nil, []byte("s3cret"))

	discoverer, _ := newObservedDiscoverer(testInstance, store)
	credential, getError := discoverer.Get(context.Background(), testSourceScopeConstant, "acme", "db-pass")
	require.NoError(testInstance, getError)
	require.Equal(testInstance, "s3cret", credential.Value)
	require.Equal(testInstance, "db-pass", credential.Labels[credentials.DisplayNameLabel])

	_, missingError := discoverer.Get(context.Background(), testSourceScopeConstant, "acme", "absent")
	require.Error(testInstance, missingError)
	require.True(testInstance, secretstore.IsNotFound(missingError))

	_, tenantError := discoverer.Get(context.Background(), testSourceScopeConstant, "", "db-pass")
	require.ErrorAs(testInstance, tenantError, &credentials.MissingTenantError{})
}

func TestNewDiscovererRequiresStore(testInstance *testing.T) {
	_, discovererError := credentials.NewDiscoverer(credentials.DiscovererDependencies{})
	require.Error(testInstance, discovererError)
}
