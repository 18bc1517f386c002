package secretstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// StoreCall records one primitive invoked against a MemoryStore.
type StoreCall struct {
	Operation  OperationName
	Scope      string
	Identifier string
}

// StoredSecret is a snapshot of a secret held by a MemoryStore.
type StoredSecret struct {
	Identifier string
	Labels     map[string]string
	Versions   [][]byte
}

// LatestPayload returns the newest version payload, if any.
func (storedSecret StoredSecret) LatestPayload() ([]byte, bool) {
	if len(storedSecret.Versions) == 0 {
		return nil, false
	}
	return storedSecret.Versions[len(storedSecret.Versions)-1], true
}

type injectedFailure struct {
	operation  OperationName
	scope      string
	identifier string
	failure    error
}

// MemoryStore keeps secrets in process memory. Listing is ordered by identifier.
type MemoryStore struct {
	mutex    sync.Mutex
	scopes   map[string]map[string]*StoredSecret
	calls    []StoreCall
	failures []injectedFailure
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]map[string]*StoredSecret)}
}

// Seed places a secret with optional versions into scope, replacing any existing entry.
func (store *MemoryStore) Seed(scope string, identifier string, labels map[string]string, versions ...[]byte) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	storedVersions := make([][]byte, 0, len(versions))
	for _, version := range versions {
		storedVersions = append(storedVersions, append([]byte{}, version...))
	}
	store.scopeSecrets(scope)[identifier] = &StoredSecret{
		Identifier: identifier,
		Labels:     CloneLabels(labels),
		Versions:   storedVersions,
	}
}

// InjectFailure makes the next matching calls fail with failure. An empty identifier matches every identifier.
func (store *MemoryStore) InjectFailure(operation OperationName, scope string, identifier string, failure error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.failures = append(store.failures, injectedFailure{operation: operation, scope: scope, identifier: identifier, failure: failure})
}

// Secret returns a snapshot of a stored secret.
func (store *MemoryStore) Secret(scope string, identifier string) (StoredSecret, bool) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	storedSecret, exists := store.scopes[scope][identifier]
	if !exists {
		return StoredSecret{}, false
	}
	return snapshotSecret(storedSecret), true
}

// Secrets returns snapshots of every secret in scope ordered by identifier.
func (store *MemoryStore) Secrets(scope string) []StoredSecret {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	identifiers := store.sortedIdentifiers(scope)
	snapshots := make([]StoredSecret, 0, len(identifiers))
	for _, identifier := range identifiers {
		snapshots = append(snapshots, snapshotSecret(store.scopes[scope][identifier]))
	}
	return snapshots
}

// Calls returns the primitives invoked so far in invocation order.
func (store *MemoryStore) Calls() []StoreCall {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return append([]StoreCall{}, store.calls...)
}

// CallsFor returns the recorded calls for a single operation.
func (store *MemoryStore) CallsFor(operation OperationName) []StoreCall {
	matching := make([]StoreCall, 0)
	for _, call := range store.Calls() {
		if call.Operation == operation {
			matching = append(matching, call)
		}
	}
	return matching
}

// ListSecrets implements Store.
func (store *MemoryStore) ListSecrets(executionContext context.Context, scope string) ([]SecretMetadata, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if failure := store.begin(executionContext, OperationListSecrets, scope, ""); failure != nil {
		return nil, failure
	}

	identifiers := store.sortedIdentifiers(scope)
	listed := make([]SecretMetadata, 0, len(identifiers))
	for _, identifier := range identifiers {
		listed = append(listed, SecretMetadata{Name: identifier, Labels: CloneLabels(store.scopes[scope][identifier].Labels)})
	}
	return listed, nil
}

// CreateSecret implements Store.
func (store *MemoryStore) CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if failure := store.begin(executionContext, OperationCreateSecret, scope, identifier); failure != nil {
		return failure
	}

	scopeSecrets := store.scopeSecrets(scope)
	if _, exists := scopeSecrets[identifier]; exists {
		return OperationError{Operation: OperationCreateSecret, Scope: scope, Identifier: identifier, Cause: AlreadyExistsError{Scope: scope, Identifier: identifier}}
	}
	scopeSecrets[identifier] = &StoredSecret{Identifier: identifier, Labels: CloneLabels(labels)}
	return nil
}

// AddSecretVersion implements Store.
func (store *MemoryStore) AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if failure := store.begin(executionContext, OperationAddSecretVersion, scope, identifier); failure != nil {
		return failure
	}

	storedSecret, exists := store.scopes[scope][identifier]
	if !exists {
		return OperationError{Operation: OperationAddSecretVersion, Scope: scope, Identifier: identifier, Cause: NotFoundError{Scope: scope, Identifier: identifier}}
	}
	storedSecret.Versions = append(storedSecret.Versions, append([]byte{}, payload...))
	return nil
}

// AccessSecretVersion implements Store. Versions are addressed as LatestVersion or a 1-based number.
func (store *MemoryStore) AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if failure := store.begin(executionContext, OperationAccessSecretVersion, scope, identifier); failure != nil {
		return nil, failure
	}

	notFound := OperationError{Operation: OperationAccessSecretVersion, Scope: scope, Identifier: identifier, Cause: NotFoundError{Scope: scope, Identifier: identifier}}
	storedSecret, exists := store.scopes[scope][identifier]
	if !exists || len(storedSecret.Versions) == 0 {
		return nil, notFound
	}

	versionIndex := len(storedSecret.Versions) - 1
	if trimmedVersion := strings.TrimSpace(version); len(trimmedVersion) > 0 && trimmedVersion != LatestVersion {
		versionNumber, parseError := strconv.Atoi(trimmedVersion)
		if parseError != nil {
			return nil, notFound
		}
		if versionNumber < 1 || versionNumber > len(storedSecret.Versions) {
			return nil, notFound
		}
		versionIndex = versionNumber - 1
	}

	return append([]byte{}, storedSecret.Versions[versionIndex]...), nil
}

func (store *MemoryStore) begin(executionContext context.Context, operation OperationName, scope string, identifier string) error {
	store.calls = append(store.calls, StoreCall{Operation: operation, Scope: scope, Identifier: identifier})

	if executionContext != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return OperationError{Operation: operation, Scope: scope, Identifier: identifier, Cause: contextError}
		}
	}

	for _, failure := range store.failures {
		if failure.operation != operation || failure.scope != scope {
			continue
		}
		if len(failure.identifier) > 0 && failure.identifier != identifier {
			continue
		}
		return OperationError{Operation: operation, Scope: scope, Identifier: identifier, Cause: failure.failure}
	}
	return nil
}

func (store *MemoryStore) scopeSecrets(scope string) map[string]*StoredSecret {
	scopeSecrets, exists := store.scopes[scope]
	if !exists {
		scopeSecrets = make(map[string]*StoredSecret)
		store.scopes[scope] = scopeSecrets
	}
	return scopeSecrets
}

func (store *MemoryStore) sortedIdentifiers(scope string) []string {
	identifiers := make([]string, 0, len(store.scopes[scope]))
	for identifier := range store.scopes[scope] {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

func snapshotSecret(storedSecret *StoredSecret) StoredSecret {
	versions := make([][]byte, 0, len(storedSecret.Versions))
	for _, version := range storedSecret.Versions {
		versions = append(versions, append([]byte{}, version...))
	}
	return StoredSecret{Identifier: storedSecret.Identifier, Labels: CloneLabels(storedSecret.Labels), Versions: versions}
}
