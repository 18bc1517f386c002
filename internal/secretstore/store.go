package secretstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	// LatestVersion addresses the newest enabled version of a secret.
	LatestVersion = "latest"

	notFoundErrorTemplateConstant        = "secret %s not found in %s"
	alreadyExistsErrorTemplateConstant   = "secret %s already exists in %s"
	operationErrorTemplateConstant       = "%s failed for %s: %v"
	operationErrorWithIdentifierTemplate = "%s failed for %s/%s: %v"
	storeNotConfiguredMessageConstant    = "secret store not configured"
	scopeRequiredMessageConstant         = "secret store scope required"
	identifierRequiredMessageConstant    = "secret identifier required"
)

// OperationName names a store primitive for error reporting and call recording.
type OperationName string

// Store primitives.
const (
	OperationListSecrets         OperationName = OperationName("ListSecrets")
	OperationCreateSecret        OperationName = OperationName("CreateSecret")
	OperationAddSecretVersion    OperationName = OperationName("AddSecretVersion")
	OperationAccessSecretVersion OperationName = OperationName("AccessSecretVersion")
)

// SecretMetadata is what a store reports for each listed secret.
type SecretMetadata struct {
	Name   string
	Labels map[string]string
}

// Store is the secret store collaborator. Scopes are store-specific containers
// such as a Google Cloud project or a Vault KV mount.
type Store interface {
	// ListSecrets returns every secret visible in scope, draining any pagination.
	ListSecrets(executionContext context.Context, scope string) ([]SecretMetadata, error)
	// CreateSecret creates an empty secret container with automatic replication and the given labels.
	// It fails with AlreadyExistsError when the identifier is taken.
	CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error
	// AddSecretVersion stores payload as a new version of an existing secret.
	AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error
	// AccessSecretVersion reads the payload of a version, typically LatestVersion.
	// It fails with NotFoundError when the secret or version does not exist.
	AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error)
}

var (
	// ErrStoreNotConfigured indicates a component was constructed without a store.
	ErrStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)
	// ErrScopeRequired indicates an operation was requested without a scope.
	ErrScopeRequired = errors.New(scopeRequiredMessageConstant)
	// ErrIdentifierRequired indicates an operation was requested without a secret identifier.
	ErrIdentifierRequired = errors.New(identifierRequiredMessageConstant)
)

// NotFoundError reports a missing secret or secret version.
type NotFoundError struct {
	Scope      string
	Identifier string
}

// Error describes the missing secret.
func (notFoundError NotFoundError) Error() string {
	return fmt.Sprintf(notFoundErrorTemplateConstant, notFoundError.Identifier, notFoundError.Scope)
}

// AlreadyExistsError reports an identifier collision on create.
type AlreadyExistsError struct {
	Scope      string
	Identifier string
}

// Error describes the collision.
func (existsError AlreadyExistsError) Error() string {
	return fmt.Sprintf(alreadyExistsErrorTemplateConstant, existsError.Identifier, existsError.Scope)
}

// OperationError wraps any failure of a store primitive.
type OperationError struct {
	Operation  OperationName
	Scope      string
	Identifier string
	Cause      error
}

// Error describes the failed operation.
func (operationError OperationError) Error() string {
	if len(operationError.Identifier) == 0 {
		return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Scope, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorWithIdentifierTemplate, operationError.Operation, operationError.Scope, operationError.Identifier, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundError NotFoundError
	return errors.As(err, &notFoundError)
}

// IsAlreadyExists reports whether err carries an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var existsError AlreadyExistsError
	return errors.As(err, &existsError)
}

// CloneLabels returns an independent copy of labels; nil stays nil.
func CloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	cloned := make(map[string]string, len(labels))
	for labelKey, labelValue := range labels {
		cloned[labelKey] = labelValue
	}
	return cloned
}
