// Package gcpsecretmanager implements secretstore.Store on Google Cloud Secret Manager.
// Scopes are Google Cloud project identifiers.
package gcpsecretmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	projectResourceTemplateConstant       = "projects/%s"
	secretResourceTemplateConstant        = "projects/%s/secrets/%s"
	secretVersionResourceTemplateConstant = "projects/%s/secrets/%s/versions/%s"
	resourcePathSeparatorConstant         = "/"
	clientCreationErrorTemplateConstant   = "unable to create Secret Manager client: %w"
	serviceNotConfiguredMessageConstant   = "secret manager service not configured"
)

var errServiceNotConfigured = errors.New(serviceNotConfiguredMessageConstant)

// SecretIterator yields listed secrets until it returns iterator.Done.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// SecretManagerService is the subset of the Secret Manager API used by Client.
type SecretManagerService interface {
	ListSecrets(executionContext context.Context, request *secretmanagerpb.ListSecretsRequest) SecretIterator
	CreateSecret(executionContext context.Context, request *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersion(executionContext context.Context, request *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(executionContext context.Context, request *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Client adapts a SecretManagerService to secretstore.Store.
type Client struct {
	service SecretManagerService
}

// NewClient connects to Secret Manager using application default credentials.
func NewClient(executionContext context.Context) (*Client, error) {
	sdkClient, creationError := secretmanager.NewClient(executionContext)
	if creationError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, creationError)
	}
	return &Client{service: sdkService{client: sdkClient}}, nil
}

// NewClientWithService wraps an existing service implementation.
func NewClientWithService(service SecretManagerService) (*Client, error) {
	if service == nil {
		return nil, errServiceNotConfigured
	}
	return &Client{service: service}, nil
}

// Close releases the underlying connection.
func (client *Client) Close() error {
	return client.service.Close()
}

// ListSecrets implements secretstore.Store, draining every page of results.
func (client *Client) ListSecrets(executionContext context.Context, scope string) ([]secretstore.SecretMetadata, error) {
	secretIterator := client.service.ListSecrets(executionContext, &secretmanagerpb.ListSecretsRequest{
		Parent: fmt.Sprintf(projectResourceTemplateConstant, scope),
	})

	listed := make([]secretstore.SecretMetadata, 0)
	for {
		secret, nextError := secretIterator.Next()
		if errors.Is(nextError, iterator.Done) {
			return listed, nil
		}
		if nextError != nil {
			return nil, translateError(secretstore.OperationListSecrets, scope, "", nextError)
		}
		listed = append(listed, secretstore.SecretMetadata{
			Name:   secretIdentifier(secret.GetName()),
			Labels: secretstore.CloneLabels(secret.GetLabels()),
		})
	}
}

// CreateSecret implements secretstore.Store with automatic replication.
func (client *Client) CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error {
	_, createError := client.service.CreateSecret(executionContext, &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf(projectResourceTemplateConstant, scope),
		SecretId: identifier,
		Secret: &secretmanagerpb.Secret{
			Labels: secretstore.CloneLabels(labels),
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if createError != nil {
		return translateError(secretstore.OperationCreateSecret, scope, identifier, createError)
	}
	return nil
}

// AddSecretVersion implements secretstore.Store.
func (client *Client) AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error {
	_, addError := client.service.AddSecretVersion(executionContext, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  fmt.Sprintf(secretResourceTemplateConstant, scope, identifier),
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	})
	if addError != nil {
		return translateError(secretstore.OperationAddSecretVersion, scope, identifier, addError)
	}
	return nil
}

// AccessSecretVersion implements secretstore.Store.
func (client *Client) AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error) {
	if len(strings.TrimSpace(version)) == 0 {
		version = secretstore.LatestVersion
	}
	response, accessError := client.service.AccessSecretVersion(executionContext, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf(secretVersionResourceTemplateConstant, scope, identifier, version),
	})
	if accessError != nil {
		return nil, translateError(secretstore.OperationAccessSecretVersion, scope, identifier, accessError)
	}
	return response.GetPayload().GetData(), nil
}

// translateError maps gRPC status codes onto the secretstore error taxonomy.
func translateError(operation secretstore.OperationName, scope string, identifier string, cause error) error {
	switch status.Code(cause) {
	case codes.NotFound:
		cause = secretstore.NotFoundError{Scope: scope, Identifier: identifier}
	case codes.AlreadyExists:
		cause = secretstore.AlreadyExistsError{Scope: scope, Identifier: identifier}
	}
	return secretstore.OperationError{Operation: operation, Scope: scope, Identifier: identifier, Cause: cause}
}

func secretIdentifier(resourceName string) string {
	separatorIndex := strings.LastIndex(resourceName, resourcePathSeparatorConstant)
	if separatorIndex < 0 {
		return resourceName
	}
	return resourceName[separatorIndex+1:]
}

type sdkService struct {
	client *secretmanager.Client
}

func (service sdkService) ListSecrets(executionContext context.Context, request *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return service.client.ListSecrets(executionContext, request)
}

func (service sdkService) CreateSecret(executionContext context.Context, request *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	return service.client.CreateSecret(executionContext, request)
}

func (service sdkService) AddSecretVersion(executionContext context.Context, request *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	return service.client.AddSecretVersion(executionContext, request)
}

func (service sdkService) AccessSecretVersion(executionContext context.Context, request *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return service.client.AccessSecretVersion(executionContext, request)
}

func (service sdkService) Close() error {
	return service.client.Close()
}
