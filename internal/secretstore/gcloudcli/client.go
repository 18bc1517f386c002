package gcloudcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/secretmigrate/internal/execshell"
	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	secretsSubcommandConstant             = "secrets"
	versionsSubcommandConstant            = "versions"
	listSubcommandConstant                = "list"
	createSubcommandConstant              = "create"
	addSubcommandConstant                 = "add"
	accessSubcommandConstant              = "access"
	projectFlagTemplateConstant           = "--project=%s"
	secretFlagTemplateConstant            = "--secret=%s"
	labelsFlagTemplateConstant            = "--labels=%s"
	jsonFormatFlagConstant                = "--format=json"
	automaticReplicationFlagConstant      = "--replication-policy=automatic"
	standardInputDataFileFlagConstant     = "--data-file=-"
	labelAssignmentTemplateConstant       = "%s=%s"
	labelAssignmentSeparatorConstant      = ","
	resourcePathSeparatorConstant         = "/"
	notFoundStatusMarkerConstant          = "NOT_FOUND"
	alreadyExistsStatusMarkerConstant     = "ALREADY_EXISTS"
	notFoundPhraseConstant                = "not found"
	alreadyExistsPhraseConstant           = "already exists"
	executorNotConfiguredMessageConstant  = "gcloud executor not configured"
	responseDecodingErrorTemplateConstant = "%s response decoding failed: %v"
)

// GcloudExecutor is the minimal interface required from execshell.ShellExecutor.
type GcloudExecutor interface {
	ExecuteGcloud(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ResponseDecodingError indicates gcloud produced output that could not be decoded.
type ResponseDecodingError struct {
	Operation secretstore.OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// Client coordinates gcloud invocations through execshell.
type Client struct {
	executor GcloudExecutor
}

// NewClient constructs a gcloud-backed store.
func NewClient(executor GcloudExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

type listedSecret struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
}

// ListSecrets implements secretstore.Store. gcloud follows pagination itself.
func (client *Client) ListSecrets(executionContext context.Context, scope string) ([]secretstore.SecretMetadata, error) {
	executionResult, executionError := client.executor.ExecuteGcloud(executionContext, execshell.CommandDetails{
		Arguments: []string{
			secretsSubcommandConstant,
			listSubcommandConstant,
			fmt.Sprintf(projectFlagTemplateConstant, scope),
			jsonFormatFlagConstant,
		},
	})
	if executionError != nil {
		return nil, translateError(secretstore.OperationListSecrets, scope, "", executionError)
	}

	var response []listedSecret
	if decodeError := json.Unmarshal([]byte(executionResult.StandardOutput), &response); decodeError != nil {
		return nil, secretstore.OperationError{
			Operation: secretstore.OperationListSecrets,
			Scope:     scope,
			Cause:     ResponseDecodingError{Operation: secretstore.OperationListSecrets, Cause: decodeError},
		}
	}

	listed := make([]secretstore.SecretMetadata, 0, len(response))
	for _, secret := range response {
		listed = append(listed, secretstore.SecretMetadata{
			Name:   secretIdentifier(secret.Name),
			Labels: secret.Labels,
		})
	}
	return listed, nil
}

// CreateSecret implements secretstore.Store.
func (client *Client) CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error {
	arguments := []string{
		secretsSubcommandConstant,
		createSubcommandConstant,
		identifier,
		fmt.Sprintf(projectFlagTemplateConstant, scope),
		automaticReplicationFlagConstant,
	}
	if len(labels) > 0 {
		arguments = append(arguments, fmt.Sprintf(labelsFlagTemplateConstant, formatLabels(labels)))
	}

	if _, executionError := client.executor.ExecuteGcloud(executionContext, execshell.CommandDetails{Arguments: arguments}); executionError != nil {
		return translateError(secretstore.OperationCreateSecret, scope, identifier, executionError)
	}
	return nil
}

// AddSecretVersion implements secretstore.Store. The payload is piped over standard input.
func (client *Client) AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error {
	standardInput := append([]byte{}, payload...)
	_, executionError := client.executor.ExecuteGcloud(executionContext, execshell.CommandDetails{
		Arguments: []string{
			secretsSubcommandConstant,
			versionsSubcommandConstant,
			addSubcommandConstant,
			identifier,
			fmt.Sprintf(projectFlagTemplateConstant, scope),
			standardInputDataFileFlagConstant,
		},
		StandardInput: standardInput,
	})
	if executionError != nil {
		return translateError(secretstore.OperationAddSecretVersion, scope, identifier, executionError)
	}
	return nil
}

// AccessSecretVersion implements secretstore.Store.
func (client *Client) AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error) {
	if len(strings.TrimSpace(version)) == 0 {
		version = secretstore.LatestVersion
	}
	executionResult, executionError := client.executor.ExecuteGcloud(executionContext, execshell.CommandDetails{
		Arguments: []string{
			secretsSubcommandConstant,
			versionsSubcommandConstant,
			accessSubcommandConstant,
			version,
			fmt.Sprintf(secretFlagTemplateConstant, identifier),
			fmt.Sprintf(projectFlagTemplateConstant, scope),
		},
	})
	if executionError != nil {
		return nil, translateError(secretstore.OperationAccessSecretVersion, scope, identifier, executionError)
	}
	return []byte(executionResult.StandardOutput), nil
}

func translateError(operation secretstore.OperationName, scope string, identifier string, cause error) error {
	var commandFailure execshell.CommandFailedError
	if errors.As(cause, &commandFailure) {
		standardError := commandFailure.Result.StandardError
		lowercaseError := strings.ToLower(standardError)
		switch {
		case strings.Contains(standardError, notFoundStatusMarkerConstant) || strings.Contains(lowercaseError, notFoundPhraseConstant):
			cause = secretstore.NotFoundError{Scope: scope, Identifier: identifier}
		case strings.Contains(standardError, alreadyExistsStatusMarkerConstant) || strings.Contains(lowercaseError, alreadyExistsPhraseConstant):
			cause = secretstore.AlreadyExistsError{Scope: scope, Identifier: identifier}
		}
	}
	return secretstore.OperationError{Operation: operation, Scope: scope, Identifier: identifier, Cause: cause}
}

func formatLabels(labels map[string]string) string {
	labelKeys := make([]string, 0, len(labels))
	for labelKey := range labels {
		labelKeys = append(labelKeys, labelKey)
	}
	sort.Strings(labelKeys)

	assignments := make([]string, 0, len(labelKeys))
	for _, labelKey := range labelKeys {
		assignments = append(assignments, fmt.Sprintf(labelAssignmentTemplateConstant, labelKey, labels[labelKey]))
	}
	return strings.Join(assignments, labelAssignmentSeparatorConstant)
}

func secretIdentifier(resourceName string) string {
	separatorIndex := strings.LastIndex(resourceName, resourcePathSeparatorConstant)
	if separatorIndex < 0 {
		return resourceName
	}
	return resourceName[separatorIndex+1:]
}
