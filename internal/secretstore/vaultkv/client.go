// Package vaultkv implements secretstore.Store on a HashiCorp Vault KV version 2 engine.
//
// A scope is a KV v2 mount path. Labels are kept as the secret's custom
// metadata and payloads live under a single data field. Creating a secret
// writes an empty first version with check-and-set 0, so an identifier
// collision is rejected by Vault itself rather than by a prior lookup.
package vaultkv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	payloadFieldNameConstant            = "payload"
	listKeysFieldNameConstant           = "keys"
	metadataPathTemplateConstant        = "%s/metadata"
	folderSuffixConstant                = "/"
	checkAndSetMismatchPhraseConstant   = "check-and-set"
	clientNotConfiguredMessageConstant  = "vault client not configured"
	clientCreationErrorTemplateConstant = "unable to create Vault client: %w"
	unexpectedListKeyTemplateConstant   = "unexpected list key type %T"
	createOnlyCheckAndSetVersion        = 0
)

var errClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)

// Configuration selects the Vault server and token. Empty values fall back to VAULT_ADDR and VAULT_TOKEN.
type Configuration struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

// Client adapts a Vault API client to secretstore.Store.
type Client struct {
	vaultClient *api.Client
}

// NewClient builds a Vault client from configuration and the standard Vault environment.
func NewClient(configuration Configuration) (*Client, error) {
	vaultConfiguration := api.DefaultConfig()
	if address := strings.TrimSpace(configuration.Address); len(address) > 0 {
		vaultConfiguration.Address = address
	}

	vaultClient, creationError := api.NewClient(vaultConfiguration)
	if creationError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, creationError)
	}
	if token := strings.TrimSpace(configuration.Token); len(token) > 0 {
		vaultClient.SetToken(token)
	}
	return &Client{vaultClient: vaultClient}, nil
}

// NewClientWithVault wraps an existing Vault API client.
func NewClientWithVault(vaultClient *api.Client) (*Client, error) {
	if vaultClient == nil {
		return nil, errClientNotConfigured
	}
	return &Client{vaultClient: vaultClient}, nil
}

// ListSecrets implements secretstore.Store. Only top-level secrets of the mount are listed, in key order.
func (client *Client) ListSecrets(executionContext context.Context, scope string) ([]secretstore.SecretMetadata, error) {
	listing, listError := client.vaultClient.Logical().ListWithContext(executionContext, fmt.Sprintf(metadataPathTemplateConstant, scope))
	if listError != nil {
		return nil, translateError(secretstore.OperationListSecrets, scope, "", listError)
	}
	if listing == nil || listing.Data == nil {
		return []secretstore.SecretMetadata{}, nil
	}

	rawKeys, _ := listing.Data[listKeysFieldNameConstant].([]interface{})
	identifiers := make([]string, 0, len(rawKeys))
	for _, rawKey := range rawKeys {
		identifier, isString := rawKey.(string)
		if !isString {
			return nil, secretstore.OperationError{Operation: secretstore.OperationListSecrets, Scope: scope, Cause: fmt.Errorf(unexpectedListKeyTemplateConstant, rawKey)}
		}
		if strings.HasSuffix(identifier, folderSuffixConstant) {
			continue
		}
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)

	keyValueStore := client.vaultClient.KVv2(scope)
	listed := make([]secretstore.SecretMetadata, 0, len(identifiers))
	for _, identifier := range identifiers {
		metadata, metadataError := keyValueStore.GetMetadata(executionContext, identifier)
		if metadataError != nil {
			return nil, translateError(secretstore.OperationListSecrets, scope, identifier, metadataError)
		}
		listed = append(listed, secretstore.SecretMetadata{Name: identifier, Labels: labelsFromCustomMetadata(metadata.CustomMetadata)})
	}
	return listed, nil
}

// CreateSecret implements secretstore.Store as a create-if-absent write followed by the label metadata.
func (client *Client) CreateSecret(executionContext context.Context, scope string, identifier string, labels map[string]string) error {
	keyValueStore := client.vaultClient.KVv2(scope)

	_, putError := keyValueStore.Put(executionContext, identifier, map[string]interface{}{}, api.WithCheckAndSet(createOnlyCheckAndSetVersion))
	if putError != nil {
		return translateError(secretstore.OperationCreateSecret, scope, identifier, putError)
	}

	metadataError := keyValueStore.PutMetadata(executionContext, identifier, api.KVMetadataPutInput{
		CustomMetadata: customMetadataFromLabels(labels),
	})
	if metadataError != nil {
		return translateError(secretstore.OperationCreateSecret, scope, identifier, metadataError)
	}
	return nil
}

// AddSecretVersion implements secretstore.Store.
func (client *Client) AddSecretVersion(executionContext context.Context, scope string, identifier string, payload []byte) error {
	_, putError := client.vaultClient.KVv2(scope).Put(executionContext, identifier, map[string]interface{}{
		payloadFieldNameConstant: string(payload),
	})
	if putError != nil {
		return translateError(secretstore.OperationAddSecretVersion, scope, identifier, putError)
	}
	return nil
}

// AccessSecretVersion implements secretstore.Store. A version without a payload field, such as the
// empty version written on create, is reported as not found.
func (client *Client) AccessSecretVersion(executionContext context.Context, scope string, identifier string, version string) ([]byte, error) {
	keyValueStore := client.vaultClient.KVv2(scope)

	var secret *api.KVSecret
	var readError error
	trimmedVersion := strings.TrimSpace(version)
	if len(trimmedVersion) == 0 || trimmedVersion == secretstore.LatestVersion {
		secret, readError = keyValueStore.Get(executionContext, identifier)
	} else {
		versionNumber, parseError := strconv.Atoi(trimmedVersion)
		if parseError != nil {
			return nil, secretstore.OperationError{Operation: secretstore.OperationAccessSecretVersion, Scope: scope, Identifier: identifier, Cause: parseError}
		}
		secret, readError = keyValueStore.GetVersion(executionContext, identifier, versionNumber)
	}
	if readError != nil {
		return nil, translateError(secretstore.OperationAccessSecretVersion, scope, identifier, readError)
	}

	notFound := secretstore.OperationError{
		Operation:  secretstore.OperationAccessSecretVersion,
		Scope:      scope,
		Identifier: identifier,
		Cause:      secretstore.NotFoundError{Scope: scope, Identifier: identifier},
	}
	if secret == nil || secret.Data == nil {
		return nil, notFound
	}
	payload, hasPayload := secret.Data[payloadFieldNameConstant].(string)
	if !hasPayload {
		return nil, notFound
	}
	return []byte(payload), nil
}

func translateError(operation secretstore.OperationName, scope string, identifier string, cause error) error {
	var responseError *api.ResponseError
	switch {
	case errors.Is(cause, api.ErrSecretNotFound):
		cause = secretstore.NotFoundError{Scope: scope, Identifier: identifier}
	case errors.As(cause, &responseError) && responseError.StatusCode == http.StatusNotFound:
		cause = secretstore.NotFoundError{Scope: scope, Identifier: identifier}
	case errors.As(cause, &responseError) && strings.Contains(strings.Join(responseError.Errors, " "), checkAndSetMismatchPhraseConstant):
		cause = secretstore.AlreadyExistsError{Scope: scope, Identifier: identifier}
	}
	return secretstore.OperationError{Operation: operation, Scope: scope, Identifier: identifier, Cause: cause}
}

func customMetadataFromLabels(labels map[string]string) map[string]interface{} {
	customMetadata := make(map[string]interface{}, len(labels))
	for labelKey, labelValue := range labels {
		customMetadata[labelKey] = labelValue
	}
	return customMetadata
}

func labelsFromCustomMetadata(customMetadata map[string]interface{}) map[string]string {
	if len(customMetadata) == 0 {
		return nil
	}
	labels := make(map[string]string, len(customMetadata))
	for labelKey, labelValue := range customMetadata {
		labels[labelKey] = fmt.Sprint(labelValue)
	}
	return labels
}
