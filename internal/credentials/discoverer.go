package credentials

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	sourceScopeFieldNameConstant    = "source_scope"
	secretNameFieldNameConstant     = "secret_name"
	secretKeyFieldNameConstant      = "secret_key"
	organizationIDFieldNameConstant = "organization_id"
	identifierFieldNameConstant     = "identifier"
	labelFieldNameConstant          = "label"
	listedCountFieldNameConstant    = "listed"
	retainedCountFieldNameConstant  = "retained"
	droppedCountFieldNameConstant   = "dropped"
	emptyCountFieldNameConstant     = "empty_payloads"

	discoveryStartedMessageConstant         = "Discovering credentials"
	discoveryCompletedMessageConstant       = "Discovered credentials"
	missingTenantMessageConstant            = "Credential has no tenant; dropping"
	conversionFailedMessageConstant         = "Credential conversion failed; dropping"
	payloadUnavailableMessageConstant       = "Credential payload unavailable; migrating empty value"
	globalLabelDefaultedMessageConstant     = "Global label unreadable; treating credential as tenant-scoped"
	credentialReadFailedMessageConstant     = "Credential read failed"
	listFailedErrorTemplateConstant         = "unable to list credentials in %s: %w"
	discoveryCancelledErrorTemplateConstant = "credential discovery cancelled: %w"
	getFailedErrorTemplateConstant          = "unable to read credential %s: %w"
	storeRequiredMessageConstant            = "credential discoverer requires a secret store"
)

var errStoreRequired = errors.New(storeRequiredMessageConstant)

// DiscovererDependencies describes collaborators for discovery.
type DiscovererDependencies struct {
	Logger *zap.Logger
	Store  secretstore.Store
}

// Discoverer reads tenant credentials from a source scope.
type Discoverer struct {
	logger *zap.Logger
	store  secretstore.Store
}

// NewDiscoverer validates dependencies and constructs a Discoverer.
func NewDiscoverer(dependencies DiscovererDependencies) (*Discoverer, error) {
	if dependencies.Store == nil {
		return nil, errStoreRequired
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{logger: logger, store: dependencies.Store}, nil
}

// Discover lists every secret in sourceScope and returns the tenant credentials among them in list order.
// Listing failures abort discovery; failures converting a single secret drop only that secret.
func (discoverer *Discoverer) Discover(executionContext context.Context, sourceScope string) ([]Credential, error) {
	discoverer.logger.Info(discoveryStartedMessageConstant, zap.String(sourceScopeFieldNameConstant, sourceScope))

	listedSecrets, listError := discoverer.store.ListSecrets(executionContext, sourceScope)
	if listError != nil {
		discoverer.logger.Error(credentialReadFailedMessageConstant, zap.String(sourceScopeFieldNameConstant, sourceScope), zap.Error(listError))
		return nil, fmt.Errorf(listFailedErrorTemplateConstant, sourceScope, listError)
	}

	discovered := make([]Credential, 0, len(listedSecrets))
	droppedCount := 0
	emptyCount := 0
	for _, secretMetadata := range listedSecrets {
		if _, isCredential := secretMetadata.Labels[DisplayNameLabel]; !isCredential {
			continue
		}

		credential, conversionError := discoverer.convert(executionContext, sourceScope, secretMetadata)
		if conversionError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return nil, fmt.Errorf(discoveryCancelledErrorTemplateConstant, contextError)
			}
			droppedCount++
			discoverer.logDropped(secretMetadata, conversionError)
			continue
		}
		if credential.PayloadMissing {
			emptyCount++
		}
		discovered = append(discovered, credential)
	}

	discoverer.logger.Info(
		discoveryCompletedMessageConstant,
		zap.String(sourceScopeFieldNameConstant, sourceScope),
		zap.Int(listedCountFieldNameConstant, len(listedSecrets)),
		zap.Int(retainedCountFieldNameConstant, len(discovered)),
		zap.Int(droppedCountFieldNameConstant, droppedCount),
		zap.Int(emptyCountFieldNameConstant, emptyCount),
	)
	return discovered, nil
}

// Get reads one known credential by organization and key. A missing secret or version is an error here.
func (discoverer *Discoverer) Get(executionContext context.Context, scope string, organizationID string, key string) (Credential, error) {
	identifier, identifierError := CompositeIdentifier(organizationID, key)
	if identifierError != nil {
		discoverer.logger.Error(credentialReadFailedMessageConstant, zap.String(secretKeyFieldNameConstant, key), zap.Error(identifierError))
		return Credential{}, identifierError
	}

	payload, accessError := discoverer.store.AccessSecretVersion(executionContext, scope, identifier, secretstore.LatestVersion)
	if accessError != nil {
		discoverer.logger.Error(
			credentialReadFailedMessageConstant,
			zap.String(secretKeyFieldNameConstant, key),
			zap.String(organizationIDFieldNameConstant, organizationID),
			zap.Error(accessError),
		)
		return Credential{}, fmt.Errorf(getFailedErrorTemplateConstant, identifier, accessError)
	}

	return Credential{
		Key:            key,
		OrganizationID: organizationID,
		Value:          string(payload),
		Labels:         map[string]string{DisplayNameLabel: key, TenantLabel: organizationID},
	}, nil
}

func (discoverer *Discoverer) convert(executionContext context.Context, sourceScope string, secretMetadata secretstore.SecretMetadata) (Credential, error) {
	labels := secretstore.CloneLabels(secretMetadata.Labels)
	credential := Credential{
		Key:            labels[DisplayNameLabel],
		OrganizationID: labels[TenantLabel],
		Labels:         labels,
	}

	isGlobal, globalError := ParseLabelBool(labels, GlobalLabel)
	var labelParseError LabelParseError
	if errors.As(globalError, &labelParseError) {
		discoverer.logger.Warn(
			globalLabelDefaultedMessageConstant,
			zap.String(secretKeyFieldNameConstant, credential.Key),
			zap.String(organizationIDFieldNameConstant, credential.OrganizationID),
			zap.Error(globalError),
		)
	}
	credential.IsGlobal = isGlobal

	identifier, identifierError := credential.Identifier()
	if identifierError != nil {
		return Credential{}, identifierError
	}

	payload, accessError := discoverer.store.AccessSecretVersion(executionContext, sourceScope, identifier, secretstore.LatestVersion)
	if accessError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return Credential{}, contextError
		}
		discoverer.logger.Warn(
			payloadUnavailableMessageConstant,
			zap.String(secretKeyFieldNameConstant, credential.Key),
			zap.String(organizationIDFieldNameConstant, credential.OrganizationID),
			zap.String(identifierFieldNameConstant, identifier),
			zap.Error(accessError),
		)
		credential.PayloadMissing = true
		return credential, nil
	}

	credential.Value = string(payload)
	return credential, nil
}

func (discoverer *Discoverer) logDropped(secretMetadata secretstore.SecretMetadata, conversionError error) {
	fields := []zap.Field{
		zap.String(secretNameFieldNameConstant, secretMetadata.Name),
		zap.String(secretKeyFieldNameConstant, secretMetadata.Labels[DisplayNameLabel]),
		zap.String(organizationIDFieldNameConstant, secretMetadata.Labels[TenantLabel]),
		zap.Error(conversionError),
	}

	var missingTenantError MissingTenantError
	if errors.As(conversionError, &missingTenantError) {
		discoverer.logger.Warn(missingTenantMessageConstant, append(fields, zap.String(labelFieldNameConstant, TenantLabel))...)
		return
	}
	discoverer.logger.Error(conversionFailedMessageConstant, fields...)
}
