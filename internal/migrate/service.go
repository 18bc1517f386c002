package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/secretmigrate/internal/credentials"
	"github.com/temirov/secretmigrate/internal/routing"
	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	runIdentifierFieldNameConstant   = "run_id"
	sourceScopeFieldNameConstant     = "source_scope"
	destinationFieldNameConstant     = "destination"
	secretKeyFieldNameConstant       = "secret_key"
	organizationIDFieldNameConstant  = "organization_id"
	identifierFieldNameConstant      = "identifier"
	existingSecretFieldNameConstant  = "existing_secret"
	dryRunFieldNameConstant          = "dry_run"
	emptyPayloadFieldNameConstant    = "empty_payload"
	blockingReasonsFieldNameConstant = "blocking_reasons"
	credentialCountFieldNameConstant = "credentials"
	outcomeCountsFieldNameConstant   = "outcomes"

	migrationStartedMessageConstant          = "Starting credential migration"
	migrationCompletedMessageConstant        = "Credential migration completed"
	migrationAbortedMessageConstant          = "Credential migration aborted"
	migrationBlockedMessageConstant          = "Credential migration blocked by safety gates"
	skippedGlobalMessageConstant             = "Skipping global credential"
	skippedUnroutableMessageConstant         = "Skipping credential without destination"
	duplicateDetectedMessageConstant         = "Destination already holds credential"
	credentialMigratedMessageConstant        = "Credential migrated"
	credentialPlannedMessageConstant         = "Credential would be migrated"
	emptyPayloadMigratedMessageConstant      = "Migrating credential with empty payload"
	credentialMigrationFailedMessageConstant = "Credential migration failed"

	unroutableErrorTemplateConstant         = "credential %q of organization %q has no destination"
	duplicateErrorTemplateConstant          = "destination %s already holds credential %q of organization %q as %s"
	migrationErrorTemplateConstant          = "unable to migrate credential %s to %s: %w"
	destinationListErrorTemplateConstant    = "unable to inspect destination %s: %w"
	migrationCancelledErrorTemplateConstant = "credential migration cancelled: %w"
	storeMissingMessageConstant             = "migration service requires a secret store"
)

var errStoreMissing = errors.New(storeMissingMessageConstant)

// UnroutableCredentialError reports a credential whose organization has no destination.
type UnroutableCredentialError struct {
	Key            string
	OrganizationID string
}

// Error describes the missing route.
func (unroutableError UnroutableCredentialError) Error() string {
	return fmt.Sprintf(unroutableErrorTemplateConstant, unroutableError.Key, unroutableError.OrganizationID)
}

// DuplicateCredentialError reports a destination that already holds a secret with the same display name and tenant.
type DuplicateCredentialError struct {
	Key            string
	OrganizationID string
	Destination    string
	ExistingSecret string
}

// Error describes the conflicting secret.
func (duplicateError DuplicateCredentialError) Error() string {
	return fmt.Sprintf(duplicateErrorTemplateConstant, duplicateError.Destination, duplicateError.Key, duplicateError.OrganizationID, duplicateError.ExistingSecret)
}

// ServiceDependencies describes collaborators for migration.
type ServiceDependencies struct {
	Logger *zap.Logger
	// Store serves the source scope and every destination scope.
	Store secretstore.Store
	// Clock stamps reports; defaults to time.Now.
	Clock func() time.Time
	// RunIdentifierProvider names each run; defaults to random UUIDs.
	RunIdentifierProvider func() string
}

// MigrationRequest describes one run.
type MigrationRequest struct {
	Credentials    []credentials.Credential
	DestinationMap routing.DestinationMap
	SourceScope    string
	// DryRun performs every check but replaces destination writes with OutcomePlanned records.
	DryRun bool
}

// Service copies discovered credentials into their destination scopes.
type Service struct {
	logger                *zap.Logger
	store                 secretstore.Store
	clock                 func() time.Time
	runIdentifierProvider func() string
	safetyEvaluator       SafetyEvaluator
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Store == nil {
		return nil, errStoreMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	runIdentifierProvider := dependencies.RunIdentifierProvider
	if runIdentifierProvider == nil {
		runIdentifierProvider = uuid.NewString
	}

	return &Service{
		logger:                logger,
		store:                 dependencies.Store,
		clock:                 clock,
		runIdentifierProvider: runIdentifierProvider,
		safetyEvaluator:       SafetyEvaluator{},
	}, nil
}

// Migrate copies every eligible credential and stops at the first failed copy.
func (service *Service) Migrate(executionContext context.Context, discovered []credentials.Credential, destinationMap routing.DestinationMap, sourceScope string) (MigrationReport, error) {
	return service.Execute(executionContext, MigrationRequest{
		Credentials:    discovered,
		DestinationMap: destinationMap,
		SourceScope:    sourceScope,
	})
}

// Execute runs the migration described by request. The returned report holds every credential
// processed before a failure together with the failed one.
func (service *Service) Execute(executionContext context.Context, request MigrationRequest) (MigrationReport, error) {
	report := MigrationReport{
		RunIdentifier: service.runIdentifierProvider(),
		SourceScope:   request.SourceScope,
		DryRun:        request.DryRun,
		StartedAt:     service.clock(),
		Records:       make([]MigrationRecord, 0, len(request.Credentials)),
	}
	runLogger := service.logger.With(zap.String(runIdentifierFieldNameConstant, report.RunIdentifier))

	safetyStatus := service.safetyEvaluator.Evaluate(SafetyInputs{SourceScope: request.SourceScope})
	if !safetyStatus.SafeToMigrate {
		runLogger.Error(migrationBlockedMessageConstant, zap.Strings(blockingReasonsFieldNameConstant, safetyStatus.BlockingReasons))
		report.CompletedAt = service.clock()
		return report, SafetyGateError{BlockingReasons: safetyStatus.BlockingReasons}
	}

	runLogger.Info(
		migrationStartedMessageConstant,
		zap.String(sourceScopeFieldNameConstant, request.SourceScope),
		zap.Int(credentialCountFieldNameConstant, len(request.Credentials)),
		zap.Bool(dryRunFieldNameConstant, request.DryRun),
	)

	for _, credential := range request.Credentials {
		if contextError := executionContext.Err(); contextError != nil {
			report.CompletedAt = service.clock()
			runLogger.Error(migrationAbortedMessageConstant, zap.Error(contextError))
			return report, fmt.Errorf(migrationCancelledErrorTemplateConstant, contextError)
		}

		record, migrationError := service.migrateCredential(executionContext, runLogger, credential, request)
		report.Records = append(report.Records, record)
		if migrationError != nil {
			report.CompletedAt = service.clock()
			runLogger.Error(migrationAbortedMessageConstant, zap.Any(outcomeCountsFieldNameConstant, report.Counts()), zap.Error(migrationError))
			return report, migrationError
		}
	}

	report.CompletedAt = service.clock()
	runLogger.Info(migrationCompletedMessageConstant, zap.Any(outcomeCountsFieldNameConstant, report.Counts()))
	return report, nil
}

func (service *Service) migrateCredential(executionContext context.Context, runLogger *zap.Logger, credential credentials.Credential, request MigrationRequest) (MigrationRecord, error) {
	record := MigrationRecord{
		SecretKey:      credential.Key,
		OrganizationID: credential.OrganizationID,
		EmptyPayload:   credential.PayloadMissing,
	}
	credentialLogger := runLogger.With(
		zap.String(secretKeyFieldNameConstant, credential.Key),
		zap.String(organizationIDFieldNameConstant, credential.OrganizationID),
	)

	if credential.IsGlobal {
		credentialLogger.Info(skippedGlobalMessageConstant)
		record.Outcome = OutcomeSkippedGlobal
		return record, nil
	}

	destination, routed := request.DestinationMap.Resolve(credential.OrganizationID)
	if !routed {
		unroutableError := UnroutableCredentialError{Key: credential.Key, OrganizationID: credential.OrganizationID}
		credentialLogger.Warn(skippedUnroutableMessageConstant, zap.Error(unroutableError))
		record.Outcome = OutcomeSkippedUnroutable
		record.Reason = unroutableError.Error()
		return record, nil
	}
	record.Destination = destination
	credentialLogger = credentialLogger.With(zap.String(destinationFieldNameConstant, destination))

	fail := func(cause error) (MigrationRecord, error) {
		failure := fmt.Errorf(migrationErrorTemplateConstant, credential.Key, destination, cause)
		credentialLogger.Error(credentialMigrationFailedMessageConstant, zap.Error(cause))
		record.Outcome = OutcomeFailed
		record.Reason = cause.Error()
		return record, failure
	}

	routeStatus := service.safetyEvaluator.Evaluate(SafetyInputs{
		SourceScope:    request.SourceScope,
		OrganizationID: credential.OrganizationID,
		Destination:    destination,
	})
	if !routeStatus.SafeToMigrate {
		return fail(SafetyGateError{BlockingReasons: routeStatus.BlockingReasons})
	}

	identifier, identifierError := credential.Identifier()
	if identifierError != nil {
		return fail(identifierError)
	}
	record.Identifier = identifier
	credentialLogger = credentialLogger.With(zap.String(identifierFieldNameConstant, identifier))

	if duplicateError := service.ensureAbsent(executionContext, credentialLogger, destination, credential); duplicateError != nil {
		return fail(duplicateError)
	}

	if request.DryRun {
		credentialLogger.Info(credentialPlannedMessageConstant, zap.Bool(emptyPayloadFieldNameConstant, credential.PayloadMissing))
		record.Outcome = OutcomePlanned
		return record, nil
	}

	if credential.PayloadMissing {
		credentialLogger.Warn(emptyPayloadMigratedMessageConstant)
	}
	if createError := service.store.CreateSecret(executionContext, destination, identifier, secretstore.CloneLabels(credential.Labels)); createError != nil {
		return fail(createError)
	}
	if versionError := service.store.AddSecretVersion(executionContext, destination, identifier, []byte(credential.Value)); versionError != nil {
		return fail(versionError)
	}

	credentialLogger.Info(credentialMigratedMessageConstant)
	record.Outcome = OutcomeMigrated
	return record, nil
}

// ensureAbsent lists the destination and rejects any secret carrying the same display name and tenant.
func (service *Service) ensureAbsent(executionContext context.Context, credentialLogger *zap.Logger, destination string, credential credentials.Credential) error {
	existingSecrets, listError := service.store.ListSecrets(executionContext, destination)
	if listError != nil {
		return fmt.Errorf(destinationListErrorTemplateConstant, destination, listError)
	}

	for _, existingSecret := range existingSecrets {
		if existingSecret.Labels[credentials.DisplayNameLabel] != credential.Key {
			continue
		}
		if existingSecret.Labels[credentials.TenantLabel] != credential.OrganizationID {
			continue
		}
		credentialLogger.Error(duplicateDetectedMessageConstant, zap.String(existingSecretFieldNameConstant, existingSecret.Name))
		return DuplicateCredentialError{
			Key:            credential.Key,
			OrganizationID: credential.OrganizationID,
			Destination:    destination,
			ExistingSecret: existingSecret.Name,
		}
	}
	return nil
}
