package migrate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/secretmigrate/internal/credentials"
	"github.com/temirov/secretmigrate/internal/routing"
	"github.com/temirov/secretmigrate/internal/utils"
)

const (
	commandUseConstant                      = "migrate"
	commandShortDescriptionConstant         = "Copy tenant credentials into per-tenant secret stores"
	commandLongDescriptionConstant          = "migrate discovers tenant credentials in the shared source scope, routes each one to its organization's destination scope using the mapping file, and copies it there. Global credentials and organizations without a destination are skipped; a credential that already exists at its destination stops the run."
	sourceScopeFlagNameConstant             = "source-scope"
	sourceScopeFlagUsageConstant            = "Shared scope (project or Vault mount) holding the credentials"
	mappingFlagNameConstant                 = "mapping"
	mappingFlagUsageConstant                = "CSV file of organization,destination rows"
	backendFlagNameConstant                 = "backend"
	backendFlagUsageConstant                = "secret store backend"
	reportFlagNameConstant                  = "report"
	reportFlagUsageConstant                 = "Write the migration report to this file instead of standard output"
	reportFormatFlagNameConstant            = "report-format"
	reportFormatFlagUsageConstant           = "migration report format"
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagUsageConstant                 = "Run discovery and duplicate checks without writing to destinations"
	requestsPerSecondFlagNameConstant       = "requests-per-second"
	requestsPerSecondFlagUsageConstant      = "Maximum secret store requests per second (0 disables throttling)"
	mappingLoadErrorTemplateConstant        = "unable to load destination mapping: %w"
	discoveryErrorTemplateConstant          = "credential discovery failed: %w"
	reportCreateErrorTemplateConstant       = "unable to create report file %s: %w"
	mappingPathFieldNameConstant            = "mapping_path"
	routedOrganizationsFieldNameConstant    = "routed_organizations"
	reportPathFieldNameConstant             = "report_path"
	configurationFileFieldNameConstant      = "configuration_file"
	logMessageMappingLoadedConstant         = "Destination mapping loaded"
	logMessageMappingLoadFailedConstant     = "Destination mapping load failed"
	logMessageReportWrittenConstant         = "Migration report written"
	logMessageStoreCloseFailedConstant      = "Secret store close failed"
	logMessageConfigurationResolvedConstant = "Migrate configuration resolved"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	StoreFactory          StoreFactory
	Clock                 func() time.Time
	RunIdentifierProvider func() string
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMigrate,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(sourceScopeFlagNameConstant, defaults.SourceScope, sourceScopeFlagUsageConstant)
	command.Flags().String(mappingFlagNameConstant, defaults.MappingPath, mappingFlagUsageConstant)
	command.Flags().String(backendFlagNameConstant, defaults.Backend, backendChoices.Usage(backendFlagUsageConstant))
	command.Flags().String(reportFlagNameConstant, defaults.ReportPath, reportFlagUsageConstant)
	command.Flags().String(reportFormatFlagNameConstant, defaults.ReportFormat, reportFormatChoices.Usage(reportFormatFlagUsageConstant))
	command.Flags().Bool(dryRunFlagNameConstant, defaults.DryRun, dryRunFlagUsageConstant)
	command.Flags().Float64(requestsPerSecondFlagNameConstant, defaults.RequestsPerSecond, requestsPerSecondFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, _ []string) error {
	configuration, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}
	logger := builder.resolveLogger()
	executionContext := command.Context()

	if configurationFilePath, available := utils.NewCommandContextAccessor().ConfigurationFilePath(executionContext); available && len(configurationFilePath) > 0 {
		logger = logger.With(zap.String(configurationFileFieldNameConstant, configurationFilePath))
	}
	logger.Debug(
		logMessageConfigurationResolvedConstant,
		zap.String(sourceScopeFieldNameConstant, configuration.SourceScope),
		zap.String(backendFieldNameConstant, configuration.Backend),
		zap.Bool(dryRunFieldNameConstant, configuration.DryRun),
	)

	destinationMap, mappingError := routing.LoadDestinationMapFile(configuration.MappingPath)
	if mappingError != nil {
		logger.Error(logMessageMappingLoadFailedConstant, zap.String(mappingPathFieldNameConstant, configuration.MappingPath), zap.Error(mappingError))
		return fmt.Errorf(mappingLoadErrorTemplateConstant, mappingError)
	}
	logger.Info(
		logMessageMappingLoadedConstant,
		zap.String(mappingPathFieldNameConstant, configuration.MappingPath),
		zap.Int(routedOrganizationsFieldNameConstant, destinationMap.Len()),
	)

	store, closeStore, storeError := builder.resolveStoreFactory()(executionContext, configuration, logger)
	if storeError != nil {
		return storeError
	}
	defer func() {
		if closeStore == nil {
			return
		}
		if closeError := closeStore(); closeError != nil {
			logger.Warn(logMessageStoreCloseFailedConstant, zap.Error(closeError))
		}
	}()

	store, rateLimitError := applyRateLimit(store, configuration, logger)
	if rateLimitError != nil {
		return rateLimitError
	}

	discoverer, discovererError := credentials.NewDiscoverer(credentials.DiscovererDependencies{Logger: logger, Store: store})
	if discovererError != nil {
		return discovererError
	}
	discovered, discoveryError := discoverer.Discover(executionContext, configuration.SourceScope)
	if discoveryError != nil {
		return fmt.Errorf(discoveryErrorTemplateConstant, discoveryError)
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:                logger,
		Store:                 store,
		Clock:                 builder.Clock,
		RunIdentifierProvider: builder.RunIdentifierProvider,
	})
	if serviceError != nil {
		return serviceError
	}

	report, migrationError := service.Execute(executionContext, MigrationRequest{
		Credentials:    discovered,
		DestinationMap: destinationMap,
		SourceScope:    configuration.SourceScope,
		DryRun:         configuration.DryRun,
	})

	reportError := builder.writeReport(command, logger, configuration, report)
	return errors.Join(migrationError, reportError)
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()

	flagSet := command.Flags()
	if flagSet.Changed(sourceScopeFlagNameConstant) {
		configuration.SourceScope, _ = flagSet.GetString(sourceScopeFlagNameConstant)
	}
	if flagSet.Changed(mappingFlagNameConstant) {
		configuration.MappingPath, _ = flagSet.GetString(mappingFlagNameConstant)
	}
	if flagSet.Changed(backendFlagNameConstant) {
		configuration.Backend, _ = flagSet.GetString(backendFlagNameConstant)
	}
	if flagSet.Changed(reportFlagNameConstant) {
		configuration.ReportPath, _ = flagSet.GetString(reportFlagNameConstant)
	}
	if flagSet.Changed(reportFormatFlagNameConstant) {
		configuration.ReportFormat, _ = flagSet.GetString(reportFormatFlagNameConstant)
	}
	if flagSet.Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = flagSet.GetBool(dryRunFlagNameConstant)
	}
	if flagSet.Changed(requestsPerSecondFlagNameConstant) {
		configuration.RequestsPerSecond, _ = flagSet.GetFloat64(requestsPerSecondFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	backend, backendError := backendChoices.Normalize(configuration.Backend)
	if backendError != nil {
		return CommandConfiguration{}, backendError
	}
	configuration.Backend = backend

	reportFormat, reportFormatError := reportFormatChoices.Normalize(configuration.ReportFormat)
	if reportFormatError != nil {
		return CommandConfiguration{}, reportFormatError
	}
	configuration.ReportFormat = reportFormat

	return configuration, nil
}

func (builder *CommandBuilder) writeReport(command *cobra.Command, logger *zap.Logger, configuration CommandConfiguration, report MigrationReport) (writeError error) {
	var writer io.Writer
	if len(configuration.ReportPath) == 0 {
		writer = utils.NewFlushingWriter(command.OutOrStdout())
	} else {
		reportFile, createError := os.Create(configuration.ReportPath)
		if createError != nil {
			return fmt.Errorf(reportCreateErrorTemplateConstant, configuration.ReportPath, createError)
		}
		defer func() {
			if closeError := reportFile.Close(); closeError != nil && writeError == nil {
				writeError = closeError
			}
		}()
		writer = reportFile
	}

	switch configuration.ReportFormat {
	case ReportFormatYAML:
		writeError = WriteYAMLReport(writer, report)
	default:
		writeError = WriteCSVReport(writer, report)
	}
	if writeError != nil {
		return writeError
	}

	if len(configuration.ReportPath) > 0 {
		logger.Info(logMessageReportWrittenConstant, zap.String(reportPathFieldNameConstant, configuration.ReportPath))
	}
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveStoreFactory() StoreFactory {
	if builder.StoreFactory != nil {
		return builder.StoreFactory
	}
	return NewBackendStore
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}
