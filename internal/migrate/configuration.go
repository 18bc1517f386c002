package migrate

import (
	"strings"

	"github.com/temirov/secretmigrate/internal/secretstore/vaultkv"
	"github.com/temirov/secretmigrate/internal/utils/flags"
	pathutils "github.com/temirov/secretmigrate/internal/utils/path"
)

const (
	// DefaultSourceScope is the shared scope read when none is configured.
	DefaultSourceScope = "my_project"
	// DefaultMappingPath is the mapping read when none is configured.
	DefaultMappingPath = "sample.csv"

	// BackendGoogleSecretManager talks to Secret Manager through the Go SDK.
	BackendGoogleSecretManager = "gcp"
	// BackendGcloud shells out to the gcloud CLI.
	BackendGcloud = "gcloud"
	// BackendVault uses a Vault KV version 2 mount as the scope.
	BackendVault = "vault"

	// ReportFormatCSV renders one row per credential.
	ReportFormatCSV = "csv"
	// ReportFormatYAML renders the full report document.
	ReportFormatYAML = "yaml"

	defaultRequestBurstConstant  = 1
	backendChoiceSubjectConstant = "backend"
	reportFormatSubjectConstant  = "report format"
)

var (
	backendChoices      = flags.ChoiceSet{Subject: backendChoiceSubjectConstant, DefaultChoice: BackendGoogleSecretManager, Choices: []string{BackendGoogleSecretManager, BackendGcloud, BackendVault}}
	reportFormatChoices = flags.ChoiceSet{Subject: reportFormatSubjectConstant, DefaultChoice: ReportFormatCSV, Choices: []string{ReportFormatCSV, ReportFormatYAML}}

	migrateConfigurationPathResolver = pathutils.NewFilePathResolver()
)

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	SourceScope       string                `mapstructure:"source_scope"`
	MappingPath       string                `mapstructure:"mapping_path"`
	Backend           string                `mapstructure:"backend"`
	RequestsPerSecond float64               `mapstructure:"requests_per_second"`
	RequestBurst      int                   `mapstructure:"request_burst"`
	ReportPath        string                `mapstructure:"report_path"`
	ReportFormat      string                `mapstructure:"report_format"`
	DryRun            bool                  `mapstructure:"dry_run"`
	Vault             vaultkv.Configuration `mapstructure:"vault"`
}

// DefaultCommandConfiguration returns baseline configuration values for migration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SourceScope:  DefaultSourceScope,
		MappingPath:  DefaultMappingPath,
		Backend:      BackendGoogleSecretManager,
		RequestBurst: defaultRequestBurstConstant,
		ReportFormat: ReportFormatCSV,
	}
}

// Sanitize trims configured values, restores defaults for blanks, and expands paths.
// Enumerated values are validated later by the command so the error can name the flag.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	defaults := DefaultCommandConfiguration()

	sanitized.SourceScope = strings.TrimSpace(configuration.SourceScope)
	if len(sanitized.SourceScope) == 0 {
		sanitized.SourceScope = defaults.SourceScope
	}

	sanitized.MappingPath = migrateConfigurationPathResolver.Resolve(configuration.MappingPath)
	if len(sanitized.MappingPath) == 0 {
		sanitized.MappingPath = defaults.MappingPath
	}
	sanitized.ReportPath = migrateConfigurationPathResolver.Resolve(configuration.ReportPath)

	sanitized.Backend = strings.ToLower(strings.TrimSpace(configuration.Backend))
	sanitized.ReportFormat = strings.ToLower(strings.TrimSpace(configuration.ReportFormat))

	if sanitized.RequestsPerSecond < 0 {
		sanitized.RequestsPerSecond = 0
	}
	if sanitized.RequestBurst < defaultRequestBurstConstant {
		sanitized.RequestBurst = defaultRequestBurstConstant
	}

	sanitized.Vault.Address = strings.TrimSpace(configuration.Vault.Address)
	sanitized.Vault.Token = strings.TrimSpace(configuration.Vault.Token)
	return sanitized
}
