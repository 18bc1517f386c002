package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secretmigrate/internal/credentials"
	migrate "github.com/temirov/secretmigrate/internal/migrate"
	"github.com/temirov/secretmigrate/internal/migrate/testsupport"
	"github.com/temirov/secretmigrate/internal/secretstore"
)

const (
	testConfigurationFileNameConstant = "config.yaml"
	testConfigurationContentConstant  = "common:\n  log_level: error\n  log_format: console\nmigrate:\n  source_scope: file-project\n  backend: vault\n  report_format: yaml\n  vault:\n    address: http://vault.internal:8200\n"
	testMigrateCommandNameConstant    = "migrate"
)

func writeTestFile(testInstance *testing.T, directory string, name string, content string) string {
	testInstance.Helper()
	filePath := filepath.Join(directory, name)
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o600))
	return filePath
}

func TestApplicationRegistersMigrateCommand(testInstance *testing.T) {
	application := NewApplication()

	migrationCommand, _, findError := application.rootCommand.Find([]string{testMigrateCommandNameConstant})
	require.NoError(testInstance, findError)
	require.Equal(testInstance, testMigrateCommandNameConstant, migrationCommand.Name())
}

func TestInitializeConfigurationLayersSources(testInstance *testing.T) {
	testCases := []struct {
		name                string
		useConfigFile       bool
		environment         map[string]string
		flagValues          map[string]string
		expectedLogLevel    string
		expectedLogFormat   string
		expectedSourceScope string
		expectedBackend     string
		expectedVault       string
	}{
		{
			name:                "EmbeddedDefaults",
			expectedLogLevel:    "info",
			expectedLogFormat:   "structured",
			expectedSourceScope: migrate.DefaultSourceScope,
			expectedBackend:     migrate.BackendGoogleSecretManager,
		},
		{
			name:                "ConfigurationFile",
			useConfigFile:       true,
			expectedLogLevel:    "error",
			expectedLogFormat:   "console",
			expectedSourceScope: "file-project",
			expectedBackend:     migrate.BackendVault,
			expectedVault:       "http://vault.internal:8200",
		},
		{
			name:          "EnvironmentOverridesFile",
			useConfigFile: true,
			environment: map[string]string{
				"SECRETMIGRATE_MIGRATE_SOURCE_SCOPE":  "env-project",
				"SECRETMIGRATE_MIGRATE_VAULT_ADDRESS": "http://env-vault:8200",
			},
			expectedLogLevel:    "error",
			expectedLogFormat:   "console",
			expectedSourceScope: "env-project",
			expectedBackend:     migrate.BackendVault,
			expectedVault:       "http://env-vault:8200",
		},
		{
			name:          "FlagsOverrideLogging",
			useConfigFile: true,
			flagValues: map[string]string{
				logLevelFlagNameConstant:  "debug",
				logFormatFlagNameConstant: "structured",
			},
			expectedLogLevel:    "debug",
			expectedLogFormat:   "structured",
			expectedSourceScope: "file-project",
			expectedBackend:     migrate.BackendVault,
			expectedVault:       "http://vault.internal:8200",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			temporaryDirectory := subtest.TempDir()
			originalDirectory, getwdError := os.Getwd()
			require.NoError(subtest, getwdError)
			require.NoError(subtest, os.Chdir(temporaryDirectory))
			subtest.Cleanup(func() {
				_ = os.Chdir(originalDirectory)
			})
			for environmentName, environmentValue := range testCase.environment {
				subtest.Setenv(environmentName, environmentValue)
			}

			application := NewApplication()
			rootCommand := application.rootCommand
			rootCommand.SetContext(context.Background())

			expectedConfigFile := ""
			if testCase.useConfigFile {
				expectedConfigFile = writeTestFile(subtest, temporaryDirectory, testConfigurationFileNameConstant, testConfigurationContentConstant)
				require.NoError(subtest, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, expectedConfigFile))
			}
			for flagName, flagValue := range testCase.flagValues {
				require.NoError(subtest, rootCommand.PersistentFlags().Set(flagName, flagValue))
			}

			require.NoError(subtest, application.initializeConfiguration(rootCommand))

			require.Equal(subtest, testCase.expectedLogLevel, application.configuration.Common.LogLevel)
			require.Equal(subtest, testCase.expectedLogFormat, application.configuration.Common.LogFormat)
			require.Equal(subtest, testCase.expectedSourceScope, application.configuration.Migrate.SourceScope)
			require.Equal(subtest, testCase.expectedBackend, application.configuration.Migrate.Backend)
			require.Equal(subtest, testCase.expectedVault, application.configuration.Migrate.Vault.Address)

			configurationFilePath, available := application.commandContextAccessor.ConfigurationFilePath(rootCommand.Context())
			require.True(subtest, available)
			require.Equal(subtest, expectedConfigFile, configurationFilePath)
		})
	}
}

func TestInitializeConfigurationRejectsUnknownLogLevel(testInstance *testing.T) {
	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "verbose"))

	require.Error(testInstance, application.initializeConfiguration(rootCommand))
}

func TestApplicationExecutesMigrateCommand(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	mappingPath := writeTestFile(testInstance, temporaryDirectory, "tenants.csv", "acme,acme-project\n")

	store := secretstore.NewMemoryStore()
	store.Seed("shared-project", "acme-db-pass", map[string]string{
		credentials.DisplayNameLabel: "db-pass",
		credentials.TenantLabel:      "acme",
		credentials.GlobalLabel:      "false",
	}, []byte("s3cr3t"))
	storeFactory := &testsupport.StoreFactoryStub{Store: store}

	application := NewApplication()
	application.storeFactory = storeFactory.Build

	var output bytes.Buffer
	application.rootCommand.SetOut(&output)
	application.rootCommand.SetArgs([]string{
		testMigrateCommandNameConstant,
		"--log-level", "error",
		"--source-scope", "shared-project",
		"--mapping", mappingPath,
	})

	require.NoError(testInstance, application.Execute())

	migratedSecret, exists := store.Secret("acme-project", "acme-db-pass")
	require.True(testInstance, exists)
	payload, hasPayload := migratedSecret.LatestPayload()
	require.True(testInstance, hasPayload)
	require.Equal(testInstance, []byte("s3cr3t"), payload)
	require.Equal(testInstance, 1, storeFactory.CloseCount)
	require.Len(testInstance, storeFactory.ReceivedConfigurations, 1)
	require.Equal(testInstance, "shared-project", storeFactory.ReceivedConfigurations[0].SourceScope)

	rows, parseError := csv.NewReader(&output).ReadAll()
	require.NoError(testInstance, parseError)
	require.Len(testInstance, rows, 2)
	require.Equal(testInstance, string(migrate.OutcomeMigrated), rows[1][5])
}
