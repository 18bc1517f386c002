package migrate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secretmigrate/internal/secretstore/vaultkv"
)

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration CommandConfiguration
		expected      CommandConfiguration
	}{
		{
			name:          "zero value restores defaults",
			configuration: CommandConfiguration{},
			expected: CommandConfiguration{
				SourceScope:  DefaultSourceScope,
				MappingPath:  DefaultMappingPath,
				RequestBurst: 1,
			},
		},
		{
			name: "values are trimmed and normalized",
			configuration: CommandConfiguration{
				SourceScope:       "  shared-project ",
				MappingPath:       " ./mappings/../tenants.csv ",
				Backend:           " Vault ",
				RequestsPerSecond: -3,
				RequestBurst:      5,
				ReportPath:        " reports/run.yaml ",
				ReportFormat:      "YAML",
				DryRun:            true,
				Vault:             vaultkv.Configuration{Address: " http://127.0.0.1:8200 ", Token: " root "},
			},
			expected: CommandConfiguration{
				SourceScope:  "shared-project",
				MappingPath:  "tenants.csv",
				Backend:      BackendVault,
				RequestBurst: 5,
				ReportPath:   filepath.Join("reports", "run.yaml"),
				ReportFormat: ReportFormatYAML,
				DryRun:       true,
				Vault:        vaultkv.Configuration{Address: "http://127.0.0.1:8200", Token: "root"},
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, testCase.configuration.Sanitize())
		})
	}
}

func TestDefaultCommandConfiguration(testInstance *testing.T) {
	defaults := DefaultCommandConfiguration()
	require.Equal(testInstance, "my_project", defaults.SourceScope)
	require.Equal(testInstance, "sample.csv", defaults.MappingPath)
	require.Equal(testInstance, BackendGoogleSecretManager, defaults.Backend)
	require.Equal(testInstance, ReportFormatCSV, defaults.ReportFormat)
	require.False(testInstance, defaults.DryRun)
}
