package gcloudcli_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secretmigrate/internal/execshell"
	"github.com/temirov/secretmigrate/internal/secretstore"
	"github.com/temirov/secretmigrate/internal/secretstore/gcloudcli"
)

type stubGcloudExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.CommandDetails
}

func (executor *stubGcloudExecutor) ExecuteGcloud(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	return executor.executionResult, executor.executionError
}

func gcloudFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGcloud},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: standardError},
	}
}

func TestClientListSecretsDecodesJSON(testInstance *testing.T) {
	executor := &stubGcloudExecutor{executionResult: execshell.ExecutionResult{
		StandardOutput: `[{"name":"projects/123/secrets/acme-api-key","labels":{"display-name":"api-key","tenant-name":"acme"}},{"name":"projects/123/secrets/plain"}]`,
	}}
	client, creationError := gcloudcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	listed, listError := client.ListSecrets(context.Background(), "my_project")
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []secretstore.SecretMetadata{
		{Name: "acme-api-key", Labels: map[string]string{"display-name": "api-key", "tenant-name": "acme"}},
		{Name: "plain"},
	}, listed)
	require.Equal(testInstance, []string{"secrets", "list", "--project=my_project", "--format=json"}, executor.recordedCommands[0].Arguments)
}

func TestClientListSecretsRejectsMalformedOutput(testInstance *testing.T) {
	executor := &stubGcloudExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "Listed 0 items."}}
	client, creationError := gcloudcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	_, listError := client.ListSecrets(context.Background(), "my_project")
	var decodingError gcloudcli.ResponseDecodingError
	require.ErrorAs(testInstance, listError, &decodingError)
}

func TestClientCreateAndAddVersionArguments(testInstance *testing.T) {
	executor := &stubGcloudExecutor{}
	client, creationError := gcloudcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	labels := map[string]string{"tenant-name": "acme", "display-name": "api-key", "global": "false"}
	require.NoError(testInstance, client.CreateSecret(context.Background(), "proj-1", "acme-api-key", labels))
	require.NoError(testInstance, client.AddSecretVersion(context.Background(), "proj-1", "acme-api-key", nil))

	require.Equal(testInstance, []string{
		"secrets", "create", "acme-api-key", "--project=proj-1", "--replication-policy=automatic",
		"--labels=display-name=api-key,global=false,tenant-name=acme",
	}, executor.recordedCommands[0].Arguments)

	addCommand := executor.recordedCommands[1]
	require.Equal(testInstance, []string{"secrets", "versions", "add", "acme-api-key", "--project=proj-1", "--data-file=-"}, addCommand.Arguments)
	require.NotNil(testInstance, addCommand.StandardInput)
	require.Empty(testInstance, addCommand.StandardInput)
}

func TestClientAccessSecretVersion(testInstance *testing.T) {
	executor := &stubGcloudExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "xyz"}}
	client, creationError := gcloudcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	payload, accessError := client.AccessSecretVersion(context.Background(), "my_project", "acme-api-key", "")
	require.NoError(testInstance, accessError)
	require.Equal(testInstance, "xyz", string(payload))
	require.Equal(testInstance, []string{"secrets", "versions", "access", "latest", "--secret=acme-api-key", "--project=my_project"}, executor.recordedCommands[0].Arguments)
}

func TestClientTranslatesGcloudFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		standardError string
		assertion     func(error) bool
	}{
		{
			name:          "not_found",
			standardError: "ERROR: (gcloud.secrets.versions.access) NOT_FOUND: Secret [projects/123/secrets/acme-api-key] not found or has no versions.",
			assertion:     secretstore.IsNotFound,
		},
		{
			name:          "already_exists",
			standardError: "ERROR: (gcloud.secrets.create) Resource in projects [proj-1] is the subject of a conflict: Secret [projects/123/secrets/acme-api-key] already exists.",
			assertion:     secretstore.IsAlreadyExists,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGcloudExecutor{executionError: gcloudFailure(testCase.standardError)}
			client, creationError := gcloudcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			_, accessError := client.AccessSecretVersion(context.Background(), "my_project", "acme-api-key", secretstore.LatestVersion)
			require.True(testInstance, testCase.assertion(accessError))
		})
	}

	_, missingExecutorError := gcloudcli.NewClient(nil)
	require.ErrorIs(testInstance, missingExecutorError, gcloudcli.ErrExecutorNotConfigured)
}
