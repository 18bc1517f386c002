package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafetyEvaluator(testInstance *testing.T) {
	testCases := []struct {
		name            string
		inputs          SafetyInputs
		expectedSafe    bool
		expectedReasons []string
	}{
		{
			name:         "distinct scopes",
			inputs:       SafetyInputs{SourceScope: "my_project", OrganizationID: "acme", Destination: "proj-1"},
			expectedSafe: true,
		},
		{
			name:         "run without destination",
			inputs:       SafetyInputs{SourceScope: "my_project"},
			expectedSafe: true,
		},
		{
			name:            "missing source scope",
			inputs:          SafetyInputs{SourceScope: "  "},
			expectedReasons: []string{safetyReasonSourceScopeMissingConstant},
		},
		{
			name:            "routes into source scope",
			inputs:          SafetyInputs{SourceScope: "my_project", OrganizationID: "globex", Destination: " my_project "},
			expectedReasons: []string{"organization globex is routed into the source scope my_project"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			status := SafetyEvaluator{}.Evaluate(testCase.inputs)
			require.Equal(subTest, testCase.expectedSafe, status.SafeToMigrate)
			if testCase.expectedSafe {
				require.Empty(subTest, status.BlockingReasons)
				return
			}
			require.Equal(subTest, testCase.expectedReasons, status.BlockingReasons)
		})
	}
}

func TestSafetyGateErrorListsReasons(testInstance *testing.T) {
	gateError := SafetyGateError{BlockingReasons: []string{"first", "second"}}
	require.Equal(testInstance, "migration blocked by safety gates: first; second", gateError.Error())
}
