package credentials_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/temirov/secretmigrate/internal/credentials"
)

func TestCompositeIdentifier(testInstance *testing.T) {
	identifier, identifierError := credentials.CompositeIdentifier("acme", "db-pass")
	require.NoError(testInstance, identifierError)
	require.Equal(testInstance, "acme-db-pass", identifier)

	_, missingError := credentials.CompositeIdentifier("", "db-pass")
	var missingTenantError credentials.MissingTenantError
	require.ErrorAs(testInstance, missingError, &missingTenantError)
	require.Equal(testInstance, "db-pass", missingTenantError.Key)

	credential := credentials.Credential{Key: "api-key", OrganizationID: "globex"}
	credentialIdentifier, credentialError := credential.Identifier()
	require.NoError(testInstance, credentialError)
	require.Equal(testInstance, "globex-api-key", credentialIdentifier)
}

func TestCompositeIdentifierProperties(testInstance *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("identifier is organization, hyphen, key", prop.ForAll(
		func(organizationID string, key string) bool {
			identifier, identifierError := credentials.CompositeIdentifier(organizationID, key)
			return identifierError == nil && identifier == organizationID+"-"+key
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(testInstance)
}

func TestParseLabelBool(testInstance *testing.T) {
	testCases := []struct {
		name          string
		labels        map[string]string
		expectedValue bool
		expectMissing bool
		expectParse   bool
	}{
		{name: "true", labels: map[string]string{credentials.GlobalLabel: "true"}, expectedValue: true},
		{name: "false", labels: map[string]string{credentials.GlobalLabel: "false"}},
		{name: "mixed case with spaces", labels: map[string]string{credentials.GlobalLabel: " TRUE "}, expectedValue: true},
		{name: "missing", labels: map[string]string{}, expectMissing: true},
		{name: "nil labels", labels: nil, expectMissing: true},
		{name: "unparseable", labels: map[string]string{credentials.GlobalLabel: "yes"}, expectParse: true},
		{name: "empty value", labels: map[string]string{credentials.GlobalLabel: ""}, expectParse: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			value, parseError := credentials.ParseLabelBool(testCase.labels, credentials.GlobalLabel)
			require.False(subTest, parseError == nil && (testCase.expectMissing || testCase.expectParse))
			if testCase.expectMissing {
				require.ErrorAs(subTest, parseError, &credentials.LabelMissingError{})
				return
			}
			if testCase.expectParse {
				require.ErrorAs(subTest, parseError, &credentials.LabelParseError{})
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expectedValue, value)
		})
	}
}
