package credentials

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DisplayNameLabel marks a secret as a tenant credential and carries its logical key.
	DisplayNameLabel = "display-name"
	// TenantLabel carries the organization identifier.
	TenantLabel = "tenant-name"
	// GlobalLabel marks credentials shared across tenants.
	GlobalLabel = "global"

	compositeIdentifierTemplateConstant = "%s-%s"
	missingTenantErrorTemplateConstant  = "credential %q has no tenant; composite identifier cannot be formed"
	labelMissingErrorTemplateConstant   = "label %q is not set"
	labelParseErrorTemplateConstant     = "label %q value %q is not a boolean: %v"
)

// Credential is one tenant credential discovered in the source scope.
type Credential struct {
	Key            string
	OrganizationID string
	Value          string
	IsGlobal       bool
	Labels         map[string]string
	// PayloadMissing marks a credential whose payload could not be read and whose Value is empty.
	PayloadMissing bool
}

// Identifier returns the composite store identifier of the credential.
func (credential Credential) Identifier() (string, error) {
	return CompositeIdentifier(credential.OrganizationID, credential.Key)
}

// MissingTenantError reports a credential without an organization identifier.
type MissingTenantError struct {
	Key string
}

// Error describes the missing tenant.
func (missingTenantError MissingTenantError) Error() string {
	return fmt.Sprintf(missingTenantErrorTemplateConstant, missingTenantError.Key)
}

// CompositeIdentifier forms "{organizationID}-{key}". An empty organization is treated as absent.
func CompositeIdentifier(organizationID string, key string) (string, error) {
	if len(organizationID) == 0 {
		return "", MissingTenantError{Key: key}
	}
	return fmt.Sprintf(compositeIdentifierTemplateConstant, organizationID, key), nil
}

// LabelMissingError reports that a label is absent.
type LabelMissingError struct {
	Label string
}

// Error describes the missing label.
func (labelMissingError LabelMissingError) Error() string {
	return fmt.Sprintf(labelMissingErrorTemplateConstant, labelMissingError.Label)
}

// LabelParseError reports a label value that is not a boolean.
type LabelParseError struct {
	Label string
	Value string
	Cause error
}

// Error describes the unparseable value.
func (labelParseError LabelParseError) Error() string {
	return fmt.Sprintf(labelParseErrorTemplateConstant, labelParseError.Label, labelParseError.Value, labelParseError.Cause)
}

// Unwrap exposes the parse failure.
func (labelParseError LabelParseError) Unwrap() error {
	return labelParseError.Cause
}

// ParseLabelBool reads a boolean label. Callers decide the default for either error.
func ParseLabelBool(labels map[string]string, label string) (bool, error) {
	rawValue, exists := labels[label]
	if !exists {
		return false, LabelMissingError{Label: label}
	}
	parsedValue, parseError := strconv.ParseBool(strings.ToLower(strings.TrimSpace(rawValue)))
	if parseError != nil {
		return false, LabelParseError{Label: label, Value: rawValue, Cause: parseError}
	}
	return parsedValue, nil
}
