package migrate

import (
	"fmt"
	"strings"
)

const (
	safetyReasonSourceScopeMissingConstant          = "source scope is not set"
	safetyReasonDestinationIsSourceTemplateConstant = "organization %s is routed into the source scope %s"
	safetyGateErrorTemplateConstant                 = "migration blocked by safety gates: %s"
	safetyReasonSeparatorConstant                   = "; "
)

// SafetyInputs captures the conditions checked before a destination is touched.
// Leave OrganizationID and Destination empty to evaluate only the run itself.
type SafetyInputs struct {
	SourceScope    string
	OrganizationID string
	Destination    string
}

// SafetyStatus conveys whether a write may proceed.
type SafetyStatus struct {
	SafeToMigrate   bool
	BlockingReasons []string
}

// SafetyEvaluator evaluates safety inputs to produce a status.
type SafetyEvaluator struct{}

// Evaluate determines whether the run, or a single routed credential, may proceed.
func (SafetyEvaluator) Evaluate(inputs SafetyInputs) SafetyStatus {
	blockingReasons := make([]string, 0)
	sourceScope := strings.TrimSpace(inputs.SourceScope)
	if len(sourceScope) == 0 {
		blockingReasons = append(blockingReasons, safetyReasonSourceScopeMissingConstant)
	}

	destination := strings.TrimSpace(inputs.Destination)
	if len(sourceScope) > 0 && destination == sourceScope {
		blockingReasons = append(blockingReasons, fmt.Sprintf(safetyReasonDestinationIsSourceTemplateConstant, inputs.OrganizationID, sourceScope))
	}

	return SafetyStatus{SafeToMigrate: len(blockingReasons) == 0, BlockingReasons: blockingReasons}
}

// SafetyGateError reports a write refused before it reached the store.
type SafetyGateError struct {
	BlockingReasons []string
}

// Error lists the blocking reasons.
func (gateError SafetyGateError) Error() string {
	return fmt.Sprintf(safetyGateErrorTemplateConstant, strings.Join(gateError.BlockingReasons, safetyReasonSeparatorConstant))
}
