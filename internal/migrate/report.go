package migrate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	reportCSVHeaderRunIdentifierConstant  = "run_id"
	reportCSVHeaderSecretKeyConstant      = "secret_key"
	reportCSVHeaderOrganizationConstant   = "organization_id"
	reportCSVHeaderDestinationConstant    = "destination"
	reportCSVHeaderIdentifierConstant     = "identifier"
	reportCSVHeaderOutcomeConstant        = "outcome"
	reportCSVHeaderEmptyPayloadConstant   = "empty_payload"
	reportCSVHeaderReasonConstant         = "reason"
	reportWriteErrorTemplateConstant      = "unable to write migration report: %w"
	reportYAMLEncodeErrorTemplateConstant = "unable to encode migration report: %w"
)

// MigrationOutcome classifies what happened to one credential.
type MigrationOutcome string

// Outcomes recorded in a MigrationReport.
const (
	OutcomeMigrated          MigrationOutcome = MigrationOutcome("migrated")
	OutcomePlanned           MigrationOutcome = MigrationOutcome("planned")
	OutcomeSkippedGlobal     MigrationOutcome = MigrationOutcome("skipped_global")
	OutcomeSkippedUnroutable MigrationOutcome = MigrationOutcome("skipped_unroutable")
	OutcomeFailed            MigrationOutcome = MigrationOutcome("failed")
)

// MigrationRecord is the per-credential line of a report.
type MigrationRecord struct {
	SecretKey      string           `yaml:"secret_key"`
	OrganizationID string           `yaml:"organization_id"`
	Destination    string           `yaml:"destination,omitempty"`
	Identifier     string           `yaml:"identifier,omitempty"`
	Outcome        MigrationOutcome `yaml:"outcome"`
	EmptyPayload   bool             `yaml:"empty_payload"`
	Reason         string           `yaml:"reason,omitempty"`
}

// MigrationReport summarizes one migration run. Records follow discovery order.
type MigrationReport struct {
	RunIdentifier string            `yaml:"run_id"`
	SourceScope   string            `yaml:"source_scope"`
	DryRun        bool              `yaml:"dry_run"`
	StartedAt     time.Time         `yaml:"started_at"`
	CompletedAt   time.Time         `yaml:"completed_at"`
	Records       []MigrationRecord `yaml:"records"`
}

// Counts tallies records by outcome.
func (report MigrationReport) Counts() map[MigrationOutcome]int {
	counts := make(map[MigrationOutcome]int)
	for _, record := range report.Records {
		counts[record.Outcome]++
	}
	return counts
}

// RecordsWithOutcome returns the records carrying outcome, in report order.
func (report MigrationReport) RecordsWithOutcome(outcome MigrationOutcome) []MigrationRecord {
	matching := make([]MigrationRecord, 0)
	for _, record := range report.Records {
		if record.Outcome == outcome {
			matching = append(matching, record)
		}
	}
	return matching
}

// WriteCSVReport renders one row per record with a header row.
func WriteCSVReport(writer io.Writer, report MigrationReport) error {
	csvWriter := csv.NewWriter(writer)
	header := []string{
		reportCSVHeaderRunIdentifierConstant,
		reportCSVHeaderSecretKeyConstant,
		reportCSVHeaderOrganizationConstant,
		reportCSVHeaderDestinationConstant,
		reportCSVHeaderIdentifierConstant,
		reportCSVHeaderOutcomeConstant,
		reportCSVHeaderEmptyPayloadConstant,
		reportCSVHeaderReasonConstant,
	}
	if writeError := csvWriter.Write(header); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}

	for _, record := range report.Records {
		row := []string{
			report.RunIdentifier,
			record.SecretKey,
			record.OrganizationID,
			record.Destination,
			record.Identifier,
			string(record.Outcome),
			strconv.FormatBool(record.EmptyPayload),
			record.Reason,
		}
		if writeError := csvWriter.Write(row); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
		}
	}

	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, flushError)
	}
	return nil
}

// WriteYAMLReport renders the full report as a YAML document.
func WriteYAMLReport(writer io.Writer, report MigrationReport) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return fmt.Errorf(reportYAMLEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(reportYAMLEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
