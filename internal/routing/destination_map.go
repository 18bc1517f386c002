package routing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	mappingFieldCountConstant          = 2
	organizationFieldIndexConstant     = 0
	destinationFieldIndexConstant      = 1
	mappingFormatErrorTemplateConstant = "mapping line %d has %d fields; expected %d"
	mappingReadErrorTemplateConstant   = "unable to read mapping: %w"
	mappingOpenErrorTemplateConstant   = "unable to open mapping %s: %w"
	mappingPathRequiredMessageConstant = "mapping path required"
)

// ErrMappingPathRequired indicates LoadDestinationMapFile was called without a path.
var ErrMappingPathRequired = errors.New(mappingPathRequiredMessageConstant)

// MappingFormatError reports a mapping row that does not have exactly two fields.
type MappingFormatError struct {
	Line       int
	FieldCount int
}

// Error describes the malformed row.
func (formatError MappingFormatError) Error() string {
	return fmt.Sprintf(mappingFormatErrorTemplateConstant, formatError.Line, formatError.FieldCount, mappingFieldCountConstant)
}

// DestinationMap routes organization identifiers to destination scopes. It is read-only once loaded.
type DestinationMap struct {
	destinations map[string]string
}

// NewDestinationMap builds a map from ordered pairs. Later pairs replace earlier ones for the same organization.
func NewDestinationMap(pairs [][2]string) DestinationMap {
	destinations := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		destinations[pair[organizationFieldIndexConstant]] = pair[destinationFieldIndexConstant]
	}
	return DestinationMap{destinations: destinations}
}

// Resolve returns the destination for organizationID. Empty organizations and empty destinations are absent.
func (destinationMap DestinationMap) Resolve(organizationID string) (string, bool) {
	if len(organizationID) == 0 {
		return "", false
	}
	destination, exists := destinationMap.destinations[organizationID]
	if !exists || len(destination) == 0 {
		return "", false
	}
	return destination, true
}

// Len reports the number of routed organizations.
func (destinationMap DestinationMap) Len() int {
	return len(destinationMap.destinations)
}

// Organizations returns the routed organizations in sorted order.
func (destinationMap DestinationMap) Organizations() []string {
	organizations := make([]string, 0, len(destinationMap.destinations))
	for organizationID := range destinationMap.destinations {
		organizations = append(organizations, organizationID)
	}
	sort.Strings(organizations)
	return organizations
}

// LoadDestinationMap reads headerless "organization,destination" rows. Any row with a different
// field count rejects the whole input.
func LoadDestinationMap(reader io.Reader) (DestinationMap, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	pairs := make([][2]string, 0)
	for {
		record, readError := csvReader.Read()
		if errors.Is(readError, io.EOF) {
			break
		}
		if readError != nil {
			return DestinationMap{}, fmt.Errorf(mappingReadErrorTemplateConstant, readError)
		}
		if len(record) != mappingFieldCountConstant {
			line, _ := csvReader.FieldPos(0)
			return DestinationMap{}, MappingFormatError{Line: line, FieldCount: len(record)}
		}
		pairs = append(pairs, [2]string{
			strings.TrimSpace(record[organizationFieldIndexConstant]),
			strings.TrimSpace(record[destinationFieldIndexConstant]),
		})
	}
	return NewDestinationMap(pairs), nil
}

// LoadDestinationMapFile opens path and loads it with LoadDestinationMap.
func LoadDestinationMapFile(path string) (DestinationMap, error) {
	if len(strings.TrimSpace(path)) == 0 {
		return DestinationMap{}, ErrMappingPathRequired
	}
	mappingFile, openError := os.Open(path)
	if openError != nil {
		return DestinationMap{}, fmt.Errorf(mappingOpenErrorTemplateConstant, path, openError)
	}
	defer mappingFile.Close()
	return LoadDestinationMap(mappingFile)
}
