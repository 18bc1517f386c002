// Package flags provides helpers for describing and validating enumerated command flags.
package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderPrefix        = "<"
	choicePlaceholderSuffix        = ">"
	choiceSeparatorLiteral         = "|"
	choiceUsageEmptyTemplate       = "`%s`"
	choiceUsageFullTemplate        = "`%s` %s"
	unsupportedChoiceErrorTemplate = "unsupported %s %q (expected one of %s)"
	supportedChoicesJoinSeparator  = ", "
)

// UnsupportedChoiceError reports a flag or configuration value outside the allowed set.
type UnsupportedChoiceError struct {
	Subject string
	Value   string
	Choices []string
}

// Error describes the rejected value.
func (choiceError UnsupportedChoiceError) Error() string {
	return fmt.Sprintf(unsupportedChoiceErrorTemplate, choiceError.Subject, choiceError.Value, strings.Join(choiceError.Choices, supportedChoicesJoinSeparator))
}

// ChoiceSet describes an enumerated flag with a default option.
type ChoiceSet struct {
	Subject       string
	DefaultChoice string
	Choices       []string
}

// Usage renders the flag usage string with the default option capitalized.
func (choiceSet ChoiceSet) Usage(description string) string {
	return FormatChoiceUsage(choiceSet.DefaultChoice, choiceSet.Choices, description)
}

// Normalize resolves a raw value to its canonical choice; empty values select the default.
func (choiceSet ChoiceSet) Normalize(rawValue string) (string, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		normalizedValue = strings.ToLower(strings.TrimSpace(choiceSet.DefaultChoice))
	}

	for _, choice := range choiceSet.Choices {
		if strings.ToLower(strings.TrimSpace(choice)) == normalizedValue {
			return normalizedValue, nil
		}
	}

	return "", UnsupportedChoiceError{Subject: choiceSet.Subject, Value: rawValue, Choices: append([]string{}, choiceSet.Choices...)}
}

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := choicePlaceholderPrefix + strings.Join(highlightDefaultChoice(defaultChoice, choices), choiceSeparatorLiteral) + choicePlaceholderSuffix
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

func highlightDefaultChoice(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	highlighted := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}

		if normalizedChoice == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		highlighted = append(highlighted, trimmedChoice)
	}

	return highlighted
}
