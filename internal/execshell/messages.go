package execshell

import (
	"fmt"
	"strings"
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed"
	genericExecutionFailureTemplateConstant = "%s could not run"
	redactedArgumentPlaceholderConstant     = "[REDACTED]"
	subcommandLabelSeparatorConstant        = " "
	flagPrefixConstant                      = "-"
	maximumSubcommandDepthConstant          = 3
)

type gcloudMessageTemplates struct {
	start   string
	success string
	failure string
}

// gcloud secrets subcommands are described in operator-facing terms.
var gcloudMessageCatalog = map[string]gcloudMessageTemplates{
	"secrets list": {
		start:   "Listing secrets",
		success: "Listed secrets",
		failure: "Listing secrets failed",
	},
	"secrets create": {
		start:   "Creating secret container",
		success: "Created secret container",
		failure: "Creating secret container failed",
	},
	"secrets versions add": {
		start:   "Adding secret version",
		success: "Added secret version",
		failure: "Adding secret version failed",
	},
	"secrets versions access": {
		start:   "Reading secret version",
		success: "Read secret version",
		failure: "Reading secret version failed",
	},
}

func formatStartMessage(command ShellCommand) string {
	if templates, found := lookupMessageTemplates(command); found {
		return templates.start
	}
	return fmt.Sprintf(genericStartTemplateConstant, subcommandLabel(command))
}

func formatSuccessMessage(command ShellCommand) string {
	if templates, found := lookupMessageTemplates(command); found {
		return templates.success
	}
	return fmt.Sprintf(genericSuccessTemplateConstant, subcommandLabel(command))
}

func formatFailureMessage(command ShellCommand) string {
	if templates, found := lookupMessageTemplates(command); found {
		return templates.failure
	}
	return fmt.Sprintf(genericFailureTemplateConstant, subcommandLabel(command))
}

func formatExecutionFailureMessage(command ShellCommand) string {
	return fmt.Sprintf(genericExecutionFailureTemplateConstant, subcommandLabel(command))
}

func lookupMessageTemplates(command ShellCommand) (gcloudMessageTemplates, bool) {
	if command.Name != CommandGcloud {
		return gcloudMessageTemplates{}, false
	}
	subcommands := leadingSubcommands(command.Details.Arguments)
	for depth := len(subcommands); depth > 0; depth-- {
		if templates, found := gcloudMessageCatalog[strings.Join(subcommands[:depth], subcommandLabelSeparatorConstant)]; found {
			return templates, true
		}
	}
	return gcloudMessageTemplates{}, false
}

func subcommandLabel(command ShellCommand) string {
	subcommands := leadingSubcommands(command.Details.Arguments)
	if len(subcommands) == 0 {
		return string(command.Name)
	}
	return string(command.Name) + subcommandLabelSeparatorConstant + strings.Join(subcommands, subcommandLabelSeparatorConstant)
}

func leadingSubcommands(arguments []string) []string {
	subcommands := make([]string, 0, maximumSubcommandDepthConstant)
	for _, argument := range arguments {
		if strings.HasPrefix(argument, flagPrefixConstant) || len(subcommands) == maximumSubcommandDepthConstant {
			break
		}
		subcommands = append(subcommands, argument)
	}
	return subcommands
}
