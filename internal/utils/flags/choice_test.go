package flags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first_choice",
			defaultChoice:  "structured",
			choices:        []string{"structured", "console"},
			description:    "Log encoding.",
			expectedOutput: "`<STRUCTURED|console>` Log encoding.",
		},
		{
			name:           "default_second_choice",
			defaultChoice:  "info",
			choices:        []string{"debug", "info"},
			description:    "Minimum log level.",
			expectedOutput: "`<debug|INFO>` Minimum log level.",
		},
		{
			name:           "empty_description",
			defaultChoice:  "alpha",
			choices:        []string{"alpha", "beta"},
			description:    "",
			expectedOutput: "`<ALPHA|beta>`",
		},
		{
			name:           "duplicate_choices_ignored",
			defaultChoice:  "beta",
			choices:        []string{"beta", "beta", "alpha", "alpha"},
			description:    "Select between options.",
			expectedOutput: "`<BETA|alpha>` Select between options.",
		},
		{
			name:           "whitespace_trimmed",
			defaultChoice:  "primary",
			choices:        []string{" primary ", " secondary "},
			description:    "Pick a palette.",
			expectedOutput: "`<PRIMARY|secondary>` Pick a palette.",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testToggleSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(testInstance, testCase.expectedOutput, actual)
		})
	}
}

func TestValidateChoice(testInstance *testing.T) {
	choices := []string{"debug", "info", "warn", "error"}

	normalized, validationError := ValidateChoice("log level", " WARN ", choices)
	require.NoError(testInstance, validationError)
	require.Equal(testInstance, "warn", normalized)

	_, validationError = ValidateChoice("log level", "verbose", choices)
	require.EqualError(testInstance, validationError, `invalid log level "verbose" (expected one of debug, info, warn, error)`)
}
