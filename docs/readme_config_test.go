package docs_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/stackmigrate/cmd/cli"
	"github.com/temirov/stackmigrate/internal/migrate"
	"github.com/temirov/stackmigrate/internal/utils"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	readmeSnippetFileNameConstant    = "config.yaml"
	parentDirectoryReferenceConstant = ".."
	migrationSectionKeyConstant      = "migration"
	missingHeaderMessageConstant     = "README example missing config header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
	unexpectedKeyMessageTemplate     = "README example uses unknown key %s"
)

func TestReadmeConfigurationExampleLoads(testInstance *testing.T) {
	snippetContent := extractReadmeConfiguration(testInstance)

	var document map[string]any
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippetContent), &document))

	knownKeys := map[string]struct{}{
		"common.log_level":  {},
		"common.log_format": {},
	}
	for configurationKey := range migrate.DefaultConfigurationValues(migrationSectionKeyConstant) {
		knownKeys[configurationKey] = struct{}{}
	}
	for _, documentKey := range flattenDocumentKeys("", document) {
		_, known := knownKeys[documentKey]
		require.Truef(testInstance, known, unexpectedKeyMessageTemplate, documentKey)
	}

	snippetPath := filepath.Join(testInstance.TempDir(), readmeSnippetFileNameConstant)
	require.NoError(testInstance, os.WriteFile(snippetPath, []byte(snippetContent), 0o600))

	embeddedData, embeddedType := cli.EmbeddedDefaultConfiguration()
	loader := utils.NewConfigurationLoader("config", "yaml", "STACKMIGRATE_README", nil)
	loader.SetEmbeddedConfiguration(embeddedData, embeddedType)

	var configuration cli.ApplicationConfiguration
	metadata, loadError := loader.LoadConfiguration(snippetPath, migrate.DefaultConfigurationValues(migrationSectionKeyConstant), &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, snippetPath, metadata.ConfigFileUsed)

	require.Equal(testInstance, "console", configuration.Common.LogFormat)
	require.Equal(testInstance, 1, configuration.Migration.FallbackAccountID)
	require.Equal(testInstance, "platform", configuration.Migration.Private.Team)
	require.Equal(testInstance, "file:/run/secrets/kb-api-key", configuration.Migration.Main.APIKey)
	require.Empty(testInstance, configuration.Migration.ProxyURL)
}

func extractReadmeConfiguration(testInstance *testing.T) string {
	testInstance.Helper()

	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	readmePath := filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant)
	contentBytes, readError := os.ReadFile(readmePath)
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func flattenDocumentKeys(prefix string, document map[string]any) []string {
	keys := make([]string, 0, len(document))
	for key, value := range document {
		qualifiedKey := key
		if len(prefix) > 0 {
			qualifiedKey = prefix + "." + key
		}
		if nested, isMap := value.(map[string]any); isMap {
			keys = append(keys, flattenDocumentKeys(qualifiedKey, nested)...)
			continue
		}
		keys = append(keys, qualifiedKey)
	}
	sort.Strings(keys)
	return keys
}
