package migrate

import (
	"strings"
)

const (
	defaultMainTokenReferenceConstant    = "env:STACKMIGRATE_MAIN_ACCESS_TOKEN"
	defaultPrivateTokenReferenceConstant = "env:STACKMIGRATE_PRIVATE_ACCESS_TOKEN"
	defaultRequestTimeoutSecondsConstant = 60
	defaultPageSizeConstant              = 100
	configurationKeySeparatorConstant    = "."
)

// DestinationConfiguration holds credentials for the main instance that receives copies.
type DestinationConfiguration struct {
	Token  string `mapstructure:"token"`
	APIKey string `mapstructure:"api_key"`
}

// SourceConfiguration identifies the private team instance records are read from.
type SourceConfiguration struct {
	Team  string `mapstructure:"team"`
	Token string `mapstructure:"token"`
}

// CommandConfiguration captures persisted configuration for copy commands.
type CommandConfiguration struct {
	BaseURL               string                   `mapstructure:"base_url"`
	VerifySSL             bool                     `mapstructure:"ssl_verify"`
	ProxyURL              string                   `mapstructure:"proxy_url"`
	RequestTimeoutSeconds int                      `mapstructure:"request_timeout_seconds"`
	PageSize              int                      `mapstructure:"page_size"`
	FallbackAccountID     int                      `mapstructure:"fallback_account_id"`
	ContinueOnError       bool                     `mapstructure:"continue_on_error"`
	JournalPath           string                   `mapstructure:"journal_path"`
	Main                  DestinationConfiguration `mapstructure:"main"`
	Private               SourceConfiguration      `mapstructure:"private"`
}

// DefaultCommandConfiguration returns baseline configuration values for copy commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		VerifySSL:             true,
		RequestTimeoutSeconds: defaultRequestTimeoutSecondsConstant,
		PageSize:              defaultPageSizeConstant,
		FallbackAccountID:     NoFallbackAccountIdentifier,
		ContinueOnError:       false,
		Main: DestinationConfiguration{
			Token: defaultMainTokenReferenceConstant,
		},
		Private: SourceConfiguration{
			Token: defaultPrivateTokenReferenceConstant,
		},
	}
}

// Sanitize trims configured values and restores defaults for non-positive limits.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	sanitized.ProxyURL = strings.TrimSpace(configuration.ProxyURL)
	sanitized.JournalPath = strings.TrimSpace(configuration.JournalPath)
	sanitized.Main.Token = strings.TrimSpace(configuration.Main.Token)
	sanitized.Main.APIKey = strings.TrimSpace(configuration.Main.APIKey)
	sanitized.Private.Team = strings.TrimSpace(configuration.Private.Team)
	sanitized.Private.Token = strings.TrimSpace(configuration.Private.Token)

	if sanitized.RequestTimeoutSeconds <= 0 {
		sanitized.RequestTimeoutSeconds = defaultRequestTimeoutSecondsConstant
	}
	if sanitized.PageSize <= 0 {
		sanitized.PageSize = defaultPageSizeConstant
	}

	return sanitized
}

// DefaultConfigurationValues flattens DefaultCommandConfiguration into dotted keys below keyPrefix.
// Every key needs a default for environment overrides to reach it.
func DefaultConfigurationValues(keyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	qualify := func(keyParts ...string) string {
		allParts := keyParts
		if len(keyPrefix) > 0 {
			allParts = append([]string{keyPrefix}, keyParts...)
		}
		return strings.Join(allParts, configurationKeySeparatorConstant)
	}

	return map[string]any{
		qualify("base_url"):                defaults.BaseURL,
		qualify("ssl_verify"):              defaults.VerifySSL,
		qualify("proxy_url"):               defaults.ProxyURL,
		qualify("request_timeout_seconds"): defaults.RequestTimeoutSeconds,
		qualify("page_size"):               defaults.PageSize,
		qualify("fallback_account_id"):     defaults.FallbackAccountID,
		qualify("continue_on_error"):       defaults.ContinueOnError,
		qualify("journal_path"):            defaults.JournalPath,
		qualify("main", "token"):           defaults.Main.Token,
		qualify("main", "api_key"):         defaults.Main.APIKey,
		qualify("private", "team"):         defaults.Private.Team,
		qualify("private", "token"):        defaults.Private.Token,
	}
}
