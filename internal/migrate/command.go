package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/stackmigrate/internal/credentials"
	"github.com/temirov/stackmigrate/internal/journal"
	"github.com/temirov/stackmigrate/internal/stackapi"
	"github.com/temirov/stackmigrate/internal/utils/flags"
)

const (
	questionsCommandUseConstant              = "questions-copy [question-id...]"
	questionsCommandShortDescriptionConstant = "Copy questions and their answers to the main instance"
	questionsCommandLongDescriptionConstant  = "questions-copy copies questions from the private team instance to the main instance, then copies each question's answers beneath the new question. Every write is attributed to the original author through impersonation, or to the fallback account when the author no longer resolves. Without arguments every question is copied."
	articlesCommandUseConstant               = "articles-copy [article-id...]"
	articlesCommandShortDescriptionConstant  = "Copy articles to the main instance"
	articlesCommandLongDescriptionConstant   = "articles-copy copies articles from the private team instance to the main instance, preserving title, body, type, and tags. Every write is attributed to the original author through impersonation, or to the fallback account when the author no longer resolves. Without arguments every article is copied."
	fallbackAccountFlagNameConstant          = "fallback-account-id"
	fallbackAccountFlagUsageConstant         = "Account that receives records whose author cannot be resolved (-1 for none)"
	continueOnErrorFlagNameConstant          = "continue-on-error"
	continueOnErrorFlagUsageConstant         = "Keep copying remaining items after a failure and report all failures at the end"
	journalFlagNameConstant                  = "journal"
	journalFlagUsageConstant                 = "SQLite file that receives one row per created record"
	invalidIdentifierTemplateConstant        = "invalid %s identifier %q: must be a positive integer"
	tokenResolutionErrorTemplateConstant     = "unable to resolve %s: %w"
	clientCreationErrorTemplateConstant      = "unable to construct %s client: %w"
	journalOpenErrorTemplateConstant         = "unable to open journal: %w"
	copyCommandErrorTemplateConstant         = "%s copy failed: %w"
	mainTokenDescriptionConstant             = "main access token"
	mainAPIKeyDescriptionConstant            = "main API key"
	privateTokenDescriptionConstant          = "private access token"
	sourceClientDescriptionConstant          = "source"
	destinationClientDescriptionConstant     = "destination"
	journalCloseFailedMessageConstant        = "Journal close failed"
	copyRunCompletedMessageConstant          = "Copy run completed"
	copyRunFailedMessageConstant             = "Copy run failed"
	journalOpenedMessageConstant             = "Copy journal enabled"
	logFieldAttemptedConstant                = "attempted"
	logFieldSucceededConstant                = "succeeded"
	logFieldFailedConstant                   = "failed"
	logFieldAnswersCopiedConstant            = "answers_copied"
	logFieldFailedSourceIDsConstant          = "failed_source_ids"
	logFieldJournalPathConstant              = "journal_path"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a copy executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (CopyExecutor, error)

// ClientProvider constructs a knowledge-base client from its configuration.
type ClientProvider func(configuration stackapi.ClientConfiguration) (*stackapi.Client, error)

// JournalOpener opens the copy journal at the given path.
type JournalOpener func(databasePath string) (*journal.Journal, error)

type commandOptions struct {
	configuration     CommandConfiguration
	sourceIdentifiers []int
}

// CommandBuilder assembles the questions-copy and articles-copy Cobra commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	TokenResolver         credentials.TokenResolver
	ClientProvider        ClientProvider
	ServiceProvider       ServiceProvider
	JournalOpener         JournalOpener
}

// BuildQuestionsCommand constructs the questions-copy command.
func (builder *CommandBuilder) BuildQuestionsCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           questionsCommandUseConstant,
		Short:         questionsCommandShortDescriptionConstant,
		Long:          questionsCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, ContentTypeQuestion)
		},
	}

	builder.bindFlags(command)

	return command, nil
}

// BuildArticlesCommand constructs the articles-copy command.
func (builder *CommandBuilder) BuildArticlesCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           articlesCommandUseConstant,
		Short:         articlesCommandShortDescriptionConstant,
		Long:          articlesCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, ContentTypeArticle)
		},
	}

	builder.bindFlags(command)

	return command, nil
}

func (builder *CommandBuilder) bindFlags(command *cobra.Command) {
	defaults := DefaultCommandConfiguration()
	command.Flags().Int(fallbackAccountFlagNameConstant, defaults.FallbackAccountID, fallbackAccountFlagUsageConstant)
	flags.AddToggleFlag(command.Flags(), nil, continueOnErrorFlagNameConstant, defaults.ContinueOnError, continueOnErrorFlagUsageConstant)
	command.Flags().String(journalFlagNameConstant, defaults.JournalPath, journalFlagUsageConstant)
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, contentType ContentType) error {
	options, optionsError := builder.parseOptions(command, arguments, contentType)
	if optionsError != nil {
		return optionsError
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	logger := builder.resolveLogger()

	source, destination, clientsError := builder.buildClients(executionContext, options.configuration)
	if clientsError != nil {
		return clientsError
	}

	recorder, closeRecorder, recorderError := builder.openRecorder(logger, options.configuration.JournalPath)
	if recorderError != nil {
		return recorderError
	}
	defer closeRecorder()

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:            logger,
		Source:            source,
		Destination:       destination,
		FallbackAccountID: options.configuration.FallbackAccountID,
		ContinueOnError:   options.configuration.ContinueOnError,
		Recorder:          recorder,
	})
	if serviceError != nil {
		return serviceError
	}

	result, copyError := executeCopy(executionContext, service, contentType, options.sourceIdentifiers)
	builder.logSummary(logger, contentType, result, copyError)
	if copyError != nil {
		return fmt.Errorf(copyCommandErrorTemplateConstant, contentType, copyError)
	}

	return nil
}

func executeCopy(executionContext context.Context, service CopyExecutor, contentType ContentType, sourceIdentifiers []int) (BulkResult, error) {
	switch contentType {
	case ContentTypeArticle:
		if len(sourceIdentifiers) == 0 {
			return service.CopyAllArticles(executionContext)
		}
		return service.CopyArticles(executionContext, sourceIdentifiers)
	default:
		if len(sourceIdentifiers) == 0 {
			return service.CopyAllQuestions(executionContext)
		}
		return service.CopyQuestions(executionContext, sourceIdentifiers)
	}
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, contentType ContentType) (commandOptions, error) {
	sourceIdentifiers, identifiersError := parseSourceIdentifiers(contentType, arguments)
	if identifiersError != nil {
		return commandOptions{}, identifiersError
	}

	configuration := builder.resolveConfiguration()

	if command != nil {
		if command.Flags().Changed(fallbackAccountFlagNameConstant) {
			fallbackAccountID, _ := command.Flags().GetInt(fallbackAccountFlagNameConstant)
			configuration.FallbackAccountID = fallbackAccountID
		}
		if command.Flags().Changed(continueOnErrorFlagNameConstant) {
			continueOnError, _ := command.Flags().GetBool(continueOnErrorFlagNameConstant)
			configuration.ContinueOnError = continueOnError
		}
		if command.Flags().Changed(journalFlagNameConstant) {
			journalPath, _ := command.Flags().GetString(journalFlagNameConstant)
			configuration.JournalPath = strings.TrimSpace(journalPath)
		}
	}

	return commandOptions{
		configuration:     configuration,
		sourceIdentifiers: sourceIdentifiers,
	}, nil
}

// parseSourceIdentifiers rejects anything other than positive integers before any API call is made.
func parseSourceIdentifiers(contentType ContentType, arguments []string) ([]int, error) {
	identifiers := make([]int, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		identifier, parseError := strconv.Atoi(trimmedArgument)
		if parseError != nil || identifier <= 0 {
			return nil, fmt.Errorf(invalidIdentifierTemplateConstant, contentType, argument)
		}
		identifiers = append(identifiers, identifier)
	}
	return identifiers, nil
}

func (builder *CommandBuilder) buildClients(executionContext context.Context, configuration CommandConfiguration) (SourceClient, DestinationClient, error) {
	resolver := builder.resolveTokenResolver()

	privateToken, privateTokenError := credentials.Resolve(executionContext, resolver, configuration.Private.Token)
	if privateTokenError != nil {
		return nil, nil, fmt.Errorf(tokenResolutionErrorTemplateConstant, privateTokenDescriptionConstant, privateTokenError)
	}

	mainToken, mainTokenError := credentials.Resolve(executionContext, resolver, configuration.Main.Token)
	if mainTokenError != nil {
		return nil, nil, fmt.Errorf(tokenResolutionErrorTemplateConstant, mainTokenDescriptionConstant, mainTokenError)
	}

	mainAPIKey := ""
	if len(configuration.Main.APIKey) > 0 {
		resolvedAPIKey, apiKeyError := credentials.Resolve(executionContext, resolver, configuration.Main.APIKey)
		if apiKeyError != nil {
			return nil, nil, fmt.Errorf(tokenResolutionErrorTemplateConstant, mainAPIKeyDescriptionConstant, apiKeyError)
		}
		mainAPIKey = resolvedAPIKey
	}

	sharedConfiguration := stackapi.ClientConfiguration{
		BaseURL:   configuration.BaseURL,
		ProxyURL:  configuration.ProxyURL,
		VerifyTLS: configuration.VerifySSL,
		Timeout:   time.Duration(configuration.RequestTimeoutSeconds) * time.Second,
		PageSize:  configuration.PageSize,
	}

	sourceConfiguration := sharedConfiguration
	sourceConfiguration.AccessToken = privateToken
	sourceConfiguration.Team = configuration.Private.Team

	destinationConfiguration := sharedConfiguration
	destinationConfiguration.AccessToken = mainToken
	destinationConfiguration.APIKey = mainAPIKey

	clientProvider := builder.resolveClientProvider()

	sourceClient, sourceError := clientProvider(sourceConfiguration)
	if sourceError != nil {
		return nil, nil, fmt.Errorf(clientCreationErrorTemplateConstant, sourceClientDescriptionConstant, sourceError)
	}

	destinationClient, destinationError := clientProvider(destinationConfiguration)
	if destinationError != nil {
		return nil, nil, fmt.Errorf(clientCreationErrorTemplateConstant, destinationClientDescriptionConstant, destinationError)
	}

	return sourceClient, destinationClient, nil
}

func (builder *CommandBuilder) openRecorder(logger *zap.Logger, journalPath string) (CopyRecorder, func(), error) {
	if len(journalPath) == 0 {
		return nopRecorder{}, func() {}, nil
	}

	opener := builder.JournalOpener
	if opener == nil {
		opener = journal.Open
	}

	copyJournal, openError := opener(journalPath)
	if openError != nil {
		return nil, nil, fmt.Errorf(journalOpenErrorTemplateConstant, openError)
	}

	recorder, recorderError := NewJournalRecorder(copyJournal)
	if recorderError != nil {
		return nil, nil, fmt.Errorf(journalOpenErrorTemplateConstant, recorderError)
	}

	logger.Info(journalOpenedMessageConstant, zap.String(logFieldJournalPathConstant, journalPath))

	closeJournal := func() {
		if closeError := copyJournal.Close(); closeError != nil {
			logger.Warn(journalCloseFailedMessageConstant, zap.String(logFieldJournalPathConstant, journalPath), zap.Error(closeError))
		}
	}

	return recorder, closeJournal, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveTokenResolver() credentials.TokenResolver {
	if builder.TokenResolver != nil {
		return builder.TokenResolver
	}
	return credentials.NewTokenResolver(nil, nil)
}

func (builder *CommandBuilder) resolveClientProvider() ClientProvider {
	if builder.ClientProvider != nil {
		return builder.ClientProvider
	}
	return stackapi.NewClient
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (CopyExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

func (builder *CommandBuilder) logSummary(logger *zap.Logger, contentType ContentType, result BulkResult, copyError error) {
	fields := []zap.Field{
		zap.String(logFieldContentTypeConstant, string(contentType)),
		zap.Int(logFieldAttemptedConstant, result.Attempted()),
		zap.Int(logFieldSucceededConstant, result.Succeeded()),
		zap.Int(logFieldFailedConstant, result.Failed()),
	}
	if contentType == ContentTypeQuestion {
		fields = append(fields, zap.Int(logFieldAnswersCopiedConstant, result.ChildrenCopied()))
	}

	if copyError == nil {
		logger.Info(copyRunCompletedMessageConstant, fields...)
		return
	}

	fields = append(fields, zap.Ints(logFieldFailedSourceIDsConstant, result.FailedSourceIDs()), zap.Error(copyError))
	if errors.Is(copyError, context.Canceled) {
		logger.Warn(copyRunFailedMessageConstant, fields...)
		return
	}
	logger.Error(copyRunFailedMessageConstant, fields...)
}
