package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/stackmigrate/internal/credentials"
	"github.com/temirov/stackmigrate/internal/journal"
	"github.com/temirov/stackmigrate/internal/migrate"
	"github.com/temirov/stackmigrate/internal/migrate/testsupport"
	"github.com/temirov/stackmigrate/internal/stackapi"
	"github.com/temirov/stackmigrate/internal/stackapi/stackapitest"
)

const (
	commandSubtestTemplateConstant      = "%d_%s"
	commandBaseURLConstant              = "https://kb.example.com"
	sharedAccessTokenConstant           = "shared-access-token"
	mainAPIKeyConstant                  = "main-api-key"
	privateTeamConstant                 = "private-team"
	literalTokenReferenceTemplate       = "value:%s"
	fallbackFlagArgumentTemplate        = "--fallback-account-id=%d"
	continueOnErrorFlagArgument         = "--continue-on-error"
	continueOnErrorDisabledFlagArgument = "--continue-on-error=no"
	journalFlagArgumentTemplate         = "--journal=%s"
	journalFileNameConstant             = "journal.db"
	copyRunCompletedMessageTextConstant = "Copy run completed"
	copyRunFailedMessageTextConstant    = "Copy run failed"
	attemptedLogFieldConstant           = "attempted"
	answersCopiedLogFieldConstant       = "answers_copied"
	missingEnvironmentReferenceConstant = "env:STACKMIGRATE_TEST_MISSING_TOKEN"
)

func literalReference(value string) string {
	return fmt.Sprintf(literalTokenReferenceTemplate, value)
}

func commandTestConfiguration(baseURL string) migrate.CommandConfiguration {
	configuration := migrate.DefaultCommandConfiguration()
	configuration.BaseURL = baseURL
	configuration.FallbackAccountID = configuredFallbackAccountConstant
	configuration.Main = migrate.DestinationConfiguration{
		Token:  literalReference(sharedAccessTokenConstant),
		APIKey: literalReference(mainAPIKeyConstant),
	}
	configuration.Private = migrate.SourceConfiguration{
		Team:  privateTeamConstant,
		Token: literalReference(sharedAccessTokenConstant),
	}
	return configuration
}

func buildCopyCommand(testInstance *testing.T, builder *migrate.CommandBuilder, contentType migrate.ContentType, arguments []string) error {
	testInstance.Helper()

	var command *cobra.Command
	var buildError error
	if contentType == migrate.ContentTypeArticle {
		command, buildError = builder.BuildArticlesCommand()
	} else {
		command, buildError = builder.BuildQuestionsCommand()
	}
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	command.SetArgs(append([]string{}, arguments...))
	return command.Execute()
}

func TestCopyCommandDispatch(testInstance *testing.T) {
	testCases := []struct {
		name                string
		contentType         migrate.ContentType
		arguments           []string
		expectedOperations  []string
		expectedIdentifiers [][]int
		expectError         bool
	}{
		{
			name:               "questions_without_identifiers_copy_everything",
			contentType:        migrate.ContentTypeQuestion,
			arguments:          nil,
			expectedOperations: []string{testsupport.OperationCopyAllQuestions},
		},
		{
			name:                "questions_with_identifiers_preserve_order",
			contentType:         migrate.ContentTypeQuestion,
			arguments:           []string{"3", "1"},
			expectedOperations:  []string{testsupport.OperationCopyQuestions},
			expectedIdentifiers: [][]int{{3, 1}},
		},
		{
			name:               "articles_without_identifiers_copy_everything",
			contentType:        migrate.ContentTypeArticle,
			arguments:          nil,
			expectedOperations: []string{testsupport.OperationCopyAllArticles},
		},
		{
			name:                "articles_with_identifiers",
			contentType:         migrate.ContentTypeArticle,
			arguments:           []string{"9"},
			expectedOperations:  []string{testsupport.OperationCopyArticles},
			expectedIdentifiers: [][]int{{9}},
		},
		{
			name:        "non_numeric_identifier_rejected",
			contentType: migrate.ContentTypeQuestion,
			arguments:   []string{"1", "abc"},
			expectError: true,
		},
		{
			name:        "non_positive_identifier_rejected",
			contentType: migrate.ContentTypeArticle,
			arguments:   []string{"0"},
			expectError: true,
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			serviceStub := &testsupport.ServiceStub{}
			serviceRequested := false

			builder := &migrate.CommandBuilder{
				ConfigurationProvider: func() migrate.CommandConfiguration {
					return commandTestConfiguration(commandBaseURLConstant)
				},
				ServiceProvider: func(migrate.ServiceDependencies) (migrate.CopyExecutor, error) {
					serviceRequested = true
					return serviceStub, nil
				},
			}

			executionError := buildCopyCommand(subtest, builder, testCase.contentType, testCase.arguments)
			if testCase.expectError {
				require.Error(subtest, executionError)
				require.False(subtest, serviceRequested)
				require.Empty(subtest, serviceStub.Operations)
				return
			}

			require.NoError(subtest, executionError)
			require.Equal(subtest, testCase.expectedOperations, serviceStub.Operations)
			require.Equal(subtest, testCase.expectedIdentifiers, serviceStub.ReceivedIdentifiers)
		})
	}
}

func TestCopyCommandConfigurationPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name                    string
		configure               func(*migrate.CommandConfiguration)
		arguments               []string
		expectedFallbackAccount int
		expectedContinueOnError bool
	}{
		{
			name:                    "configuration_values_apply",
			configure:               func(configuration *migrate.CommandConfiguration) { configuration.ContinueOnError = true },
			arguments:               nil,
			expectedFallbackAccount: configuredFallbackAccountConstant,
			expectedContinueOnError: true,
		},
		{
			name:                    "flags_override_configuration",
			configure:               func(*migrate.CommandConfiguration) {},
			arguments:               []string{fmt.Sprintf(fallbackFlagArgumentTemplate, 5), continueOnErrorFlagArgument},
			expectedFallbackAccount: 5,
			expectedContinueOnError: true,
		},
		{
			name:                    "flag_disables_configured_continue_on_error",
			configure:               func(configuration *migrate.CommandConfiguration) { configuration.ContinueOnError = true },
			arguments:               []string{continueOnErrorDisabledFlagArgument},
			expectedFallbackAccount: configuredFallbackAccountConstant,
			expectedContinueOnError: false,
		},
		{
			name:                    "sentinel_fallback_from_flag",
			configure:               func(*migrate.CommandConfiguration) {},
			arguments:               []string{fmt.Sprintf(fallbackFlagArgumentTemplate, migrate.NoFallbackAccountIdentifier)},
			expectedFallbackAccount: migrate.NoFallbackAccountIdentifier,
			expectedContinueOnError: false,
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			var capturedDependencies migrate.ServiceDependencies

			builder := &migrate.CommandBuilder{
				ConfigurationProvider: func() migrate.CommandConfiguration {
					configuration := commandTestConfiguration(commandBaseURLConstant)
					testCase.configure(&configuration)
					return configuration
				},
				ServiceProvider: func(dependencies migrate.ServiceDependencies) (migrate.CopyExecutor, error) {
					capturedDependencies = dependencies
					return &testsupport.ServiceStub{}, nil
				},
			}

			executionError := buildCopyCommand(subtest, builder, migrate.ContentTypeQuestion, testCase.arguments)
			require.NoError(subtest, executionError)
			require.Equal(subtest, testCase.expectedFallbackAccount, capturedDependencies.FallbackAccountID)
			require.Equal(subtest, testCase.expectedContinueOnError, capturedDependencies.ContinueOnError)
			require.NotNil(subtest, capturedDependencies.Source)
			require.NotNil(subtest, capturedDependencies.Destination)
			require.NotNil(subtest, capturedDependencies.Recorder)
		})
	}
}

func TestCopyCommandSetupFailures(testInstance *testing.T) {
	testCases := []struct {
		name            string
		configure       func(*migrate.CommandConfiguration)
		expectedMessage string
	}{
		{
			name: "missing_private_token",
			configure: func(configuration *migrate.CommandConfiguration) {
				configuration.Private.Token = missingEnvironmentReferenceConstant
			},
			expectedMessage: "private access token",
		},
		{
			name: "missing_main_token",
			configure: func(configuration *migrate.CommandConfiguration) {
				configuration.Main.Token = missingEnvironmentReferenceConstant
			},
			expectedMessage: "main access token",
		},
		{
			name:            "missing_base_url",
			configure:       func(configuration *migrate.CommandConfiguration) { configuration.BaseURL = "" },
			expectedMessage: "source client",
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			serviceRequested := false
			builder := &migrate.CommandBuilder{
				ConfigurationProvider: func() migrate.CommandConfiguration {
					configuration := commandTestConfiguration(commandBaseURLConstant)
					testCase.configure(&configuration)
					return configuration
				},
				TokenResolver: credentials.NewTokenResolver(func(string) (string, bool) { return "", false }, nil),
				ServiceProvider: func(migrate.ServiceDependencies) (migrate.CopyExecutor, error) {
					serviceRequested = true
					return &testsupport.ServiceStub{}, nil
				},
			}

			executionError := buildCopyCommand(subtest, builder, migrate.ContentTypeQuestion, nil)
			require.Error(subtest, executionError)
			require.Contains(subtest, executionError.Error(), testCase.expectedMessage)
			require.False(subtest, serviceRequested)
		})
	}
}

func TestQuestionsCopyCommandAgainstKnowledgeBase(testInstance *testing.T) {
	server := stackapitest.NewServer(testInstance)
	server.AccessToken = sharedAccessTokenConstant
	server.APIKey = mainAPIKeyConstant
	server.AddQuestion(
		stackapi.Question{ID: 1, Title: "How do I deploy?", Body: "<p>deploy</p>", Tags: []stackapi.Tag{{Name: "ops"}}, Owner: stackapi.KnownOwner(questionOwnerAccountConstant)},
		stackapi.Answer{ID: 11, Body: "<p>run make deploy</p>", Owner: stackapi.UnknownOwner()},
		stackapi.Answer{ID: 12, Body: "<p>or use the pipeline</p>", Owner: stackapi.KnownOwner(answerOwnerAccountConstant)},
	)

	journalPath := filepath.Join(testInstance.TempDir(), journalFileNameConstant)
	logCore, observedLogs := observer.New(zap.InfoLevel)

	builder := &migrate.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.New(logCore) },
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return commandTestConfiguration(server.URL())
		},
	}

	executionError := buildCopyCommand(testInstance, builder, migrate.ContentTypeQuestion, []string{fmt.Sprintf(journalFlagArgumentTemplate, journalPath)})
	require.NoError(testInstance, executionError)

	writes := server.Writes()
	require.Len(testInstance, writes, 3)

	require.Equal(testInstance, stackapitest.WriteKindQuestion, writes[0].Kind)
	require.Equal(testInstance, questionOwnerAccountConstant, writes[0].AccountID)
	require.Equal(testInstance, "How do I deploy?", writes[0].Title)
	require.Equal(testInstance, []string{"ops"}, writes[0].Tags)
	require.Empty(testInstance, writes[0].Team)

	require.Equal(testInstance, stackapitest.WriteKindAnswer, writes[1].Kind)
	require.Equal(testInstance, configuredFallbackAccountConstant, writes[1].AccountID)
	require.Equal(testInstance, writes[0].CreatedID, writes[1].ParentQuestionID)
	require.Equal(testInstance, "<p>run make deploy</p>", writes[1].Body)

	require.Equal(testInstance, stackapitest.WriteKindAnswer, writes[2].Kind)
	require.Equal(testInstance, answerOwnerAccountConstant, writes[2].AccountID)
	require.Equal(testInstance, writes[0].CreatedID, writes[2].ParentQuestionID)

	require.Equal(testInstance, []int{questionOwnerAccountConstant, configuredFallbackAccountConstant, answerOwnerAccountConstant}, server.ImpersonationRequests())

	copyJournal, openError := journal.Open(journalPath)
	require.NoError(testInstance, openError)
	defer copyJournal.Close()

	questionEntries, questionEntriesError := copyJournal.Entries(context.Background(), string(migrate.ContentTypeQuestion))
	require.NoError(testInstance, questionEntriesError)
	require.Len(testInstance, questionEntries, 1)
	require.Equal(testInstance, 1, questionEntries[0].SourceID)
	require.Equal(testInstance, writes[0].CreatedID, questionEntries[0].DestinationID)
	require.Equal(testInstance, questionOwnerAccountConstant, questionEntries[0].AccountID)

	answerEntries, answerEntriesError := copyJournal.Entries(context.Background(), string(migrate.ContentTypeAnswer))
	require.NoError(testInstance, answerEntriesError)
	require.Len(testInstance, answerEntries, 2)
	require.Equal(testInstance, 11, answerEntries[0].SourceID)
	require.Equal(testInstance, 12, answerEntries[1].SourceID)

	summaryEntries := observedLogs.FilterMessage(copyRunCompletedMessageTextConstant).All()
	require.Len(testInstance, summaryEntries, 1)
	require.Equal(testInstance, int64(1), summaryEntries[0].ContextMap()[attemptedLogFieldConstant])
	require.Equal(testInstance, int64(2), summaryEntries[0].ContextMap()[answersCopiedLogFieldConstant])
}

func TestArticlesCopyCommandStopsAtMissingArticle(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		arguments             []string
		expectedCreatedTitles []string
	}{
		{
			name:                  "fail_fast",
			arguments:             []string{"21", "5", "22"},
			expectedCreatedTitles: []string{"Runbook"},
		},
		{
			name:                  "continue_on_error",
			arguments:             []string{continueOnErrorFlagArgument, "21", "5", "22"},
			expectedCreatedTitles: []string{"Runbook", "Policy"},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			server := stackapitest.NewServer(subtest)
			server.AddArticle(stackapi.Article{ID: 21, Title: "Runbook", Type: stackapi.ArticleTypeHowToGuide, Owner: stackapi.KnownOwner(questionOwnerAccountConstant)})
			server.AddArticle(stackapi.Article{ID: 22, Title: "Policy", Type: stackapi.ArticleTypePolicy, Owner: stackapi.UnknownOwner()})

			logCore, observedLogs := observer.New(zap.InfoLevel)
			builder := &migrate.CommandBuilder{
				LoggerProvider: func() *zap.Logger { return zap.New(logCore) },
				ConfigurationProvider: func() migrate.CommandConfiguration {
					return commandTestConfiguration(server.URL())
				},
			}

			executionError := buildCopyCommand(subtest, builder, migrate.ContentTypeArticle, testCase.arguments)
			require.Error(subtest, executionError)
			require.True(subtest, errors.Is(executionError, stackapi.ErrNotFound))

			createdTitles := make([]string, 0)
			for _, write := range server.Writes() {
				require.Equal(subtest, stackapitest.WriteKindArticle, write.Kind)
				createdTitles = append(createdTitles, write.Title)
			}
			require.Equal(subtest, testCase.expectedCreatedTitles, createdTitles)

			failureEntries := observedLogs.FilterMessage(copyRunFailedMessageTextConstant).All()
			require.Len(subtest, failureEntries, 1)
			require.Equal(subtest, zapcore.ErrorLevel, failureEntries[0].Level)
		})
	}
}
