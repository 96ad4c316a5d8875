package migrate_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/stackmigrate/internal/migrate"
	"github.com/temirov/stackmigrate/internal/stackapi"
)

func TestCopyErrorDescribesFailedStep(testInstance *testing.T) {
	cause := errors.New("boom")
	testCases := []struct {
		name            string
		copyError       migrate.CopyError
		expectedMessage string
	}{
		{
			name:            "listing_failure",
			copyError:       migrate.CopyError{ContentType: migrate.ContentTypeQuestion, Stage: migrate.CopyStageList, Cause: cause},
			expectedMessage: "question listing list failed: boom",
		},
		{
			name:            "fetch_failure_for_record_zero",
			copyError:       migrate.CopyError{ContentType: migrate.ContentTypeArticle, SourceID: 0, Stage: migrate.CopyStageFetch, Cause: cause},
			expectedMessage: "article #0 fetch failed: boom",
		},
		{
			name:            "create_failure",
			copyError:       migrate.CopyError{ContentType: migrate.ContentTypeAnswer, SourceID: 11, Stage: migrate.CopyStageCreate, Cause: cause},
			expectedMessage: "answer #11 create failed: boom",
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			require.EqualError(subtest, testCase.copyError, testCase.expectedMessage)
			require.ErrorIs(subtest, testCase.copyError, cause)
		})
	}
}

func TestCopyErrorUnwrapsClientSentinels(testInstance *testing.T) {
	copyError := migrate.CopyError{ContentType: migrate.ContentTypeQuestion, SourceID: 5, Stage: migrate.CopyStageFetch, Cause: stackapi.ErrNotFound}
	require.ErrorIs(testInstance, copyError, stackapi.ErrNotFound)
	require.Contains(testInstance, copyError.Error(), "question #5 fetch failed")
}
