package migrate

import (
	"fmt"
)

const (
	copyErrorTemplateConstant        = "%s %s %s failed: %v"
	sourceIdentifierTemplateConstant = "#%d"
	listingSourceDescriptionConstant = "listing"
)

// CopyStage names the step of a copy at which a failure occurred.
type CopyStage string

// Copy stages in execution order.
const (
	CopyStageList        CopyStage = CopyStage("list")
	CopyStageFetch       CopyStage = CopyStage("fetch")
	CopyStageImpersonate CopyStage = CopyStage("impersonate")
	CopyStageCreate      CopyStage = CopyStage("create")
	CopyStageRecord      CopyStage = CopyStage("record")
	CopyStageListAnswers CopyStage = CopyStage("list_answers")
)

// CopyError attributes a failure to the item and stage that produced it. It unwraps to the
// underlying client error so callers can match stackapi sentinels with errors.Is.
type CopyError struct {
	ContentType ContentType
	SourceID    int
	Stage       CopyStage
	Cause       error
}

func newCopyError(contentType ContentType, sourceID int, stage CopyStage, cause error) CopyError {
	return CopyError{ContentType: contentType, SourceID: sourceID, Stage: stage, Cause: cause}
}

// Error describes the failed copy step.
func (copyError CopyError) Error() string {
	return fmt.Sprintf(copyErrorTemplateConstant, copyError.ContentType, copyError.describeSource(), copyError.Stage, copyError.Cause)
}

// Unwrap exposes the underlying cause.
func (copyError CopyError) Unwrap() error {
	return copyError.Cause
}

// describeSource names the listing for list failures and the source identifier otherwise.
func (copyError CopyError) describeSource() string {
	if copyError.Stage == CopyStageList {
		return listingSourceDescriptionConstant
	}
	return fmt.Sprintf(sourceIdentifierTemplateConstant, copyError.SourceID)
}
