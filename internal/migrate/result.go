package migrate

// ItemOutcome reports how one top-level item of a bulk copy ended.
type ItemOutcome struct {
	ContentType    ContentType
	SourceID       int
	DestinationID  int
	DestinationURL string
	// ChildCount is the number of answers copied beneath a question.
	ChildCount int
	Error      error
}

// Succeeded reports whether the item and all of its children were copied.
func (outcome ItemOutcome) Succeeded() bool {
	return outcome.Error == nil
}

// BulkResult collects per-item outcomes of a bulk copy in the order items were attempted.
type BulkResult struct {
	ContentType ContentType
	Outcomes    []ItemOutcome
}

// Attempted returns the number of items the run reached.
func (result BulkResult) Attempted() int {
	return len(result.Outcomes)
}

// Succeeded returns the number of fully copied items.
func (result BulkResult) Succeeded() int {
	succeeded := 0
	for _, outcome := range result.Outcomes {
		if outcome.Succeeded() {
			succeeded++
		}
	}
	return succeeded
}

// Failed returns the number of items that reported an error.
func (result BulkResult) Failed() int {
	return result.Attempted() - result.Succeeded()
}

// ChildrenCopied totals the answers copied beneath successful and partially copied questions.
func (result BulkResult) ChildrenCopied() int {
	total := 0
	for _, outcome := range result.Outcomes {
		total += outcome.ChildCount
	}
	return total
}

// FailedSourceIDs lists the source identifiers of failed items.
func (result BulkResult) FailedSourceIDs() []int {
	failed := make([]int, 0)
	for _, outcome := range result.Outcomes {
		if !outcome.Succeeded() {
			failed = append(failed, outcome.SourceID)
		}
	}
	return failed
}
