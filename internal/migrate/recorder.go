package migrate

import (
	"context"
	"errors"

	"github.com/temirov/stackmigrate/internal/journal"
)

const (
	journalMissingMessageConstant = "journal not configured"
)

// CopyRecord describes one created record for the copy journal.
type CopyRecord struct {
	ContentType    ContentType
	SourceID       int
	SourceURL      string
	DestinationID  int
	DestinationURL string
	AccountID      int
}

// CopyRecorder receives a record after every successful create. Records are informational and
// never consulted to skip work.
type CopyRecorder interface {
	RecordCopy(executionContext context.Context, record CopyRecord) error
}

type nopRecorder struct{}

func (nopRecorder) RecordCopy(context.Context, CopyRecord) error {
	return nil
}

var errJournalMissing = errors.New(journalMissingMessageConstant)

// JournalRecorder appends copy records to a journal.
type JournalRecorder struct {
	journal *journal.Journal
}

// NewJournalRecorder wraps the journal as a CopyRecorder.
func NewJournalRecorder(copyJournal *journal.Journal) (*JournalRecorder, error) {
	if copyJournal == nil {
		return nil, errJournalMissing
	}
	return &JournalRecorder{journal: copyJournal}, nil
}

// RecordCopy appends the record to the journal.
func (recorder *JournalRecorder) RecordCopy(executionContext context.Context, record CopyRecord) error {
	return recorder.journal.Append(executionContext, journal.Entry{
		ContentType:    string(record.ContentType),
		SourceID:       record.SourceID,
		SourceURL:      record.SourceURL,
		DestinationID:  record.DestinationID,
		DestinationURL: record.DestinationURL,
		AccountID:      record.AccountID,
	})
}
