package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	journalTableNameConstant        = "copy_journal"
	databasePathRequiredMessage     = "journal database path required"
	databaseMissingMessage          = "journal database not configured"
	databaseOpenErrorTemplate       = "failed to open journal database: %w"
	databaseMigrationErrorTemplate  = "failed to migrate journal database: %w"
	entryWriteErrorTemplate         = "failed to append journal entry: %w"
	entryReadErrorTemplate          = "failed to read journal entries: %w"
	databaseHandleErrorTemplate     = "failed to access journal database handle: %w"
	entriesOrderClauseConstant      = "id ASC"
	contentTypeFilterClauseConstant = "content_type = ?"
)

var (
	errDatabasePathRequired = errors.New(databasePathRequiredMessage)
	errDatabaseMissing      = errors.New(databaseMissingMessage)
)

// Entry is one copied record: where it came from and where it now lives.
type Entry struct {
	ID             uint   `gorm:"primaryKey"`
	ContentType    string `gorm:"index;not null"`
	SourceID       int    `gorm:"index"`
	SourceURL      string
	DestinationID  int
	DestinationURL string
	AccountID      int
	CreatedAt      time.Time
}

// TableName pins the table name independent of gorm naming conventions.
func (Entry) TableName() string {
	return journalTableNameConstant
}

// Journal is an append-only log of copied records stored in SQLite.
type Journal struct {
	database *gorm.DB
}

// Open opens (creating if needed) the SQLite journal at databasePath.
func Open(databasePath string) (*Journal, error) {
	trimmedPath := strings.TrimSpace(databasePath)
	if len(trimmedPath) == 0 {
		return nil, errDatabasePathRequired
	}

	database, openError := gorm.Open(sqlite.Open(trimmedPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openError != nil {
		return nil, fmt.Errorf(databaseOpenErrorTemplate, openError)
	}

	return New(database)
}

// New wraps an existing gorm handle and ensures the journal table exists.
func New(database *gorm.DB) (*Journal, error) {
	if database == nil {
		return nil, errDatabaseMissing
	}
	if migrationError := database.AutoMigrate(&Entry{}); migrationError != nil {
		return nil, fmt.Errorf(databaseMigrationErrorTemplate, migrationError)
	}
	return &Journal{database: database}, nil
}

// Append stores entry, stamping CreatedAt when unset.
func (journal *Journal) Append(executionContext context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if createError := journal.database.WithContext(executionContext).Create(&entry).Error; createError != nil {
		return fmt.Errorf(entryWriteErrorTemplate, createError)
	}
	return nil
}

// Entries returns every entry in insertion order, optionally filtered by content type.
func (journal *Journal) Entries(executionContext context.Context, contentType string) ([]Entry, error) {
	query := journal.database.WithContext(executionContext).Model(&Entry{})
	if trimmedType := strings.TrimSpace(contentType); len(trimmedType) > 0 {
		query = query.Where(contentTypeFilterClauseConstant, trimmedType)
	}

	var entries []Entry
	if readError := query.Order(entriesOrderClauseConstant).Find(&entries).Error; readError != nil {
		return nil, fmt.Errorf(entryReadErrorTemplate, readError)
	}
	return entries, nil
}

// Close releases the underlying database connection.
func (journal *Journal) Close() error {
	sqlDatabase, handleError := journal.database.DB()
	if handleError != nil {
		return fmt.Errorf(databaseHandleErrorTemplate, handleError)
	}
	return sqlDatabase.Close()
}
