package utils

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

// LogOutput serializes log writes, flushes buffered writers after every write, and treats sync
// failures of terminals and pipes as success.
type LogOutput struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewLogOutput wraps writer for use as a zap write syncer.
func NewLogOutput(writer io.Writer) *LogOutput {
	if existing, alreadyWrapped := writer.(*LogOutput); alreadyWrapped {
		return existing
	}
	return &LogOutput{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (output *LogOutput) Write(data []byte) (int, error) {
	output.mutex.Lock()
	defer output.mutex.Unlock()

	bytesWritten, writeError := output.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushableWriter, implementsFlush := output.writer.(interface{ Flush() error }); implementsFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}

// Sync syncs the underlying writer when it supports syncing.
func (output *LogOutput) Sync() error {
	output.mutex.Lock()
	defer output.mutex.Unlock()

	syncer, implementsSync := output.writer.(interface{ Sync() error })
	if !implementsSync {
		return nil
	}

	return IgnorableSyncError(syncer.Sync())
}

// IgnorableSyncError returns nil for sync errors reported by devices that cannot be synced.
func IgnorableSyncError(syncError error) error {
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP), errors.Is(syncError, syscall.EINVAL), errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}
