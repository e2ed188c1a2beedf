package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/colonyops/taskdeck/internal/data/db"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsBusyError reports whether err is SQLITE_BUSY, i.e. another process held
// the write lock past the busy timeout.
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

// IsCorruptionError reports whether err means the database file is unusable.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}

// IsNotFoundError reports whether err is sql.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// transportError wraps a failed resource operation as a transport failure,
// naming the SQLite condition when it is one callers can act on.
func transportError(op, id string, err error) error {
	switch {
	case IsBusyError(err):
		op += " (database busy)"
	case IsCorruptionError(err):
		op += " (database corrupt)"
	}
	return versioned.AsTransport(op, id, err)
}

// RecoverFromCorruption moves the database file of dataDir and its WAL and
// SHM companions aside so the next db.Open starts from an empty, migrated
// database. It returns the backup path of the main file, or "" when there was
// nothing to move.
func RecoverFromCorruption(dataDir string) (string, error) {
	dbPath := filepath.Join(dataDir, db.FileName)
	backupPath := fmt.Sprintf("%s.corrupt.%s", dbPath, time.Now().Format("20060102-150405"))

	moved := false
	// The WAL and SHM files must go too; SQLite would otherwise replay them
	// into the new database.
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(dbPath+suffix, backupPath+suffix)
		switch {
		case err == nil:
			moved = moved || suffix == ""
		case errors.Is(err, os.ErrNotExist):
		default:
			if suffix == "" {
				return "", fmt.Errorf("backup corrupt database: %w", err)
			}
			if rmErr := os.Remove(dbPath + suffix); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return "", fmt.Errorf("backup or remove %s: %w", filepath.Base(dbPath+suffix), err)
			}
		}
	}

	if !moved {
		return "", nil
	}
	return backupPath, nil
}
