package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// UserOwner is the primary device user.
const UserOwner = 0

// FileBackup records the backup service activation state per user as a
// marker file under a state directory.
type FileBackup struct {
	dir string
}

// NewFileBackup creates a backup manager rooted at dir.
func NewFileBackup(dir string) *FileBackup {
	return &FileBackup{dir: filepath.Clean(dir)}
}

// SetBackupServiceActive marks the backup service active or inactive for
// userID.
func (b *FileBackup) SetBackupServiceActive(ctx context.Context, userID int, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID < 0 {
		return fmt.Errorf("invalid user id %d", userID)
	}
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("create backup state dir: %w", err)
	}

	value := "0"
	if active {
		value = "1"
	}
	if err := os.WriteFile(b.markerPath(userID), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write backup state: %w", err)
	}
	return nil
}

// IsBackupServiceActive reports the recorded state for userID.
func (b *FileBackup) IsBackupServiceActive(userID int) (bool, error) {
	data, err := os.ReadFile(b.markerPath(userID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read backup state: %w", err)
	}
	return string(data) == "1", nil
}

func (b *FileBackup) markerPath(userID int) string {
	return filepath.Join(b.dir, "backup-user-"+strconv.Itoa(userID)+".active")
}
