//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/jot/internal/errors"
)

// openNoFollow falls back to a plain open; checkBackupPath has already
// rejected symlinks.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil && os.IsNotExist(err) && flag&os.O_CREATE == 0 {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
