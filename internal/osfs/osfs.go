// Package osfs is the reference fsstate.FS: file modification time read
// straight from the operating system.
package osfs

import (
	"os"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

// FS implements fsstate.FS against the real filesystem.
type FS struct{}

// LastModified returns file's mtime in milliseconds since the epoch.
func (FS) LastModified(file string) (int64, error) {
	info, err := os.Stat(file)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixMilli(), nil
}

var _ fsstate.FS = FS{}
