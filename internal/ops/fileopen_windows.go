//go:build windows

package ops

import "os"

// createNoFollow creates path for writing. Windows has no O_NOFOLLOW;
// validateCalendarPath has already rejected symlinks.
func createNoFollow(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
}
