//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/teamtalk/talktome/internal/errors"
)

// createNoFollow creates path for writing with O_NOFOLLOW on the final component.
func createNoFollow(path string, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
