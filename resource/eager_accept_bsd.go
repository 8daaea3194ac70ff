//go:build unix && !linux

package resource

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// acceptFd accepts one connection. ForkLock keeps a concurrent Spawn from
// inheriting the fd before close-on-exec is set.
func acceptFd(fd int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}
