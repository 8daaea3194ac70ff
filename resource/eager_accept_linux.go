package resource

import "golang.org/x/sys/unix"

// acceptFd accepts one connection with close-on-exec set atomically.
func acceptFd(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
	return nfd, err
}
