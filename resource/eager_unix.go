//go:build unix

package resource

import (
	stderrors "errors"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const eagerSupported = true

// wouldBlock reports whether err means the operation must be retried later.
func wouldBlock(err error) bool {
	return stderrors.Is(err, unix.EAGAIN) ||
		stderrors.Is(err, unix.EWOULDBLOCK) ||
		stderrors.Is(err, unix.EINTR)
}

// tryRead performs one non-blocking read. done is false when no data was
// available and the caller must fall back to a blocking read.
func tryRead(c *net.TCPConn, buf []byte) (n int, done bool, err error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	var opErr error
	cerr := rc.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), buf)
		return true
	})
	if cerr != nil {
		return 0, true, cerr
	}
	if opErr != nil {
		if wouldBlock(opErr) {
			return 0, false, nil
		}
		return 0, true, opErr
	}
	if n == 0 && len(buf) > 0 {
		return 0, true, io.EOF
	}
	return n, true, nil
}

// tryWrite performs one non-blocking write. It may write fewer than
// len(buf) bytes.
func tryWrite(c *net.TCPConn, buf []byte) (n int, done bool, err error) {
	if len(buf) == 0 {
		return 0, true, nil
	}
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	var opErr error
	cerr := rc.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), buf)
		return true
	})
	if cerr != nil {
		return 0, true, cerr
	}
	if opErr != nil {
		if wouldBlock(opErr) {
			return 0, false, nil
		}
		return 0, true, opErr
	}
	if n < 0 {
		n = 0
	}
	return n, true, nil
}

// tryAccept accepts a pending connection without blocking. The listener fd
// is already non-blocking, so accepting inside Control returns EAGAIN when
// nothing is queued.
func tryAccept(l *net.TCPListener) (c *net.TCPConn, done bool, err error) {
	rc, err := l.SyscallConn()
	if err != nil {
		return nil, false, nil
	}
	nfd := -1
	var opErr error
	cerr := rc.Control(func(fd uintptr) {
		nfd, opErr = acceptFd(int(fd))
	})
	if cerr != nil {
		return nil, true, cerr
	}
	if opErr != nil {
		if wouldBlock(opErr) || stderrors.Is(opErr, unix.ECONNABORTED) {
			return nil, false, nil
		}
		return nil, true, opErr
	}

	f := os.NewFile(uintptr(nfd), "tcp")
	defer f.Close()
	fc, err := net.FileConn(f)
	if err != nil {
		return nil, true, err
	}
	tc, ok := fc.(*net.TCPConn)
	if !ok {
		fc.Close()
		return nil, true, syscall.EINVAL
	}
	return tc, true, nil
}
