package resource

import (
	"io"
	"net"
	"os"
)

// Repr is the table-owned payload behind a resource id. The set of
// implementations is closed: only the variant types in this package satisfy it.
type Repr interface {
	// Kind returns the variant tag.
	Kind() Kind

	// release closes the OS primitive. Called exactly once, on removal.
	release() error
}

// Stdin is the process standard input.
type Stdin struct {
	r io.Reader
}

func (s *Stdin) Kind() Kind     { return KindStdin }
func (s *Stdin) release() error { return nil }

// Stdout is the process standard output.
type Stdout struct {
	w io.Writer
}

func (s *Stdout) Kind() Kind     { return KindStdout }
func (s *Stdout) release() error { return nil }

// Stderr is the process standard error.
type Stderr struct {
	w io.Writer
}

func (s *Stderr) Kind() Kind     { return KindStderr }
func (s *Stderr) release() error { return nil }

// FsFile is an open filesystem file.
type FsFile struct {
	f *os.File
}

func (f *FsFile) Kind() Kind     { return KindFsFile }
func (f *FsFile) release() error { return f.f.Close() }

// File returns the wrapped file.
func (f *FsFile) File() *os.File { return f.f }

// TCPListener is a listening TCP socket.
type TCPListener struct {
	l *net.TCPListener
}

func (l *TCPListener) Kind() Kind     { return KindTCPListener }
func (l *TCPListener) release() error { return l.l.Close() }

// Addr returns the listening address.
func (l *TCPListener) Addr() net.Addr { return l.l.Addr() }

// TCPStream is a connected TCP socket.
type TCPStream struct {
	c *net.TCPConn
}

func (s *TCPStream) Kind() Kind     { return KindTCPStream }
func (s *TCPStream) release() error { return s.c.Close() }

// ChildStdin is the write end of a pipe feeding a child's standard input.
type ChildStdin struct {
	f *os.File
}

func (c *ChildStdin) Kind() Kind     { return KindChildStdin }
func (c *ChildStdin) release() error { return c.f.Close() }

// ChildStdout is the read end of a pipe carrying a child's standard output.
type ChildStdout struct {
	f *os.File
}

func (c *ChildStdout) Kind() Kind     { return KindChildStdout }
func (c *ChildStdout) release() error { return c.f.Close() }

// ChildStderr is the read end of a pipe carrying a child's standard error.
type ChildStderr struct {
	f *os.File
}

func (c *ChildStderr) Kind() Kind     { return KindChildStderr }
func (c *ChildStderr) release() error { return c.f.Close() }

// reader returns the readable side of r, or nil if r cannot be read.
func reader(r Repr) io.Reader {
	switch v := r.(type) {
	case *FsFile:
		return v.f
	case *Stdin:
		return v.r
	case *TCPStream:
		return v.c
	case *HTTPBody:
		return v
	case *ChildStdout:
		return v.f
	case *ChildStderr:
		return v.f
	case *Stdout, *Stderr, *TCPListener, *ReplSession, *Child, *ChildStdin:
		return nil
	}
	return nil
}

// writer returns the writable side of r, or nil if r cannot be written.
func writer(r Repr) io.Writer {
	switch v := r.(type) {
	case *FsFile:
		return v.f
	case *Stdout:
		return v.w
	case *Stderr:
		return v.w
	case *TCPStream:
		return v.c
	case *ChildStdin:
		return v.f
	case *Stdin, *TCPListener, *HTTPBody, *ReplSession, *Child, *ChildStdout, *ChildStderr:
		return nil
	}
	return nil
}
