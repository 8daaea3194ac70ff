package resource

import (
	stderrors "errors"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/hostres/errors"
)

// StdioMode selects how a child's standard stream is wired.
type StdioMode uint8

const (
	// StdioInherit shares the host process stream.
	StdioInherit StdioMode = iota
	// StdioPiped creates a pipe whose host end is registered in the table.
	StdioPiped
	// StdioNull connects the stream to the null device.
	StdioNull
)

// SpawnConfig wires the three standard streams of a child.
type SpawnConfig struct {
	Stdin  StdioMode
	Stdout StdioMode
	Stderr StdioMode
}

// SpawnedChild is a started process and the host ends of its piped streams.
// A nil pipe means the stream was not piped.
type SpawnedChild struct {
	Cmd    *exec.Cmd
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Spawn starts cmd with its streams wired per cfg. Any Stdin, Stdout or
// Stderr already set on cmd is overwritten.
func Spawn(cmd *exec.Cmd, cfg SpawnConfig) (*SpawnedChild, error) {
	sc := &SpawnedChild{Cmd: cmd}
	var childEnds, hostEnds []*os.File

	fail := func(err error) (*SpawnedChild, error) {
		cerr := closeFiles(childEnds)
		cerr = multierr.Append(cerr, closeFiles(hostEnds))
		return nil, errors.New(errors.PhaseSpawn, errors.KindIO).
			Cause(multierr.Append(err, cerr)).
			Detail("spawn %s", cmd.Path).
			Build()
	}

	stdin, host, err := wireStdio(cfg.Stdin, os.Stdin, false, &childEnds, &hostEnds)
	if err != nil {
		return fail(err)
	}
	cmd.Stdin, sc.Stdin = nil, host
	if stdin != nil {
		cmd.Stdin = stdin
	}

	stdout, host, err := wireStdio(cfg.Stdout, os.Stdout, true, &childEnds, &hostEnds)
	if err != nil {
		return fail(err)
	}
	cmd.Stdout, sc.Stdout = nil, host
	if stdout != nil {
		cmd.Stdout = stdout
	}

	stderr, host, err := wireStdio(cfg.Stderr, os.Stderr, true, &childEnds, &hostEnds)
	if err != nil {
		return fail(err)
	}
	cmd.Stderr, sc.Stderr = nil, host
	if stderr != nil {
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		return fail(err)
	}
	if err := closeFiles(childEnds); err != nil {
		Logger().Warn("close child pipe ends", zap.Error(err))
	}
	return sc, nil
}

// wireStdio returns the file handed to the child and the host end. Either
// may be nil. hostReads is true for output streams.
func wireStdio(mode StdioMode, inherit *os.File, hostReads bool, childEnds, hostEnds *[]*os.File) (child, host *os.File, err error) {
	switch mode {
	case StdioPiped:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, err
		}
		if hostReads {
			child, host = w, r
		} else {
			child, host = r, w
		}
		*childEnds = append(*childEnds, child)
		*hostEnds = append(*hostEnds, host)
		return child, host, nil
	case StdioNull:
		return nil, nil, nil
	default:
		return inherit, nil, nil
	}
}

func closeFiles(fs []*os.File) error {
	var err error
	for _, f := range fs {
		err = multierr.Append(err, f.Close())
	}
	return err
}

// ExitStatus is the outcome of a finished child. Signal is non-zero when the
// child was terminated by a signal, in which case Code is -1.
type ExitStatus struct {
	Code    int
	Signal  int
	Success bool
}

// Child is a spawned process. Its exit status is awaited at most once; every
// ChildStatus call shares the same future.
type Child struct {
	cmd    *exec.Cmd
	rid    ID
	once   sync.Once
	status *Future[ExitStatus]
}

func newChild(cmd *exec.Cmd) *Child {
	return &Child{cmd: cmd}
}

func (c *Child) Kind() Kind { return KindChild }

// Pid returns the operating system process id.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// release detaches from the child. The process is not killed; it is reaped
// in the background so it does not linger as a zombie.
func (c *Child) release() error {
	c.wait()
	return nil
}

func (c *Child) wait() *Future[ExitStatus] {
	c.once.Do(func() {
		c.status = newFuture[ExitStatus]()
		go func() {
			err := c.cmd.Wait()
			var exitErr *exec.ExitError
			if err != nil && !stderrors.As(err, &exitErr) {
				c.status.resolve(ExitStatus{}, errors.IO(errors.PhaseChild, uint32(c.rid), c.Kind().String(), err))
				return
			}
			c.status.resolve(exitStatus(c.cmd.ProcessState), nil)
		}()
	})
	return c.status
}

func exitStatus(ps *os.ProcessState) ExitStatus {
	return ExitStatus{
		Code:    ps.ExitCode(),
		Signal:  exitSignal(ps),
		Success: ps.Success(),
	}
}

// ChildStatus returns a future resolving to the exit status of the child
// registered under id. Unlike the dispatch operations, an unknown id or a
// non-child resource is reported as a bad_resource error rather than a panic.
func (m *Manager) ChildStatus(id ID) (*Future[ExitStatus], error) {
	repr, ok := m.lookup(id)
	if !ok {
		return nil, errors.BadResource(errors.PhaseChild, uint32(id), "")
	}
	c, ok := repr.(*Child)
	if !ok {
		return nil, errors.BadResource(errors.PhaseChild, uint32(id), repr.Kind().String())
	}
	return c.wait(), nil
}
