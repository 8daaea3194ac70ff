package resource

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/wippyai/hostres/errors"
)

// ShutdownMode selects which half of a TCP stream to shut down.
type ShutdownMode uint8

const (
	ShutdownRead ShutdownMode = iota
	ShutdownWrite
	ShutdownBoth
)

// Accepted is the result of accepting on a listener. The connection is not
// registered; callers add it with AddTCPStream if they want an id for it.
type Accepted struct {
	Conn       *net.TCPConn
	RemoteAddr net.Addr
}

// aLongTimeAgo is a deadline in the past, used to interrupt blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// interrupter aborts a blocked operation by moving its deadline into the past.
type interrupter struct {
	set func(time.Time) error
}

func (i *interrupter) interrupt() { _ = i.set(aLongTimeAgo) }
func (i *interrupter) reset()     { _ = i.set(time.Time{}) }

type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Read reads up to len(buf) bytes from id. End of stream resolves to io.EOF
// with n == 0. Panics if id is unknown or not readable.
func (m *Manager) Read(id ID, buf []byte) *Future[int] {
	return m.read(id, m.mustLookup(errors.PhaseDispatch, id), buf)
}

// Write writes buf to id. Panics if id is unknown or not writable.
func (m *Manager) Write(id ID, buf []byte) *Future[int] {
	return m.write(id, m.mustLookup(errors.PhaseDispatch, id), buf)
}

// Accept waits for a connection on a listener id. Panics if id is unknown
// or not a listener.
func (m *Manager) Accept(id ID) *Future[Accepted] {
	return m.accept(id, m.mustLookup(errors.PhaseDispatch, id))
}

// Shutdown closes one or both halves of a TCP stream. Panics if id is
// unknown or not a stream.
func (m *Manager) Shutdown(id ID, how ShutdownMode) error {
	repr := m.mustLookup(errors.PhaseDispatch, id)
	s, ok := repr.(*TCPStream)
	if !ok {
		panic(errors.Unsupported(errors.PhaseDispatch, uint32(id), repr.Kind().String(), "shutdown"))
	}

	var err error
	switch how {
	case ShutdownRead:
		err = s.c.CloseRead()
	case ShutdownWrite:
		err = s.c.CloseWrite()
	default:
		err = multierr.Append(s.c.CloseRead(), s.c.CloseWrite())
	}
	if err != nil {
		return errors.IO(errors.PhaseDispatch, uint32(id), s.Kind().String(), err)
	}
	return nil
}

func (m *Manager) read(id ID, repr Repr, buf []byte) *Future[int] {
	r := reader(repr)
	if r == nil {
		panic(errors.Unsupported(errors.PhaseDispatch, uint32(id), repr.Kind().String(), "read"))
	}
	var intr *interrupter
	if d, ok := r.(readDeadliner); ok {
		intr = &interrupter{set: d.SetReadDeadline}
	}
	return async(m, id, repr.Kind(), intr, func() (int, error) {
		n, err := r.Read(buf)
		if n > 0 && err == io.EOF {
			// Report the data now; the next read observes EOF again.
			err = nil
		}
		return n, err
	})
}

func (m *Manager) write(id ID, repr Repr, buf []byte) *Future[int] {
	w := writer(repr)
	if w == nil {
		panic(errors.Unsupported(errors.PhaseDispatch, uint32(id), repr.Kind().String(), "write"))
	}
	var intr *interrupter
	if d, ok := w.(writeDeadliner); ok {
		intr = &interrupter{set: d.SetWriteDeadline}
	}
	return async(m, id, repr.Kind(), intr, func() (int, error) {
		return w.Write(buf)
	})
}

func (m *Manager) accept(id ID, repr Repr) *Future[Accepted] {
	l, ok := repr.(*TCPListener)
	if !ok {
		panic(errors.Unsupported(errors.PhaseDispatch, uint32(id), repr.Kind().String(), "accept"))
	}
	return async(m, id, l.Kind(), &interrupter{set: l.l.SetDeadline}, func() (Accepted, error) {
		c, err := l.l.AcceptTCP()
		if err != nil {
			return Accepted{}, err
		}
		return Accepted{Conn: c, RemoteAddr: c.RemoteAddr()}, nil
	})
}

type opState uint8

const (
	opRunning opState = iota
	opFinished
	opCanceled
)

// async runs op off the worker and caller goroutines. If intr is non-nil the
// returned future is cancelable; a canceled operation resolves with a
// canceled error and the primitive's deadline is cleared so it stays usable.
// Cancel and completion are serialized on mu, so a cancel that arrives after
// op returned never touches the deadline.
func async[T any](m *Manager, id ID, kind Kind, intr *interrupter, op func() (T, error)) *Future[T] {
	f := newFuture[T]()
	ctx, stop := context.WithCancel(context.Background())
	var (
		mu    sync.Mutex
		state = opRunning
	)
	f.setCancel(func() {
		mu.Lock()
		defer mu.Unlock()
		if state != opRunning {
			return
		}
		state = opCanceled
		stop()
		if intr != nil {
			intr.interrupt()
		}
	})

	go func() {
		defer stop()
		if m.inflight != nil {
			if err := m.inflight.Acquire(ctx, 1); err != nil {
				mu.Lock()
				state = opFinished
				mu.Unlock()
				var zero T
				f.resolve(zero, errors.Canceled(errors.PhaseDispatch, uint32(id), err))
				return
			}
			defer m.inflight.Release(1)
		}

		v, err := op()
		mu.Lock()
		canceled := state == opCanceled
		state = opFinished
		mu.Unlock()

		if canceled && intr != nil {
			intr.reset()
			if err != nil {
				f.resolve(v, errors.Canceled(errors.PhaseDispatch, uint32(id), err))
				return
			}
		}
		f.resolve(v, wrapIO(errors.PhaseDispatch, id, kind, err))
	}()
	return f
}

// wrapIO tags err with the resource it came from. io.EOF passes through
// unchanged so callers can compare against it.
func wrapIO(phase errors.Phase, id ID, kind Kind, err error) error {
	if err == nil || stderrors.Is(err, io.EOF) {
		return err
	}
	return errors.IO(phase, uint32(id), kind.String(), err)
}
