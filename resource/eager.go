package resource

import (
	"github.com/wippyai/hostres/errors"
)

// EagerRead is Read with a synchronous first attempt for TCP streams. When
// data is already buffered in the kernel the returned future is resolved
// before EagerRead returns; otherwise it falls back to Read. Results are
// identical to Read either way.
func (m *Manager) EagerRead(id ID, buf []byte) *Future[int] {
	repr := m.mustLookup(errors.PhaseEager, id)
	if s, ok := repr.(*TCPStream); ok && eagerSupported {
		n, done, err := tryRead(s.c, buf)
		m.metrics.eagerAttempt("read", done)
		if done {
			return Resolved(n, wrapIO(errors.PhaseEager, id, s.Kind(), err))
		}
	}
	return m.read(id, repr, buf)
}

// EagerWrite is Write with a synchronous first attempt for TCP streams.
// A partial eager write continues asynchronously. The resolved count
// includes the eagerly written prefix, also when the remainder fails.
func (m *Manager) EagerWrite(id ID, buf []byte) *Future[int] {
	repr := m.mustLookup(errors.PhaseEager, id)
	if s, ok := repr.(*TCPStream); ok && eagerSupported {
		n, done, err := tryWrite(s.c, buf)
		m.metrics.eagerAttempt("write", done)
		if done {
			if err != nil || n == len(buf) {
				return Resolved(n, wrapIO(errors.PhaseEager, id, s.Kind(), err))
			}
			return continueWrite(n, m.write(id, repr, buf[n:]))
		}
	}
	return m.write(id, repr, buf)
}

// EagerAccept is Accept with a synchronous first attempt.
func (m *Manager) EagerAccept(id ID) *Future[Accepted] {
	repr := m.mustLookup(errors.PhaseEager, id)
	if l, ok := repr.(*TCPListener); ok && eagerSupported {
		c, done, err := tryAccept(l.l)
		m.metrics.eagerAttempt("accept", done)
		if done {
			if err != nil {
				return Resolved(Accepted{}, wrapIO(errors.PhaseEager, id, l.Kind(), err))
			}
			return Resolved(Accepted{Conn: c, RemoteAddr: c.RemoteAddr()}, nil)
		}
	}
	return m.accept(id, repr)
}

// continueWrite resolves to the eager prefix n plus whatever rest wrote,
// keeping rest's error.
func continueWrite(n int, rest *Future[int]) *Future[int] {
	out := newFuture[int]()
	out.setCancel(rest.Cancel)
	go func() {
		k, err := rest.await()
		out.resolve(n+k, err)
	}()
	return out
}
