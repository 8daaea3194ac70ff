//go:build unix

package resource

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/wippyai/hostres/errors"
)

func TestEagerRead_BufferedDataResolvesImmediately(t *testing.T) {
	m, _ := newTestManager(t)
	client, server := tcpPair(t)
	rid := wait(t, m.AddTCPStream(server)).RID

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	buf := make([]byte, 16)
	f := m.EagerRead(rid, buf)
	assert.True(t, f.Ready(), "buffered data completes eagerly")
	n := wait(t, f)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().eager.WithLabelValues("read", "hit")))
}

func TestEagerRead_FallsBackWhenEmpty(t *testing.T) {
	m, _ := newTestManager(t)
	client, server := tcpPair(t)
	rid := wait(t, m.AddTCPStream(server)).RID

	buf := make([]byte, 16)
	f := m.EagerRead(rid, buf)
	assert.False(t, f.Ready())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().eager.WithLabelValues("read", "fallback")))

	_, err := client.Write([]byte("late"))
	require.NoError(t, err)
	n := wait(t, f)
	assert.Equal(t, "late", string(buf[:n]))
}

func TestEagerRead_EOF(t *testing.T) {
	m, _ := newTestManager(t)
	client, server := tcpPair(t)
	rid := wait(t, m.AddTCPStream(server)).RID
	require.NoError(t, client.CloseWrite())

	// Either path must report EOF the same way.
	n, err := m.EagerRead(rid, make([]byte, 8)).Wait(context.Background())
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestEagerWrite_MatchesGenericWrite(t *testing.T) {
	m, _ := newTestManager(t)
	client, server := tcpPair(t)
	rid := wait(t, m.AddTCPStream(server)).RID

	small := []byte("eager")
	large := bytes.Repeat([]byte("x"), 8<<20)

	done := make(chan []byte, 1)
	go func() {
		got, _ := io.ReadAll(client)
		done <- got
	}()

	n := wait(t, m.EagerWrite(rid, small))
	assert.Equal(t, len(small), n)
	n = wait(t, m.EagerWrite(rid, large))
	assert.Equal(t, len(large), n, "partial eager writes continue until the whole buffer is sent")
	n = wait(t, m.Write(rid, small))
	assert.Equal(t, len(small), n)
	require.NoError(t, m.Shutdown(rid, ShutdownWrite))

	got := <-done
	assert.Equal(t, len(small)*2+len(large), len(got))
	assert.Equal(t, small, got[:len(small)])
}

func TestEagerWrite_PartialThenFailureKeepsCount(t *testing.T) {
	m, _ := newTestManager(t)
	client, server := tcpPair(t)
	rid := wait(t, m.AddTCPStream(server)).RID

	large := bytes.Repeat([]byte("x"), 8<<20)
	f := m.EagerWrite(rid, large)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().eager.WithLabelValues("write", "hit")),
		"first chunk went out eagerly")
	time.Sleep(20 * time.Millisecond)
	require.False(t, f.Ready(), "remainder blocks while the peer is not reading")

	// Reset the connection so the remainder fails.
	require.NoError(t, client.SetLinger(0))
	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := f.Wait(ctx)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindIO, e.Kind)
	assert.Greater(t, n, 0, "eagerly written prefix is reported")
	assert.Less(t, n, len(large))
}

func TestEagerAccept(t *testing.T) {
	m, _ := newTestManager(t)
	l := listenTCP(t)
	rid := wait(t, m.AddTCPListener(l)).RID

	f := m.EagerAccept(rid)
	assert.False(t, f.Ready(), "no pending connection")

	c, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	acc := wait(t, f)
	acc.Conn.Close()

	c2, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer c2.Close()
	time.Sleep(20 * time.Millisecond)

	f = m.EagerAccept(rid)
	require.True(t, f.Ready(), "pending connection is accepted eagerly")
	acc = wait(t, f)
	defer acc.Conn.Close()
	assert.Equal(t, c2.LocalAddr().String(), acc.RemoteAddr.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().eager.WithLabelValues("accept", "hit")))

	rc, err := acc.Conn.SyscallConn()
	require.NoError(t, err)
	var flags int
	require.NoError(t, rc.Control(func(fd uintptr) {
		flags, err = unix.FcntlInt(fd, unix.F_GETFD, 0)
	}))
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.FD_CLOEXEC, "accepted fd is close-on-exec")

	// The eagerly accepted connection carries data like any other.
	_, err = acc.Conn.Write([]byte("hi"))
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = io.ReadFull(c2, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf))
}

func TestEagerAccept_ThroughManagerRegistration(t *testing.T) {
	m, _ := newTestManager(t)
	l := listenTCP(t)
	rid := wait(t, m.AddTCPListener(l)).RID

	c, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	time.Sleep(20 * time.Millisecond)

	acc := wait(t, m.EagerAccept(rid))
	sid := wait(t, m.AddTCPStream(acc.Conn)).RID

	_, err = c.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n := wait(t, m.EagerRead(sid, buf))
	assert.Equal(t, "ping", string(buf[:n]))
	require.NoError(t, m.CloseResource(sid))
}

func TestEager_NonTCPTakesGenericPath(t *testing.T) {
	m, s := newTestManager(t)
	s.in.WriteString("abc")

	buf := make([]byte, 3)
	n := wait(t, m.EagerRead(StdinID, buf))
	assert.Equal(t, "abc", string(buf[:n]))
	n = wait(t, m.EagerWrite(StdoutID, []byte("out")))
	assert.Equal(t, 3, n)
	assert.Equal(t, "out", s.out.String())
	assert.Equal(t, 0, testutil.CollectAndCount(m.Metrics().eager))
}
