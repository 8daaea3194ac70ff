//go:build unix

package resource

import (
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/hostres/errors"
)

func spawn(t *testing.T, cfg SpawnConfig, name string, args ...string) *SpawnedChild {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	sc, err := Spawn(exec.Command(name, args...), cfg)
	require.NoError(t, err)
	return sc
}

func readAll(t *testing.T, m *Manager, rid ID) string {
	t.Helper()
	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := m.Read(rid, buf).Wait(context.Background())
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return string(out)
		}
		require.NoError(t, err)
	}
}

func TestAddChild_StdoutOnly(t *testing.T) {
	m, _ := newTestManager(t)
	sc := spawn(t, SpawnConfig{Stdin: StdioNull, Stdout: StdioPiped, Stderr: StdioNull}, "echo", "hi")

	res := wait(t, m.AddChild(sc))
	assert.Nil(t, res.StdinRID)
	assert.Nil(t, res.StderrRID)
	require.NotNil(t, res.StdoutRID)
	assert.Equal(t, ID(3), *res.StdoutRID)
	assert.Equal(t, ID(4), res.ChildRID)

	assert.Equal(t, []Entry{
		{ID: 0, Label: "stdin"},
		{ID: 1, Label: "stdout"},
		{ID: 2, Label: "stderr"},
		{ID: 3, Label: "childStdout"},
		{ID: 4, Label: "child"},
	}, wait(t, m.TableEntries()))

	assert.Equal(t, "hi\n", readAll(t, m, *res.StdoutRID))

	status, err := m.ChildStatus(res.ChildRID)
	require.NoError(t, err)
	st := wait(t, status)
	assert.True(t, st.Success)
	assert.Equal(t, 0, st.Code)
}

func TestAddChild_AllPiped(t *testing.T) {
	m, _ := newTestManager(t)
	sc := spawn(t, SpawnConfig{Stdin: StdioPiped, Stdout: StdioPiped, Stderr: StdioPiped}, "cat")

	res := wait(t, m.AddChild(sc))
	require.NotNil(t, res.StdinRID)
	require.NotNil(t, res.StdoutRID)
	require.NotNil(t, res.StderrRID)
	assert.Equal(t, []ID{3, 4, 5, 6}, []ID{*res.StdinRID, *res.StdoutRID, *res.StderrRID, res.ChildRID})

	n := wait(t, m.Write(*res.StdinRID, []byte("round trip")))
	assert.Equal(t, 10, n)
	require.NoError(t, m.CloseResource(*res.StdinRID))

	assert.Equal(t, "round trip", readAll(t, m, *res.StdoutRID))
	assert.Equal(t, "", readAll(t, m, *res.StderrRID))

	expectViolation(t, errors.KindUnsupported, func() { m.Read(res.ChildRID, make([]byte, 1)) })
}

func TestChildStatus_ExitCode(t *testing.T) {
	m, _ := newTestManager(t)
	sc := spawn(t, SpawnConfig{Stdin: StdioNull, Stdout: StdioNull, Stderr: StdioNull}, "sh", "-c", "exit 7")
	res := wait(t, m.AddChild(sc))

	first, err := m.ChildStatus(res.ChildRID)
	require.NoError(t, err)
	second, err := m.ChildStatus(res.ChildRID)
	require.NoError(t, err)
	assert.Same(t, first, second, "status is awaited once")

	st := wait(t, first)
	assert.False(t, st.Success)
	assert.Equal(t, 7, st.Code)
	assert.Equal(t, 0, st.Signal)
}

func TestChildStatus_Signal(t *testing.T) {
	m, _ := newTestManager(t)
	sc := spawn(t, SpawnConfig{Stdin: StdioNull, Stdout: StdioNull, Stderr: StdioNull}, "sleep", "30")
	res := wait(t, m.AddChild(sc))

	require.NoError(t, sc.Cmd.Process.Kill())
	status, err := m.ChildStatus(res.ChildRID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := status.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, st.Success)
	assert.Equal(t, 9, st.Signal)
	assert.Equal(t, -1, st.Code)
}

func TestChildStatus_BadResource(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.ChildStatus(StdoutID)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindBadResource, e.Kind)
	assert.Equal(t, "stdout", e.Label)
	assert.False(t, e.Fatal())

	_, err = m.ChildStatus(500)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindBadResource, e.Kind)
	assert.Equal(t, uint32(500), e.RID)
}

func TestSpawn_MissingBinary(t *testing.T) {
	_, err := Spawn(exec.Command("/nonexistent/binary"), SpawnConfig{Stdout: StdioPiped})
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.PhaseSpawn, e.Phase)
	assert.Equal(t, errors.KindIO, e.Kind)
}
