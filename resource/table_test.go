package resource

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/hostres/errors"
)

// expectViolation runs fn and fails unless it panics with a contract
// violation of the given kind.
func expectViolation(t *testing.T, kind errors.Kind, fn func()) *errors.Error {
	t.Helper()
	var got *errors.Error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected %s panic, got none", kind)
			}
			e, ok := errors.FromPanic(r)
			if !ok {
				t.Fatalf("expected *errors.Error violation, got %T: %v", r, r)
			}
			got = e
		}()
		fn()
	}()
	if got.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got.Kind, got)
	}
	return got
}

type recordingObserver struct {
	events []Event
}

func (o *recordingObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func newTestTable(observers ...Observer) *table {
	return newTable(&Stdin{}, &Stdout{}, &Stderr{}, zap.NewNop(), observers)
}

func TestAllocator_Sequence(t *testing.T) {
	a := newAllocator()
	for want := ID(3); want < 10; want++ {
		if got := a.alloc(); got != want {
			t.Fatalf("alloc: expected %d, got %d", want, got)
		}
	}
}

func TestAllocator_Exhausted(t *testing.T) {
	a := &allocator{next: math.MaxUint32}
	if got := a.alloc(); got != math.MaxUint32 {
		t.Fatalf("expected last id %d, got %d", uint32(math.MaxUint32), got)
	}
	expectViolation(t, errors.KindExhausted, func() { a.alloc() })
}

func TestTable_FreshSnapshot(t *testing.T) {
	tbl := newTestTable()

	got := tbl.snapshot()
	want := []Entry{
		{ID: StdinID, Label: "stdin"},
		{ID: StdoutID, Label: "stdout"},
		{ID: StderrID, Label: "stderr"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestTable_IDsNeverReused(t *testing.T) {
	tbl := newTestTable()

	first := tbl.insert(&FsFile{}).RID
	if first != 3 {
		t.Fatalf("expected first id 3, got %d", first)
	}
	if _, ok := tbl.remove(first); !ok {
		t.Fatal("remove failed")
	}
	if _, ok := tbl.remove(first); ok {
		t.Fatal("expected second remove to fail")
	}

	second := tbl.insert(&FsFile{}).RID
	if second != 4 {
		t.Fatalf("expected id 4 after removal, got %d", second)
	}
	if tbl.len() != 4 {
		t.Fatalf("expected 4 entries, got %d", tbl.len())
	}
}

func TestTable_SnapshotOrdered(t *testing.T) {
	tbl := newTestTable()
	for i := 0; i < 50; i++ {
		tbl.insert(&TCPStream{})
	}

	entries := tbl.snapshot()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			t.Fatalf("snapshot not ordered at %d: %v", i, entries[i-1:i+1])
		}
	}
	if last := entries[len(entries)-1]; last.Label != "tcpStream" {
		t.Errorf("expected tcpStream label, got %q", last.Label)
	}
}

func TestTable_DuplicatePanics(t *testing.T) {
	tbl := newTestTable()
	e := expectViolation(t, errors.KindDuplicate, func() { tbl.put(StdoutID, &Stdout{}) })
	if e.RID != uint32(StdoutID) {
		t.Errorf("expected rid %d, got %d", StdoutID, e.RID)
	}
}

func TestTable_Observer(t *testing.T) {
	obs := &recordingObserver{}
	tbl := newTestTable(obs)

	id := tbl.insert(&FsFile{}).RID
	tbl.remove(id)
	tbl.drain()

	// 3 stdio + insert + remove + 3 drained
	if len(obs.events) != 8 {
		t.Fatalf("expected 8 events, got %d: %v", len(obs.events), obs.events)
	}
	if e := obs.events[3]; e.Type != EventCreated || e.ID != id || e.Kind != KindFsFile {
		t.Errorf("unexpected create event: %+v", e)
	}
	if e := obs.events[4]; e.Type != EventDropped || e.ID != id {
		t.Errorf("unexpected drop event: %+v", e)
	}
	if tbl.len() != 0 {
		t.Errorf("expected empty table after drain, got %d", tbl.len())
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindStdin, "stdin"},
		{KindFsFile, "fsFile"},
		{KindTCPListener, "tcpListener"},
		{KindHTTPBody, "httpBody"},
		{KindRepl, "repl"},
		{KindChildStderr, "childStderr"},
		{Kind(200), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
