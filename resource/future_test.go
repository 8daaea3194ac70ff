package resource

import (
	"context"
	stderrors "errors"
	"testing"
	"time"
)

func TestFuture_Resolved(t *testing.T) {
	f := Resolved(42, nil)
	if !f.Ready() {
		t.Fatal("expected resolved future to be ready")
	}
	v, ready, err := f.Poll()
	if !ready || err != nil || v != 42 {
		t.Fatalf("Poll = (%d, %v, %v)", v, ready, err)
	}
}

func TestFuture_ResolveOnce(t *testing.T) {
	f := newFuture[string]()
	f.resolve("first", nil)
	f.resolve("second", stderrors.New("ignored"))

	v, err := f.Wait(context.Background())
	if err != nil || v != "first" {
		t.Fatalf("expected first resolution to win, got (%q, %v)", v, err)
	}
}

func TestFuture_WaitContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Wait(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if f.Ready() {
		t.Fatal("wait timeout must not resolve the future")
	}
}

func TestFuture_Cancel(t *testing.T) {
	f := newFuture[int]()
	called := 0
	f.setCancel(func() { called++ })

	f.Cancel()
	if called != 1 {
		t.Fatalf("expected cancel hook once, got %d", called)
	}

	f.resolve(1, nil)
	f.Cancel()
	if called != 1 {
		t.Fatal("cancel after resolution must be a no-op")
	}
}

func TestThen(t *testing.T) {
	src := newFuture[int]()
	out := Then(src, func(v int) (int, error) { return v * 2, nil })
	if out.Ready() {
		t.Fatal("expected pending result")
	}
	src.resolve(21, nil)

	v, err := out.Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("Then = (%d, %v), want 42", v, err)
	}

	boom := stderrors.New("boom")
	failed := Then(Resolved(0, boom), func(int) (int, error) {
		t.Fatal("fn must not run on failure")
		return 0, nil
	})
	if _, err := failed.Wait(context.Background()); err != boom {
		t.Fatalf("expected propagated error, got %v", err)
	}
}

func TestPoll(t *testing.T) {
	a := newFuture[int]()
	b := newFuture[int]()

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.resolve(1, nil)
	}()

	ready := Poll(context.Background(), a, b)
	if len(ready) != 1 || ready[0] != 1 {
		t.Fatalf("expected [1], got %v", ready)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if ready := Poll(ctx, a); len(ready) != 0 {
		t.Fatalf("expected no ready pollables, got %v", ready)
	}
}
