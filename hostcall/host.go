package hostcall

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/hostres/errors"
	"github.com/wippyai/hostres/resource"
)

// ModuleName is the import module name guests use.
const ModuleName = "hostres"

// Error codes returned in place of a result.
const (
	ErrIO          = -1
	ErrBadResource = -2
	ErrCanceled    = -3
	ErrMemory      = -4 // out-of-bounds pointer or output buffer too small
	ErrEOF         = -5 // readline only; read reports EOF as 0
)

// Host binds a Manager to a wazero runtime. Guest memory is only touched
// while a host call is running: reads land in host buffers and are copied in
// on completion, writes are copied out before dispatch.
type Host struct {
	m   *resource.Manager
	log *zap.Logger

	mu sync.Mutex
	// Bytes read by operations the guest stopped waiting for, served by
	// the next read on the same id.
	pending map[resource.ID][]byte
	// Lines that did not fit the guest's buffer, served by the next readline.
	lines map[resource.ID]string
}

// New creates a Host serving m.
func New(m *resource.Manager) *Host {
	return &Host{
		m:       m,
		log:     Logger(),
		pending: make(map[resource.ID][]byte),
		lines:   make(map[resource.ID]string),
	}
}

// Instantiate registers the host module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	builder := r.NewHostModuleBuilder(ModuleName)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI64(h.read(ctx, mod.Memory(), rid(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i64}).
		Export("read")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI64(h.write(ctx, mod.Memory(), rid(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])))
		}), []api.ValueType{i32, i32, i32}, []api.ValueType{i64}).
		Export("write")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI64(h.accept(ctx, rid(stack[0])))
		}), []api.ValueType{i32}, []api.ValueType{i64}).
		Export("accept")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(h.shutdown(rid(stack[0]), api.DecodeU32(stack[1])))
		}), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("shutdown")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(h.close(rid(stack[0])))
		}), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("close")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			stack[0] = api.EncodeI64(h.readline(mod.Memory(), rid(stack[0]),
				api.DecodeU32(stack[1]), api.DecodeU32(stack[2]),
				api.DecodeU32(stack[3]), api.DecodeU32(stack[4])))
		}), []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i64}).
		Export("readline")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI64(h.childStatus(ctx, rid(stack[0])))
		}), []api.ValueType{i32}, []api.ValueType{i64}).
		Export("child_status")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
			stack[0] = api.EncodeI32(h.resourceCount(ctx))
		}), nil, []api.ValueType{i32}).
		Export("resource_count")

	return builder.Instantiate(ctx)
}

func rid(v uint64) resource.ID {
	return resource.ID(api.DecodeU32(v))
}

func (h *Host) read(ctx context.Context, mem api.Memory, id resource.ID, ptr, n uint32) int64 {
	if _, ok := view(mem, ptr, n); !ok {
		return ErrMemory
	}
	if data := h.takePending(id, int(n)); data != nil {
		if !mem.Write(ptr, data) {
			return ErrMemory
		}
		return int64(len(data))
	}

	buf := make([]byte, n)
	f := h.m.EagerRead(id, buf)
	got, ok, err := settle(ctx, f)
	if !ok {
		go h.salvage(id, buf, f)
		return h.fail("read", id, errors.Canceled(errors.PhaseHost, uint32(id), ctx.Err()))
	}
	if err == io.EOF {
		return 0
	}
	if err != nil {
		return h.fail("read", id, err)
	}
	if !mem.Write(ptr, buf[:got]) {
		return ErrMemory
	}
	return int64(got)
}

// salvage keeps what an abandoned read eventually returns.
func (h *Host) salvage(id resource.ID, buf []byte, f *resource.Future[int]) {
	f.Block(context.Background())
	got, _, _ := f.Poll()
	if got <= 0 {
		return
	}
	h.mu.Lock()
	h.pending[id] = append(h.pending[id], buf[:got]...)
	h.mu.Unlock()
}

// takePending returns up to n salvaged bytes for id, or nil.
func (h *Host) takePending(id resource.ID, n int) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	data := h.pending[id]
	if len(data) == 0 || n == 0 {
		return nil
	}
	if n > len(data) {
		n = len(data)
	}
	out := data[:n:n]
	if rest := data[n:]; len(rest) > 0 {
		h.pending[id] = rest
	} else {
		delete(h.pending, id)
	}
	return out
}

func (h *Host) write(ctx context.Context, mem api.Memory, id resource.ID, ptr, n uint32) int64 {
	src, ok := view(mem, ptr, n)
	if !ok {
		return ErrMemory
	}
	buf := append([]byte(nil), src...)
	got, err := await(ctx, id, h.m.EagerWrite(id, buf))
	if err != nil {
		return h.fail("write", id, err)
	}
	return int64(got)
}

// accept registers the accepted connection and returns its id.
func (h *Host) accept(ctx context.Context, id resource.ID) int64 {
	f := h.m.EagerAccept(id)
	acc, ok, err := settle(ctx, f)
	if !ok {
		go func() {
			f.Block(context.Background())
			if late, _, err := f.Poll(); err == nil && late.Conn != nil {
				_ = late.Conn.Close()
			}
		}()
		return h.fail("accept", id, errors.Canceled(errors.PhaseHost, uint32(id), ctx.Err()))
	}
	if err != nil {
		return h.fail("accept", id, err)
	}
	res, err := await(ctx, id, h.m.AddTCPStream(acc.Conn))
	if err != nil {
		_ = acc.Conn.Close()
		return h.fail("accept", id, err)
	}
	return int64(res.RID)
}

func (h *Host) shutdown(id resource.ID, how uint32) int32 {
	if err := h.m.Shutdown(id, resource.ShutdownMode(how)); err != nil {
		return int32(h.fail("shutdown", id, err))
	}
	return 0
}

func (h *Host) close(id resource.ID) int32 {
	if err := h.m.CloseResource(id); err != nil {
		return int32(h.fail("close", id, err))
	}
	h.mu.Lock()
	delete(h.pending, id)
	delete(h.lines, id)
	h.mu.Unlock()
	return 0
}

// readline prompts on id and copies one line to outPtr. A line longer than
// outCap yields ErrMemory and is returned by the next readline on id,
// without prompting again.
func (h *Host) readline(mem api.Memory, id resource.ID, promptPtr, promptLen, outPtr, outCap uint32) int64 {
	prompt, ok := view(mem, promptPtr, promptLen)
	if !ok {
		return ErrMemory
	}

	h.mu.Lock()
	line, held := h.lines[id]
	delete(h.lines, id)
	h.mu.Unlock()

	if !held {
		var err error
		line, err = h.m.Readline(id, string(prompt))
		if err == io.EOF {
			return ErrEOF
		}
		if err != nil {
			return h.fail("readline", id, err)
		}
	}
	if uint32(len(line)) > outCap || !mem.Write(outPtr, []byte(line)) {
		h.mu.Lock()
		h.lines[id] = line
		h.mu.Unlock()
		return ErrMemory
	}
	return int64(len(line))
}

// childStatus blocks until the child exits. A signaled child reports
// 128 plus the signal number.
func (h *Host) childStatus(ctx context.Context, id resource.ID) int64 {
	f, err := h.m.ChildStatus(id)
	if err != nil {
		return h.fail("child_status", id, err)
	}
	st, err := await(ctx, id, f)
	if err != nil {
		return h.fail("child_status", id, err)
	}
	if st.Signal != 0 {
		return int64(128 + st.Signal)
	}
	return int64(st.Code)
}

func (h *Host) resourceCount(ctx context.Context) int32 {
	entries, err := await(ctx, 0, h.m.TableEntries())
	if err != nil {
		return int32(h.fail("resource_count", 0, err))
	}
	return int32(len(entries))
}

func (h *Host) fail(op string, id resource.ID, err error) int64 {
	h.log.Debug("host call failed",
		zap.String("op", op),
		zap.Uint32("rid", uint32(id)),
		zap.Error(err))
	return code(err)
}

func code(err error) int64 {
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindBadResource:
			return ErrBadResource
		case errors.KindCanceled:
			return ErrCanceled
		}
	}
	return ErrIO
}

func view(mem api.Memory, ptr, n uint32) ([]byte, bool) {
	if mem == nil {
		return nil, false
	}
	return mem.Read(ptr, n)
}

// await waits for f, canceling the operation when the guest call's context
// ends first.
func await[T any](ctx context.Context, id resource.ID, f *resource.Future[T]) (T, error) {
	v, ok, err := settle(ctx, f)
	if !ok {
		return v, errors.Canceled(errors.PhaseHost, uint32(id), ctx.Err())
	}
	return v, err
}

// settle waits for f until ctx is done. ok is false when f had not resolved
// by then; f is canceled and keeps running in the background.
func settle[T any](ctx context.Context, f *resource.Future[T]) (v T, ok bool, err error) {
	f.Block(ctx)
	if got, ready, ferr := f.Poll(); ready {
		return got, true, ferr
	}
	f.Cancel()
	return v, false, nil
}
