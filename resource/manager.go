package resource

import (
	"net"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/wippyai/hostres/errors"
)

// Manager owns a resource table. A single worker goroutine holds the table;
// every mutation and lookup is a request served in arrival order. I/O never
// runs on the worker: operations look up the Repr and then run on the caller
// side, so a slow peer cannot stall the table.
//
// Contract violations (unknown ids, unsupported capabilities, use after
// Close) panic with an *errors.Error.
type Manager struct {
	requests chan request
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	closeErr error

	inflight *semaphore.Weighted
	metrics  *Metrics
	log      *zap.Logger
}

// New starts a Manager. A nil cfg uses NewConfig defaults.
func New(cfg *Config) *Manager {
	if cfg == nil {
		cfg = NewConfig()
	}

	m := &Manager{
		requests: make(chan request),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		metrics:  NewMetrics(cfg.registerer),
		log:      cfg.logger(),
	}
	if cfg.maxInflight > 0 {
		m.inflight = semaphore.NewWeighted(cfg.maxInflight)
	}

	observers := make([]Observer, 0, len(cfg.observers)+1)
	observers = append(observers, m.metrics)
	observers = append(observers, cfg.observers...)

	t := newTable(
		&Stdin{r: cfg.stdin},
		&Stdout{w: cfg.stdout},
		&Stderr{w: cfg.stderr},
		m.log,
		observers,
	)
	go m.run(t)
	return m
}

// Metrics returns the manager's collectors.
func (m *Manager) Metrics() *Metrics { return m.metrics }

func (m *Manager) run(t *table) {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			m.closeErr = m.releaseAll(t.drain())
			return
		case req := <-m.requests:
			req.serve(t)
		}
	}
}

// submit hands req to the worker. It panics once the manager is closed.
func (m *Manager) submit(req request) {
	select {
	case m.requests <- req:
	case <-m.done:
		panic(errors.Stopped(errors.PhaseManager))
	}
}

// Close stops the worker and releases every remaining resource. Requests
// submitted afterwards panic. Close is idempotent and returns the same
// combined release error on every call.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
	return m.closeErr
}

func (m *Manager) releaseAll(all map[ID]Repr) error {
	var err error
	for id, repr := range all {
		if rerr := repr.release(); rerr != nil {
			m.log.Warn("release resource", ridField(id), kindField(repr.Kind()), zap.Error(rerr))
			err = multierr.Append(err, errors.IO(errors.PhaseClose, uint32(id), repr.Kind().String(), rerr))
		}
	}
	m.log.Debug("manager closed", zap.Int("released", len(all)))
	return err
}

// Insert registers repr under a fresh id.
func (m *Manager) Insert(repr Repr) *Future[Resource] {
	f := newFuture[Resource]()
	m.submit(insertRequest{repr: repr, reply: f})
	return f
}

// AddFsFile registers an open file.
func (m *Manager) AddFsFile(f *os.File) *Future[Resource] {
	return m.Insert(&FsFile{f: f})
}

// AddTCPListener registers a listening socket.
func (m *Manager) AddTCPListener(l *net.TCPListener) *Future[Resource] {
	return m.Insert(&TCPListener{l: l})
}

// AddTCPStream registers a connected socket.
func (m *Manager) AddTCPStream(c *net.TCPConn) *Future[Resource] {
	return m.Insert(&TCPStream{c: c})
}

// AddHTTPBody registers a response body.
func (m *Manager) AddHTTPBody(b *HTTPBody) *Future[Resource] {
	return m.Insert(b)
}

// AddRepl registers a line-editing session.
func (m *Manager) AddRepl(s *ReplSession) *Future[Resource] {
	return m.Insert(s)
}

// AddChild registers a spawned child and its captured pipes in one request,
// so the ids are contiguous and the bundle is published atomically.
func (m *Manager) AddChild(c *SpawnedChild) *Future[ChildResources] {
	f := newFuture[ChildResources]()
	m.submit(childRequest{child: c, reply: f})
	return f
}

// TableEntries snapshots the table as (label, id) pairs ordered by id.
func (m *Manager) TableEntries() *Future[[]Entry] {
	f := newFuture[[]Entry]()
	m.submit(entriesRequest{reply: f})
	return f
}

// Lookup reports whether id is live.
func (m *Manager) Lookup(id ID) (Resource, bool) {
	if _, ok := m.lookup(id); !ok {
		return Resource{}, false
	}
	return Resource{RID: id}, true
}

// CloseResource removes id and releases its primitive. The reserved stdio
// ids cannot be closed. Closing an unknown id panics; a failed release is
// returned after the entry is already gone.
func (m *Manager) CloseResource(id ID) error {
	if id <= StderrID {
		panic(errors.Reserved(errors.PhaseClose, uint32(id)))
	}
	f := newFuture[Repr]()
	m.submit(removeRequest{id: id, reply: f})
	repr, _ := f.await()
	if repr == nil {
		panic(errors.NotFound(errors.PhaseClose, uint32(id)))
	}
	if err := repr.release(); err != nil {
		return errors.IO(errors.PhaseClose, uint32(id), repr.Kind().String(), err)
	}
	return nil
}

func (m *Manager) lookup(id ID) (Repr, bool) {
	f := newFuture[Repr]()
	m.submit(lookupRequest{id: id, reply: f})
	repr, _ := f.await()
	return repr, repr != nil
}

func (m *Manager) mustLookup(phase errors.Phase, id ID) Repr {
	repr, ok := m.lookup(id)
	if !ok {
		panic(errors.NotFound(phase, uint32(id)))
	}
	return repr
}

// request is a unit of work for the worker goroutine.
type request interface {
	serve(t *table)
}

type insertRequest struct {
	repr  Repr
	reply *Future[Resource]
}

func (r insertRequest) serve(t *table) {
	r.reply.resolve(t.insert(r.repr), nil)
}

type childRequest struct {
	child *SpawnedChild
	reply *Future[ChildResources]
}

func (r childRequest) serve(t *table) {
	var res ChildResources
	if r.child.Stdin != nil {
		id := t.insert(&ChildStdin{f: r.child.Stdin}).RID
		res.StdinRID = &id
	}
	if r.child.Stdout != nil {
		id := t.insert(&ChildStdout{f: r.child.Stdout}).RID
		res.StdoutRID = &id
	}
	if r.child.Stderr != nil {
		id := t.insert(&ChildStderr{f: r.child.Stderr}).RID
		res.StderrRID = &id
	}
	c := newChild(r.child.Cmd)
	res.ChildRID = t.insert(c).RID
	c.rid = res.ChildRID
	r.reply.resolve(res, nil)
}

type entriesRequest struct {
	reply *Future[[]Entry]
}

func (r entriesRequest) serve(t *table) {
	r.reply.resolve(t.snapshot(), nil)
}

type lookupRequest struct {
	id    ID
	reply *Future[Repr]
}

func (r lookupRequest) serve(t *table) {
	repr, _ := t.get(r.id)
	r.reply.resolve(repr, nil)
}

type removeRequest struct {
	id    ID
	reply *Future[Repr]
}

func (r removeRequest) serve(t *table) {
	repr, _ := t.remove(r.id)
	r.reply.resolve(repr, nil)
}
