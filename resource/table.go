package resource

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/hostres/errors"
)

// allocator issues strictly increasing ids starting at firstID.
// It is owned by the manager's worker goroutine and is not safe for concurrent use.
type allocator struct {
	next uint64
}

func newAllocator() *allocator {
	return &allocator{next: firstID}
}

// alloc returns the next id or panics if the 32-bit space is exhausted.
func (a *allocator) alloc() ID {
	if a.next > math.MaxUint32 {
		panic(errors.Exhausted())
	}
	id := ID(a.next)
	a.next++
	return id
}

// table maps ids to their Repr. Only the manager's worker goroutine touches
// it, so it holds no lock.
type table struct {
	entries   map[ID]Repr
	ids       *allocator
	log       *zap.Logger
	observers []Observer
}

func newTable(stdin, stdout, stderr Repr, log *zap.Logger, observers []Observer) *table {
	t := &table{
		entries:   make(map[ID]Repr, 16),
		ids:       newAllocator(),
		log:       log,
		observers: observers,
	}
	t.put(StdinID, stdin)
	t.put(StdoutID, stdout)
	t.put(StderrID, stderr)
	return t
}

// insert allocates an id for repr and stores it.
func (t *table) insert(repr Repr) Resource {
	id := t.ids.alloc()
	t.put(id, repr)
	t.log.Debug("create resource", ridField(id), kindField(repr.Kind()))
	return Resource{RID: id}
}

func (t *table) put(id ID, repr Repr) {
	if _, exists := t.entries[id]; exists {
		panic(errors.Duplicate(uint32(id)))
	}
	t.entries[id] = repr
	t.notify(Event{Type: EventCreated, ID: id, Kind: repr.Kind()})
}

func (t *table) get(id ID) (Repr, bool) {
	repr, ok := t.entries[id]
	return repr, ok
}

// remove drops id from the table and returns its Repr. The caller releases it.
func (t *table) remove(id ID) (Repr, bool) {
	repr, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	delete(t.entries, id)
	t.log.Debug("remove resource", ridField(id), kindField(repr.Kind()))
	t.notify(Event{Type: EventDropped, ID: id, Kind: repr.Kind()})
	return repr, true
}

// snapshot returns every live id with its kind label, ordered by id.
func (t *table) snapshot() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for id, repr := range t.entries {
		out = append(out, Entry{ID: id, Label: repr.Kind().String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// drain removes every entry and returns them for release.
func (t *table) drain() map[ID]Repr {
	all := t.entries
	t.entries = make(map[ID]Repr)
	for id, repr := range all {
		t.notify(Event{Type: EventDropped, ID: id, Kind: repr.Kind()})
	}
	return all
}

func (t *table) len() int {
	return len(t.entries)
}

func (t *table) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
