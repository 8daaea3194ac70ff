package resource

// ID is an opaque reference to a resource in a Manager's table.
// IDs are never reused, even after the resource is closed.
type ID uint32

// Reserved ids for the process standard streams. They exist for the
// lifetime of the table.
const (
	StdinID  ID = 0
	StdoutID ID = 1
	StderrID ID = 2
)

// firstID is the first id handed out by the allocator.
const firstID = 3

// Resource is a capability token naming a table entry. It does not own the
// underlying OS primitive; two Resources with the same RID are interchangeable.
type Resource struct {
	RID ID
}

// Kind identifies the variant of a Repr.
type Kind uint8

const (
	KindStdin Kind = iota
	KindStdout
	KindStderr
	KindFsFile
	KindTCPListener
	KindTCPStream
	KindHTTPBody
	KindRepl
	KindChild
	KindChildStdin
	KindChildStdout
	KindChildStderr
)

var kindLabels = [...]string{
	KindStdin:       "stdin",
	KindStdout:      "stdout",
	KindStderr:      "stderr",
	KindFsFile:      "fsFile",
	KindTCPListener: "tcpListener",
	KindTCPStream:   "tcpStream",
	KindHTTPBody:    "httpBody",
	KindRepl:        "repl",
	KindChild:       "child",
	KindChildStdin:  "childStdin",
	KindChildStdout: "childStdout",
	KindChildStderr: "childStderr",
}

// String returns the fixed human-readable label used by introspection.
func (k Kind) String() string {
	if int(k) < len(kindLabels) {
		return kindLabels[k]
	}
	return "unknown"
}

// ChildResources is the bundle produced when a spawned child is registered.
// Pipe ids are nil when the corresponding stream was not captured.
type ChildResources struct {
	StdinRID  *ID
	StdoutRID *ID
	StderrRID *ID
	ChildRID  ID
}

// Entry is one row of an introspection snapshot.
type Entry struct {
	Label string
	ID    ID
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a resource lifecycle event.
type Event struct {
	ID   ID
	Kind Kind
	Type EventType
}

// Observer receives notifications about resource lifecycle events.
// Observers are called on the manager's worker goroutine and must not block.
type Observer interface {
	OnResourceEvent(Event)
}
