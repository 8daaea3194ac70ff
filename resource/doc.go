// Package resource provides the resource table behind a script engine's
// host calls.
//
// Resources are host-side OS primitives (files, sockets, pipes, child
// processes, HTTP bodies, line editors) that script code refers to by a
// small integer id. Ids 0, 1 and 2 always name the process standard
// streams; every other id is issued once and never reused.
//
// # Manager
//
// A Manager owns the table on a single worker goroutine:
//
//	m := resource.New(resource.NewConfig().WithMaxInflight(64))
//	defer m.Close()
//
//	res, _ := m.AddFsFile(f).Wait(ctx)
//	n, err := m.Read(res.RID, buf).Wait(ctx)
//
// Registration, lookup and removal are requests served in order. I/O runs
// outside the worker and resolves a Future.
//
// # Capabilities
//
// Each variant supports a subset of read, write, accept and shutdown:
//
//	stdin, fsFile, tcpStream, httpBody, childStdout, childStderr  read
//	stdout, stderr, fsFile, tcpStream, childStdin                 write
//	tcpListener                                                   accept
//	tcpStream                                                     shutdown
//
// Calling an operation the variant lacks, or naming an id that is not in
// the table, is a contract violation and panics with an *errors.Error.
// Recoverable failures are returned: I/O errors, io.EOF, and bad_resource
// from ChildStatus and Readline.
//
// # Eager operations
//
// EagerRead, EagerWrite and EagerAccept try a single non-blocking syscall
// on TCP resources before falling back to the asynchronous path. A future
// that completed eagerly is already resolved when returned.
//
// # Observers
//
// Lifecycle events are delivered on the worker goroutine:
//
//	cfg := resource.NewConfig().WithObserver(myObserver)
//
// Metrics is an Observer exporting Prometheus collectors; every manager
// feeds one, registered when WithRegisterer is set.
package resource
