// Package hostres is the resource-handle layer of a script engine host.
//
// Script code never holds OS primitives directly. It holds small integer
// ids issued by a resource.Manager, which owns the files, sockets, pipes,
// child processes, HTTP bodies and line editors behind them.
//
// Packages:
//
//	errors      structured errors; contract violations versus recoverable failures
//	resource    id table, capability dispatch, futures, eager I/O, children
//	hostcall    wazero host module exposing a Manager to WebAssembly guests
//	resourcefx  fx module providing a Manager and Host with lifecycle hooks
package hostres
