// Package hostcall exposes a resource.Manager to WebAssembly guests as the
// "hostres" host module.
//
// Every function takes a resource id as its first argument. Results are
// non-negative on success; failures return one of the Err* codes. Contract
// violations (unknown id, unsupported operation) panic inside the host
// function, which wazero turns into a trap: the guest call fails with an
// error wrapping the *errors.Error.
//
//	r := wazero.NewRuntime(ctx)
//	m := resource.New(nil)
//	if _, err := hostcall.New(m).Instantiate(ctx, r); err != nil {
//	    return err
//	}
//
// Imports, in WAT notation:
//
//	(import "hostres" "read"           (func (param i32 i32 i32) (result i64)))
//	(import "hostres" "write"          (func (param i32 i32 i32) (result i64)))
//	(import "hostres" "accept"         (func (param i32) (result i64)))
//	(import "hostres" "shutdown"       (func (param i32 i32) (result i32)))
//	(import "hostres" "close"          (func (param i32) (result i32)))
//	(import "hostres" "readline"       (func (param i32 i32 i32 i32 i32) (result i64)))
//	(import "hostres" "child_status"   (func (param i32) (result i64)))
//	(import "hostres" "resource_count" (func (result i32)))
package hostcall
