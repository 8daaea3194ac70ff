package resource

import "sync"

var (
	globalMu sync.Mutex
	global   *Manager
)

// Global returns the process-wide manager, starting it with default
// configuration on first use. After CloseGlobal a new manager is started.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(nil)
	}
	return global
}

// CloseGlobal closes the process-wide manager if one is running.
func CloseGlobal() error {
	globalMu.Lock()
	m := global
	global = nil
	globalMu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close()
}
