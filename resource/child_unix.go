//go:build unix

package resource

import (
	"os"
	"syscall"
)

func exitSignal(ps *os.ProcessState) int {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0
	}
	return int(ws.Signal())
}
