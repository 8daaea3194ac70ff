package hostcall

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/hostres/resource"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// Logger returns the logger new Hosts pick up. Until SetLogger is called it
// is the resource package logger named "hostcall".
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return resource.Logger().Named("hostcall")
	}
	return l
}

// SetLogger replaces the logger for Hosts created afterwards. Passing nil
// restores the default.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}
