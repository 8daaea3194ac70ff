package resource

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config holds Manager construction options.
// Use NewConfig and the With* methods to build one.
type Config struct {
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	log         *zap.Logger
	registerer  prometheus.Registerer
	observers   []Observer
	maxInflight int64
}

// NewConfig returns a Config bound to the process standard streams with
// no in-flight limit and no metrics registration.
func NewConfig() *Config {
	return &Config{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithStdio replaces the streams behind the reserved ids 0, 1 and 2.
// A nil argument keeps the current stream.
func (c *Config) WithStdio(stdin io.Reader, stdout, stderr io.Writer) *Config {
	if stdin != nil {
		c.stdin = stdin
	}
	if stdout != nil {
		c.stdout = stdout
	}
	if stderr != nil {
		c.stderr = stderr
	}
	return c
}

// WithMaxInflight bounds the number of asynchronous operations running at
// once. Zero or negative means unbounded.
func (c *Config) WithMaxInflight(n int64) *Config {
	c.maxInflight = n
	return c
}

// WithLogger sets the manager logger. Without it the package Logger is used.
func (c *Config) WithLogger(l *zap.Logger) *Config {
	c.log = l
	return c
}

// WithRegisterer registers the manager's metrics with reg.
func (c *Config) WithRegisterer(reg prometheus.Registerer) *Config {
	c.registerer = reg
	return c
}

// WithObserver adds a lifecycle observer.
func (c *Config) WithObserver(o Observer) *Config {
	if o != nil {
		c.observers = append(c.observers, o)
	}
	return c
}

func (c *Config) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}
