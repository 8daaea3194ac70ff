package resource

import (
	"bufio"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/wippyai/hostres/errors"
)

// ReplSession is an interactive line reader with history. A session over a
// terminal uses x/term line editing; any other reader is read line by line.
type ReplSession struct {
	mu      sync.Mutex
	term    *term.Terminal
	lines   *bufio.Reader
	out     io.Writer
	history []string
	pending []string
	path    string
	restore func() error
}

// NewReplSession returns a session that edits lines on rw with x/term.
// Input lines end with a carriage return, as sent by a terminal in raw mode.
func NewReplSession(rw io.ReadWriter) *ReplSession {
	return &ReplSession{term: term.NewTerminal(rw, "")}
}

// NewLineReplSession returns a session that reads newline-terminated lines
// from r and writes prompts to w.
func NewLineReplSession(r io.Reader, w io.Writer) *ReplSession {
	return &ReplSession{lines: bufio.NewReader(r), out: w}
}

type stdio struct {
	io.Reader
	io.Writer
}

// NewStdioReplSession returns a session on the process standard streams.
// When stdin is a terminal it is put into raw mode until the session is
// released.
func NewStdioReplSession() (*ReplSession, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return NewLineReplSession(os.Stdin, os.Stdout), nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRepl, errors.KindIO, err, "make terminal raw")
	}
	s := NewReplSession(stdio{os.Stdin, os.Stdout})
	s.restore = func() error { return term.Restore(fd, state) }
	return s, nil
}

// WithHistoryFile loads history from path and appends new lines to it when
// the session is released. A missing file is not an error.
func (s *ReplSession) WithHistoryFile(path string) (*ReplSession, error) {
	data, err := os.ReadFile(path)
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(errors.PhaseRepl, errors.KindIO, err, "load history "+path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			s.history = append(s.history, line)
		}
	}
	return s, nil
}

func (s *ReplSession) Kind() Kind { return KindRepl }

// Readline prints prompt and returns the next line without its terminator.
// It returns io.EOF when input is exhausted.
func (s *ReplSession) Readline(prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		line string
		err  error
	)
	if s.term != nil {
		s.term.SetPrompt(prompt)
		line, err = s.term.ReadLine()
	} else {
		line, err = s.readPlain(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		s.history = append(s.history, line)
		s.pending = append(s.pending, line)
	}
	return line, nil
}

func (s *ReplSession) readPlain(prompt string) (string, error) {
	if prompt != "" {
		if _, err := io.WriteString(s.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := s.lines.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// History returns loaded and entered lines, oldest first.
func (s *ReplSession) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *ReplSession) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.path != "" && len(s.pending) > 0 {
		err = appendHistory(s.path, s.pending)
		s.pending = nil
	}
	if s.restore != nil {
		err = multierr.Append(err, s.restore())
		s.restore = nil
	}
	return err
}

func appendHistory(path string, lines []string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	_, err = io.WriteString(f, strings.Join(lines, "\n")+"\n")
	return err
}

// Readline reads a line from the repl session id. An unknown id or a
// non-repl resource yields a bad_resource error. End of input is io.EOF.
func (m *Manager) Readline(id ID, prompt string) (string, error) {
	repr, ok := m.lookup(id)
	if !ok {
		return "", errors.BadResource(errors.PhaseRepl, uint32(id), "")
	}
	s, ok := repr.(*ReplSession)
	if !ok {
		return "", errors.BadResource(errors.PhaseRepl, uint32(id), repr.Kind().String())
	}
	line, err := s.Readline(prompt)
	if err != nil {
		return "", wrapIO(errors.PhaseRepl, id, s.Kind(), err)
	}
	return line, nil
}
