// Package remote executes shell commands on a single deployment host,
// with stackable working-directory and environment-prefix scopes.
package remote

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/logger"
	"github.com/webship/webship/internal/util"
)

// Execer is the transport a Session drives. *sshutil.Client satisfies it,
// as does the remotetest fake.
type Execer interface {
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)
	ExecStream(cmd string, stdout, stderr io.Writer) (exitCode int, err error)
	ExecInteractive(cmd string, stdin io.Reader, stdout, stderr io.Writer) (exitCode int, err error)
}

// Result holds the outcome of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the command exited non-zero.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Output returns stdout with surrounding whitespace trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Session runs commands on one remote host. Commands execute inside the
// currently pushed directory and prefix scopes: WithDir and WithPrefix
// stack, and both are popped on every exit path of the wrapped function.
//
// A Session is driven by exactly one goroutine; the workflows are strictly
// sequential, so no locking is needed around the scope stacks.
type Session struct {
	execer   Execer
	dirs     []string
	prefixes []string
	log      logger.Logger

	// Echo, when set, is called with each command before it runs.
	// Internal reads (cat for change detection) bypass it via RunQuiet.
	Echo func(cmd string)
}

// NewSession creates a session over the given transport.
func NewSession(e Execer) *Session {
	return &Session{
		execer: e,
		log:    logger.NewEnvLogger("[remote]"),
	}
}

// WithDir runs fn with dir pushed onto the working-directory stack.
// The scope is removed when fn returns, error or not.
func (s *Session) WithDir(dir string, fn func() error) error {
	s.dirs = append(s.dirs, dir)
	defer func() {
		s.dirs = s.dirs[:len(s.dirs)-1]
	}()
	return fn()
}

// WithPrefix runs fn with a command prefix pushed (e.g. sourcing a
// virtualenv activate script). The scope is removed when fn returns.
func (s *Session) WithPrefix(prefix string, fn func() error) error {
	s.prefixes = append(s.prefixes, prefix)
	defer func() {
		s.prefixes = s.prefixes[:len(s.prefixes)-1]
	}()
	return fn()
}

// wrap assembles the full shell command for the current scopes:
// cd d1 && cd d2 && prefix1 && prefix2 && cmd
func (s *Session) wrap(cmd string) string {
	parts := make([]string, 0, len(s.dirs)+len(s.prefixes)+1)
	for _, d := range s.dirs {
		parts = append(parts, "cd "+util.ShellQuote(d))
	}
	parts = append(parts, s.prefixes...)
	parts = append(parts, cmd)
	return strings.Join(parts, " && ")
}

// Run executes cmd inside the current scopes. The returned error covers
// transport failures only; a non-zero exit is a normal Result. Callers in
// abort-on-error mode use RunChecked instead.
func (s *Session) Run(cmd string) (Result, error) {
	return s.run(cmd, true)
}

// RunQuiet is Run without echoing the command, for internal reads.
func (s *Session) RunQuiet(cmd string) (Result, error) {
	return s.run(cmd, false)
}

func (s *Session) run(cmd string, echo bool) (Result, error) {
	full := s.wrap(cmd)
	if echo && s.Echo != nil {
		s.Echo(cmd)
	}
	s.log.Debug("run: %s", full)

	stdout, stderr, exitCode, err := s.execer.Exec(full)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return Result{
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: exitCode,
	}, nil
}

// RunChecked executes cmd and additionally fails on non-zero exit.
// This is the ambient abort-on-error mode the workflows run under.
func (s *Session) RunChecked(cmd string) (Result, error) {
	res, err := s.Run(cmd)
	if err != nil {
		return res, err
	}
	if res.Failed() {
		return res, errors.New(errors.ErrExec,
			fmt.Sprintf("Remote command failed with exit code %d: %s", res.ExitCode, cmd),
			strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

// Stream executes cmd inside the current scopes, streaming output to the
// given writers. Fails on non-zero exit like RunChecked.
func (s *Session) Stream(cmd string, stdout, stderr io.Writer) error {
	full := s.wrap(cmd)
	if s.Echo != nil {
		s.Echo(cmd)
	}
	s.log.Debug("stream: %s", full)

	exitCode, err := s.execer.ExecStream(full, stdout, stderr)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Remote command failed with exit code %d: %s", exitCode, cmd),
			"")
	}
	return nil
}

// Exists reports whether a path exists on the remote host.
func (s *Session) Exists(path string) (bool, error) {
	res, err := s.RunQuiet("test -e " + util.ShellQuote(path))
	if err != nil {
		return false, err
	}
	return !res.Failed(), nil
}

// ReadFile returns the content of a remote file.
func (s *Session) ReadFile(path string) (string, error) {
	res, err := s.RunQuiet("cat " + util.ShellQuote(path))
	if err != nil {
		return "", err
	}
	if res.Failed() {
		return "", errors.New(errors.ErrExec,
			"Failed to read remote file "+path,
			strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// WriteFile uploads data as the content of a remote file by piping it
// through cat. Parent directories must already exist.
func (s *Session) WriteFile(path string, data []byte) error {
	cmd := s.wrap("cat > " + util.ShellQuote(path))
	s.log.Debug("write: %s (%d bytes)", path, len(data))

	var stderr bytes.Buffer
	exitCode, err := s.execer.ExecInteractive(cmd, bytes.NewReader(data), io.Discard, &stderr)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return errors.New(errors.ErrExec,
			"Failed to write remote file "+path,
			strings.TrimSpace(stderr.String()))
	}
	return nil
}
