// Package remotetest provides a fake deployment host for testing code
// that drives a remote.Session. It keeps a virtual filesystem, parses the
// handful of shell commands the workflows rely on, and records every
// command it receives.
package remotetest

import (
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
)

// Response is a canned reply for a command pattern.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

type patternResponse struct {
	re   *regexp.Regexp
	resp Response
}

// Host simulates a remote machine behind a remote.Execer.
type Host struct {
	mu        sync.Mutex
	files     map[string]string
	dirs      map[string]bool
	commands  []string
	responses []patternResponse
}

// NewHost creates an empty fake host.
func NewHost() *Host {
	return &Host{
		files: make(map[string]string),
		dirs:  make(map[string]bool),
	}
}

// PutFile seeds a file into the virtual filesystem.
func (h *Host) PutFile(p, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[p] = content
}

// File returns the content of a virtual file and whether it exists.
func (h *Host) File(p string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.files[p]
	return c, ok
}

// RemoveFile deletes a file from the virtual filesystem.
func (h *Host) RemoveFile(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, p)
}

// Respond registers a canned response for commands matching the regex pattern.
// Patterns are checked in registration order against the full wrapped command.
func (h *Host) Respond(pattern string, resp Response) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, patternResponse{
		re:   regexp.MustCompile(pattern),
		resp: resp,
	})
}

// Commands returns every command received, in order.
func (h *Host) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.commands))
	copy(out, h.commands)
	return out
}

// Ran reports whether any received command contains the given substring.
func (h *Host) Ran(substr string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.commands {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// CountRan returns how many received commands contain the given substring.
func (h *Host) CountRan(substr string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.commands {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// Exec implements remote.Execer.
func (h *Host) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)

	for _, pr := range h.responses {
		if pr.re.MatchString(cmd) {
			return []byte(pr.resp.Stdout), []byte(pr.resp.Stderr), pr.resp.ExitCode, pr.resp.Err
		}
	}

	cwd, last := splitScopes(cmd)
	return h.runBuiltin(last, cwd)
}

// ExecStream implements remote.Execer.
func (h *Host) ExecStream(cmd string, stdout, stderr io.Writer) (int, error) {
	out, errOut, code, err := h.Exec(cmd)
	if err != nil {
		return -1, err
	}
	if stdout != nil && len(out) > 0 {
		stdout.Write(out) //nolint:errcheck
	}
	if stderr != nil && len(errOut) > 0 {
		stderr.Write(errOut) //nolint:errcheck
	}
	return code, nil
}

// ExecInteractive implements remote.Execer. A trailing "cat > path"
// stores stdin as file content.
func (h *Host) ExecInteractive(cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cwd, last := splitScopes(cmd)
	if target, ok := strings.CutPrefix(last, "cat > "); ok {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return -1, err
		}
		h.mu.Lock()
		h.commands = append(h.commands, cmd)
		h.files[resolve(cwd, unquote(target))] = string(data)
		h.mu.Unlock()
		return 0, nil
	}
	return h.ExecStream(cmd, stdout, stderr)
}

// runBuiltin interprets the small shell vocabulary the workflows use.
// Unknown commands succeed silently, matching a permissive host.
func (h *Host) runBuiltin(cmd, cwd string) ([]byte, []byte, int, error) {
	switch {
	case strings.HasPrefix(cmd, "test -e "):
		p := resolve(cwd, unquote(strings.TrimPrefix(cmd, "test -e ")))
		if h.exists(p) {
			return nil, nil, 0, nil
		}
		return nil, nil, 1, nil

	case strings.HasPrefix(cmd, "cat "):
		p := resolve(cwd, unquote(strings.TrimPrefix(cmd, "cat ")))
		if content, ok := h.files[p]; ok {
			return []byte(content), nil, 0, nil
		}
		return nil, []byte("cat: " + p + ": No such file or directory"), 1, nil

	case strings.HasPrefix(cmd, "mkdir -p "):
		p := resolve(cwd, unquote(strings.TrimPrefix(cmd, "mkdir -p ")))
		h.dirs[p] = true
		return nil, nil, 0, nil

	case strings.HasPrefix(cmd, "rm -rf "), strings.HasPrefix(cmd, "rm "):
		arg := strings.TrimPrefix(strings.TrimPrefix(cmd, "rm -rf "), "rm ")
		p := resolve(cwd, unquote(arg))
		delete(h.dirs, p)
		for f := range h.files {
			if f == p || strings.HasPrefix(f, p+"/") {
				delete(h.files, f)
			}
		}
		return nil, nil, 0, nil
	}

	return nil, nil, 0, nil
}

// exists checks files, explicit dirs, and implicit parent dirs of files.
func (h *Host) exists(p string) bool {
	if _, ok := h.files[p]; ok {
		return true
	}
	if h.dirs[p] {
		return true
	}
	for f := range h.files {
		if strings.HasPrefix(f, p+"/") {
			return true
		}
	}
	for d := range h.dirs {
		if strings.HasPrefix(d, p+"/") {
			return true
		}
	}
	return false
}

// splitScopes walks the "cd a && cd b && prefix && cmd" chain a session
// builds, returning the effective working directory and the final command.
func splitScopes(cmd string) (cwd, last string) {
	segments := strings.Split(cmd, " && ")
	for _, seg := range segments[:len(segments)-1] {
		if dir, ok := strings.CutPrefix(seg, "cd "); ok {
			cwd = resolve(cwd, unquote(dir))
		}
		// Non-cd segments are environment prefixes; the fake ignores them.
	}
	return cwd, segments[len(segments)-1]
}

func resolve(cwd, p string) string {
	if p == "" || strings.HasPrefix(p, "/") || cwd == "" {
		return p
	}
	return path.Join(cwd, p)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, "'\\''", "'")
	}
	return s
}
