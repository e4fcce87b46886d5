// Package reqs decides whether pip needs to run after a code upload, by
// comparing the requirements manifest across the update and checking that
// every entry is pinned to an exact version.
package reqs

import (
	"strings"

	"github.com/webship/webship/internal/remote"
)

// Guard snapshots the remote requirements file before an upload and
// reports afterwards whether dependencies must be (re)installed.
type Guard struct {
	sess *remote.Session
	path string

	before   string
	captured bool
}

// NewGuard creates a guard for the given remote manifest path. An empty
// path disables the guard; NeedsInstall then always reports false.
func NewGuard(sess *remote.Session, remotePath string) *Guard {
	return &Guard{sess: sess, path: remotePath}
}

// Capture records the manifest content before the upload. A missing file
// reads as empty, which disables the install check for this run.
func (g *Guard) Capture() error {
	g.captured = true
	if g.path == "" {
		return nil
	}
	content, err := g.read()
	if err != nil {
		return err
	}
	g.before = content
	return nil
}

// NeedsInstall re-reads the manifest after the upload and decides:
// changed content always installs, and identical content still installs
// when any entry is unpinned, since "Django>=1.8" may resolve differently
// today than it did last deploy.
func (g *Guard) NeedsInstall() (bool, error) {
	if g.path == "" || !g.captured || g.before == "" {
		return false, nil
	}
	after, err := g.read()
	if err != nil {
		return false, err
	}
	if after != g.before {
		return true, nil
	}
	for _, line := range strings.Split(after, "\n") {
		if Unpinned(line) {
			return true, nil
		}
	}
	return false, nil
}

// read returns the manifest content, or empty when the file is absent.
func (g *Guard) read() (string, error) {
	exists, err := g.sess.Exists(g.path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}
	return g.sess.ReadFile(g.path)
}

// Unpinned reports whether a single manifest line floats: an editable
// install without a pinned commit, or a package spec without any of the
// version operators < > =. Blank lines and comments are pinned by
// definition.
func Unpinned(line string) bool {
	if strings.HasPrefix(line, "-e") {
		return !strings.Contains(line, "@")
	}
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return false
	}
	return !strings.ContainsAny(line, "<>=")
}
