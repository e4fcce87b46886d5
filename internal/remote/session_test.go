package remote

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webship/webship/internal/remote/remotetest"
)

func TestScopesStack(t *testing.T) {
	host := remotetest.NewHost()
	sess := NewSession(host)

	err := sess.WithDir("/home/deploy/.virtualenvs/demo", func() error {
		return sess.WithPrefix("source /home/deploy/.virtualenvs/demo/bin/activate", func() error {
			return sess.WithDir("/home/deploy/webapps/demo", func() error {
				_, err := sess.Run("python manage.py migrate")
				return err
			})
		})
	})
	require.NoError(t, err)

	cmds := host.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t,
		"cd '/home/deploy/.virtualenvs/demo' && cd '/home/deploy/webapps/demo' && "+
			"source /home/deploy/.virtualenvs/demo/bin/activate && python manage.py migrate",
		cmds[0])
}

func TestScopesPopOnError(t *testing.T) {
	host := remotetest.NewHost()
	sess := NewSession(host)

	err := sess.WithDir("/tmp", func() error {
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	// The dir scope must be gone even though the inner function failed.
	_, err = sess.Run("ls")
	require.NoError(t, err)
	cmds := host.Commands()
	assert.Equal(t, "ls", cmds[len(cmds)-1])
}

func TestRunSurfacesExitCode(t *testing.T) {
	host := remotetest.NewHost()
	host.Respond(`^false$`, remotetest.Response{ExitCode: 3, Stderr: "nope"})
	sess := NewSession(host)

	res, err := sess.Run("false")
	require.NoError(t, err, "non-zero exit is a normal result for Run")
	assert.True(t, res.Failed())
	assert.Equal(t, 3, res.ExitCode)

	_, err = sess.RunChecked("false")
	require.Error(t, err, "RunChecked is the abort-on-error mode")
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExistsAndReadFile(t *testing.T) {
	host := remotetest.NewHost()
	host.PutFile("/home/deploy/webapps/demo/gunicorn.pid", "1234\n")
	sess := NewSession(host)

	ok, err := sess.Exists("/home/deploy/webapps/demo/gunicorn.pid")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sess.Exists("/home/deploy/webapps/demo/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	content, err := sess.ReadFile("/home/deploy/webapps/demo/gunicorn.pid")
	require.NoError(t, err)
	assert.Equal(t, "1234\n", content)

	_, err = sess.ReadFile("/home/deploy/webapps/demo/missing")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	host := remotetest.NewHost()
	sess := NewSession(host)

	require.NoError(t, sess.WriteFile("/home/deploy/etc/app.conf", []byte("port = 8000\n")))

	content, ok := host.File("/home/deploy/etc/app.conf")
	require.True(t, ok)
	assert.Equal(t, "port = 8000\n", content)
}

func TestEchoSkippedForQuietReads(t *testing.T) {
	host := remotetest.NewHost()
	host.PutFile("/etc/motd", "hi")
	sess := NewSession(host)

	var echoed []string
	sess.Echo = func(cmd string) { echoed = append(echoed, cmd) }

	_, err := sess.Run("uptime")
	require.NoError(t, err)
	_, err = sess.ReadFile("/etc/motd")
	require.NoError(t, err)

	assert.Equal(t, []string{"uptime"}, echoed)
}
