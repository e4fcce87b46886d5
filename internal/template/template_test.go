package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/remote"
	"github.com/webship/webship/internal/remote/remotetest"
	"github.com/webship/webship/internal/secrets"
)

func TestExpand(t *testing.T) {
	ctx := map[string]string{"user": "bob", "proj_name": "demo"}

	out, err := Expand("/home/%(user)s/webapps/%(proj_name)s", ctx)
	require.NoError(t, err)
	assert.Equal(t, "/home/bob/webapps/demo", out)

	out, err = Expand("100%% done by %(user)s", ctx)
	require.NoError(t, err)
	assert.Equal(t, "100% done by bob", out)

	_, err = Expand("%(missing)s", ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTemplate))
	assert.Contains(t, err.Error(), "missing")
}

func TestEscapeLeavesPlaceholdersAlone(t *testing.T) {
	in := "timeout = 100%\nuser = %(user)s\nfmt = %s %(x)\n"
	out := Escape(in)
	assert.Equal(t, "timeout = 100%%\nuser = %(user)s\nfmt = %%s %%(x)\n", out)

	// Escaped text expands without stray-percent errors.
	rendered, err := Expand(out, map[string]string{"user": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "timeout = 100%\nuser = bob\nfmt = %s %(x)\n", rendered)
}

func newTestRenderer(t *testing.T) (*Renderer, *remotetest.Host, string) {
	t.Helper()
	host := remotetest.NewHost()
	sess := remote.NewSession(host)

	cfg := config.Default()
	cfg.SSHUser = "deploy"
	cfg.ProjectName = "demo"
	cfg.ProjectApp = "demo"
	cfg.Hosts = []string{"web502.example.net"}

	dir := t.TempDir()
	r := NewRenderer(sess, cfg, &secrets.Static{Default: "prompted-pw"})
	r.Root = dir
	return r, host, dir
}

func writeTemplate(t *testing.T, root, rel, content string) Descriptor {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return Descriptor{Name: "test", LocalPath: rel, RemotePath: "/home/%(user)s/etc/test.conf"}
}

func TestUploadRendersAndWrites(t *testing.T) {
	r, host, dir := newTestRenderer(t)
	d := writeTemplate(t, dir, "deploy/test.conf.template",
		"project = %(proj_name)s\nprogress = 100%\n")

	changed, err := r.Upload(d)
	require.NoError(t, err)
	assert.True(t, changed)

	content, ok := host.File("/home/deploy/etc/test.conf")
	require.True(t, ok)
	assert.Equal(t, "project = demo\nprogress = 100%\n", content)
}

func TestUploadSkipsWhenUnchanged(t *testing.T) {
	r, host, dir := newTestRenderer(t)
	d := writeTemplate(t, dir, "deploy/test.conf.template", "project = %(proj_name)s\n")
	d.ReloadCommand = "supervisorctl update gunicorn_%(proj_name)s"

	// Same content modulo line endings and trailing whitespace.
	host.PutFile("/home/deploy/etc/test.conf", "project = demo\r\n\n")

	changed, err := r.Upload(d)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, host.Ran("supervisorctl"), "no reload when nothing changed")
}

func TestUploadReloadsOnChange(t *testing.T) {
	r, host, dir := newTestRenderer(t)
	d := writeTemplate(t, dir, "deploy/test.conf.template", "project = %(proj_name)s\n")
	d.ReloadCommand = "supervisorctl update gunicorn_%(proj_name)s"

	host.PutFile("/home/deploy/etc/test.conf", "project = old\n")

	changed, err := r.Upload(d)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, host.Ran("supervisorctl update gunicorn_demo"))
}

func TestUploadPromptsForDatabasePasswordOnce(t *testing.T) {
	r, host, dir := newTestRenderer(t)
	prompter := &secrets.Static{Default: "s3cret"}
	r.Secrets = prompter

	d := writeTemplate(t, dir, "deploy/test.conf.template",
		"password = %(db_pass)s\n")

	changed, err := r.Upload(d)
	require.NoError(t, err)
	assert.True(t, changed)

	content, _ := host.File("/home/deploy/etc/test.conf")
	assert.Equal(t, "password = s3cret\n", content)

	// A second template using the same key reuses the answer.
	d2 := writeTemplate(t, dir, "deploy/other.conf.template",
		"db = %(db_pass)s\n")
	d2.RemotePath = "/home/%(user)s/etc/other.conf"
	_, err = r.Upload(d2)
	require.NoError(t, err)
	assert.Len(t, prompter.SecretCalls, 1)
}

func TestUploadMissingKeyFails(t *testing.T) {
	r, _, dir := newTestRenderer(t)
	d := writeTemplate(t, dir, "deploy/test.conf.template", "x = %(not_a_setting)s\n")

	_, err := r.Upload(d)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTemplate))
}

func TestBuiltinDescriptors(t *testing.T) {
	names := []string{}
	for _, d := range Builtin() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"supervisor", "gunicorn", "settings"}, names)

	_, err := ByName("nginx")
	require.Error(t, err)

	d, err := ByName("supervisor")
	require.NoError(t, err)
	assert.NotEmpty(t, d.ReloadCommand)
}
