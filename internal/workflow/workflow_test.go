package workflow

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/panel/paneltest"
	"github.com/webship/webship/internal/remote"
	"github.com/webship/webship/internal/remote/remotetest"
	"github.com/webship/webship/internal/secrets"
	"github.com/webship/webship/internal/ui"
)

type fixture struct {
	w         *Workflow
	host      *remotetest.Host
	panel     *paneltest.Fake
	prompter  *secrets.Static
	localCmds []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Hosts = []string{"web502.example.net"}
	cfg.SSHUser = "deploy"
	cfg.SSHPass = "panel-pw"
	cfg.ProjectName = "demo"
	cfg.ProjectApp = "demo"
	cfg.LiveDomain = "example.com"
	cfg.LiveSubdomain = "www"
	cfg.DBPass = "db-pw"

	f := &fixture{
		host:     remotetest.NewHost(),
		panel:    paneltest.New(),
		prompter: &secrets.Static{ConfirmAll: true},
	}
	printer := ui.NewPrinter(&bytes.Buffer{})
	f.w = New(cfg, remote.NewSession(f.host), f.panel, f.prompter, printer)
	f.w.RunLocal = func(cmd string) error {
		f.localCmds = append(f.localCmds, cmd)
		return nil
	}

	// Local template sources the renderer reads at upload time.
	dir := t.TempDir()
	f.w.Renderer.Root = dir
	for name, content := range map[string]string{
		"deploy/supervisor.conf.template":   "[program:gunicorn_%(proj_name)s]\nport = %(gunicorn_port)s\n",
		"deploy/gunicorn.conf.py.template":  "bind = '127.0.0.1:%(gunicorn_port)s'\n",
		"deploy/local_settings.py.template": "ALLOWED_HOSTS = [%(domains_python)s]\n",
		"deploy/supervisord.conf.template":  "[supervisord]\nuser = %(user)s\n",
		"deploy/htaccess":                   "Options -Indexes\n",
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	// STATIC_ROOT lookup answered by the fake host.
	f.host.Respond(`STATIC_ROOT`, remotetest.Response{
		Stdout: "/home/deploy/webapps/demo/static\n",
	})
	return f
}

func TestRestartBranchesOnPidFile(t *testing.T) {
	f := newFixture(t)
	f.host.PutFile("/home/deploy/webapps/demo/gunicorn.pid", "1234\n")

	require.NoError(t, f.w.Restart())
	assert.True(t, f.host.Ran("supervisorctl restart gunicorn_demo"))

	f.host.RemoveFile("/home/deploy/webapps/demo/gunicorn.pid")
	require.NoError(t, f.w.Restart())
	assert.True(t, f.host.Ran("supervisorctl update"))
}

func TestProvisionAbortsOnExistingDatabase(t *testing.T) {
	f := newFixture(t)
	f.panel.CreateDatabase("demo", "postgresql", "old") //nolint:errcheck
	f.panel.Calls = nil

	err := f.w.Provision()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))

	// Nothing was created and no files were uploaded.
	assert.Empty(t, f.panel.Calls)
	assert.Empty(t, f.localCmds)
}

func TestProvisionCreatesEverything(t *testing.T) {
	f := newFixture(t)
	f.w.Cfg.RequirementsPath = "requirements.txt"
	f.w.Cfg.AdminPass = "adm-pw"

	require.NoError(t, f.w.Provision())

	assert.True(t, f.host.Ran("virtualenv demo"))
	assert.True(t, f.panel.Created("create_db demo postgresql"))
	assert.True(t, f.panel.Created("create_app demo custom_app_with_port"))
	assert.True(t, f.panel.Created("create_app demo_static symlink54"))
	assert.True(t, f.panel.Created("create_domain example.com [www]"))
	assert.True(t, f.panel.Created("create_website demo web502.example.net"))

	// Code upload, requirements, and database bootstrap.
	require.Len(t, f.localCmds, 1)
	assert.Contains(t, f.localCmds[0], "rsync")
	assert.True(t, f.host.Ran("pip install -r /home/deploy/webapps/demo/requirements.txt"))
	assert.True(t, f.host.Ran("pip install gunicorn setproctitle psycopg2"))
	assert.True(t, f.host.Ran("manage.py createdb --noinput --nodata"))
	assert.True(t, f.host.Ran("site.domain = 'www.example.com'"))
	assert.True(t, f.host.Ran("set_password"))

	// The settings template landed rendered.
	content, ok := f.host.File("/home/deploy/webapps/demo/demo/local_settings.py")
	require.True(t, ok)
	assert.Equal(t, "ALLOWED_HOSTS = ['www.example.com']\n", content)
}

func TestProvisionRefusesToKeepExistingVenvWithoutConfirm(t *testing.T) {
	f := newFixture(t)
	f.prompter.ConfirmAll = false
	f.host.PutFile("/home/deploy/.virtualenvs/demo/bin/activate", "")

	err := f.w.Provision()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
	assert.False(t, f.host.Ran("virtualenv demo"))
}

func TestDeployEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.w.Cfg.RequirementsPath = "requirements.txt"
	f.host.PutFile("/home/deploy/webapps/demo/requirements.txt", "Django==4.2.1\n")
	f.host.PutFile("/home/deploy/webapps/demo/gunicorn.pid", "1234\n")
	f.panel.CreateApp("demo", "custom_app_with_port", true, "") //nolint:errcheck
	port := f.panel.Apps["demo"].Port
	f.panel.Calls = nil

	require.NoError(t, f.w.Deploy())

	// Backup of database and project tree before the upload.
	assert.True(t, f.host.Ran("pg_dump -U demo -Fc demo > last.db"))
	assert.True(t, f.host.Ran("tar -cf demo.tar"))

	// Upload happened locally; pinned unchanged requirements skip pip.
	require.Len(t, f.localCmds, 1)
	assert.Contains(t, f.localCmds[0], "rsync")
	assert.False(t, f.host.Ran("pip install -r"),
		"pinned and unchanged manifest must not reinstall")

	assert.True(t, f.host.Ran("collectstatic -v 0 --noinput"))
	assert.True(t, f.host.Ran("migrate --noinput"))

	// Rendered config carries the app's port and triggered a reload.
	content, ok := f.host.File("/home/deploy/etc/supervisor/conf.d/demo.conf")
	require.True(t, ok)
	assert.Contains(t, content, "[program:gunicorn_demo]")
	assert.Contains(t, content, "port = "+strconv.Itoa(port))
	assert.True(t, f.host.Ran("supervisorctl update gunicorn_demo"))

	// Static root prepared and workers restarted via the pid branch.
	_, ok = f.host.File("/home/deploy/webapps/demo/static/.htaccess")
	assert.True(t, ok)
	assert.True(t, f.host.Ran("supervisorctl restart gunicorn_demo"))
}

func TestDeployInstallsChangedRequirements(t *testing.T) {
	f := newFixture(t)
	f.w.Cfg.RequirementsPath = "requirements.txt"
	f.host.PutFile("/home/deploy/webapps/demo/requirements.txt", "Django==4.2.1\n")
	f.panel.CreateApp("demo", "custom_app_with_port", true, "") //nolint:errcheck

	// The upload changes the manifest on the host.
	f.w.RunLocal = func(cmd string) error {
		f.host.PutFile("/home/deploy/webapps/demo/requirements.txt", "Django==4.2.2\n")
		return nil
	}

	require.NoError(t, f.w.Deploy())
	assert.True(t, f.host.Ran("pip install -r /home/deploy/webapps/demo/requirements.txt"))
}

func TestDeployAbortsWhenProjectMissingAndDeclined(t *testing.T) {
	f := newFixture(t)
	f.prompter.ConfirmAll = false

	err := f.w.Deploy()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
	assert.False(t, f.host.Ran("pg_dump"), "no backup before the project exists")
}

func TestRollbackRequiresPreviousDeploy(t *testing.T) {
	f := newFixture(t)
	f.host.PutFile("/home/deploy/webapps/demo/settings.py", "x = 1\n")

	err := f.w.Rollback()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
	assert.False(t, f.host.Ran("rm -rf"), "nothing destroyed without backups")
	assert.False(t, f.host.Ran("pg_restore"))
}

func TestRollbackRestoresBackups(t *testing.T) {
	f := newFixture(t)
	f.host.PutFile("/home/deploy/webapps/demo/last.db", "dump")
	f.host.PutFile("/home/deploy/webapps/demo.tar", "tarball")
	f.host.PutFile("/home/deploy/webapps/demo/gunicorn.pid", "1234\n")

	require.NoError(t, f.w.Rollback())

	assert.True(t, f.host.Ran("rm -rf 'demo'"))
	assert.True(t, f.host.Ran("tar -xf demo.tar"))
	assert.True(t, f.host.Ran("pg_restore -U demo -c -d demo last.db"))
	assert.True(t, f.host.Ran("supervisorctl"))
}

func TestTeardownSkipsMissingRecords(t *testing.T) {
	f := newFixture(t)
	f.panel.CreateDatabase("demo", "postgresql", "pw")    //nolint:errcheck
	f.panel.CreateWebsite("demo", "web502", false, nil)   //nolint:errcheck
	delete(f.panel.DBUsers, "demo")
	f.panel.Calls = nil
	f.host.PutFile("/home/deploy/.virtualenvs/demo/bin/activate", "")

	require.NoError(t, f.w.Teardown())

	assert.True(t, f.panel.Created("delete_website demo"))
	assert.True(t, f.panel.Created("delete_db demo"))
	assert.False(t, f.panel.Created("delete_domain"), "domain was never registered")
	assert.False(t, f.panel.Created("delete_app"), "apps were never created")

	assert.True(t, f.host.Ran("rm -rf '/home/deploy/.virtualenvs/demo'"))
	assert.True(t, f.host.Ran("supervisorctl update"))
}

func TestMercurialIsRejected(t *testing.T) {
	f := newFixture(t)
	f.w.Cfg.DeployTool = "hg"

	err := f.w.Upload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mercurial")
}

func TestCronRequiresPollPeriod(t *testing.T) {
	f := newFixture(t)

	err := f.w.Cron()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	f.w.Cfg.PollPeriod = 10
	require.NoError(t, f.w.Cron())
	require.Len(t, f.panel.CronJobs, 1)
	assert.Contains(t, f.panel.CronJobs[0], "*/10 * * * *")
	assert.True(t, f.host.Ran("manage.py poll_twitter"))
}
