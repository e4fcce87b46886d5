package workflow

import (
	"strconv"

	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/template"
	"github.com/webship/webship/internal/util"
)

// InstallBase installs the per-server prerequisites: the shared git app,
// pip and virtualenv tooling, a user-level supervisor, and memcached.
// Run once per server; every project deployed afterwards reuses it.
func (w *Workflow) InstallBase() error {
	if err := w.login(); err != nil {
		return err
	}
	if _, err := w.Panel.CreateApp("git_app", "git_230", false, w.Cfg.SSHPass); err != nil {
		return err
	}

	if _, err := w.Sess.RunChecked("easy_install-2.7 pip"); err != nil {
		return err
	}
	if _, err := w.Sess.RunChecked("pip install -U pip virtualenv virtualenvwrapper supervisor"); err != nil {
		return err
	}

	etc := w.Cfg.Home() + "/etc"
	if _, err := w.Sess.RunChecked("mkdir -p " + etc + "/supervisor/conf.d"); err != nil {
		return err
	}
	supervisord := template.Descriptor{
		Name:       "supervisord",
		LocalPath:  "deploy/supervisord.conf.template",
		RemotePath: etc + "/supervisord.conf",
	}
	if _, err := w.Renderer.Upload(supervisord); err != nil {
		return err
	}
	if _, err := w.Sess.RunChecked("mkdir -p " + w.Cfg.Home() + "/tmp"); err != nil {
		return err
	}
	if _, err := w.Sess.RunChecked("mkdir -p " + w.Cfg.Home() + "/logs"); err != nil {
		return err
	}
	if _, err := w.Sess.RunChecked("supervisord"); err != nil {
		return err
	}

	if _, err := w.Sess.RunChecked("mkdir -p " + util.ShellQuote(w.Cfg.VenvHome())); err != nil {
		return err
	}
	bashrc := w.Cfg.Home() + "/.bashrc"
	for _, line := range []string{
		"export WORKON_HOME=" + w.Cfg.VenvHome(),
		"export VIRTUALENVWRAPPER_PYTHON=/usr/local/bin/python2.7",
		"source $HOME/bin/virtualenvwrapper.sh",
	} {
		if _, err := w.Sess.RunChecked("echo '" + line + "' >> " + bashrc); err != nil {
			return err
		}
	}

	if _, err := w.Sess.RunChecked(
		"memcached -d -m 50 -s $HOME/memcached.sock -P $HOME/memcached.pid"); err != nil {
		return err
	}

	w.UI.Notice("Successfully set up git, pip, virtualenv, supervisor, memcached.")
	return nil
}

// Cron installs the crontab entry that polls social feeds every
// poll_period minutes, and runs the poller once to validate it.
func (w *Workflow) Cron() error {
	if w.Cfg.PollPeriod <= 0 {
		return errors.New(errors.ErrConfig,
			"poll_period is not set",
			"Set poll_period in .webship.yaml to the interval in minutes")
	}
	if err := w.login(); err != nil {
		return err
	}
	if err := w.Panel.CreateCronJob(w.cronLine()); err != nil {
		return err
	}
	if _, err := w.Manage("poll_twitter"); err != nil {
		return err
	}
	w.UI.Notice("New cronjob. Feeds will be polled every " +
		strconv.Itoa(w.Cfg.PollPeriod) + " minutes. " +
		"Make sure the account credentials are configured in the site settings.")
	return nil
}

// All bootstraps a new server end to end: base software, project
// environment, and a first deploy.
func (w *Workflow) All() error {
	if err := w.InstallBase(); err != nil {
		return err
	}
	if err := w.Provision(); err != nil {
		return err
	}
	return w.Deploy()
}
