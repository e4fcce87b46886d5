// Package workflow implements the deployment tasks: provisioning a host,
// uploading code, deploying, rolling back, and tearing everything down.
// Each task drives a remote session, the control-panel client, and the
// template renderer against one configured project.
package workflow

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/logger"
	"github.com/webship/webship/internal/panel"
	"github.com/webship/webship/internal/remote"
	"github.com/webship/webship/internal/secrets"
	"github.com/webship/webship/internal/template"
	"github.com/webship/webship/internal/ui"
	"github.com/webship/webship/internal/util"
)

// Workflow bundles the collaborators every deployment task needs.
type Workflow struct {
	Cfg      *config.Config
	Sess     *remote.Session
	Panel    panel.Client
	Secrets  secrets.Prompter
	UI       *ui.Printer
	Renderer *template.Renderer

	// RunLocal executes a command on the operator's machine. Rsync and
	// git push run locally; everything else runs on the host.
	RunLocal func(cmd string) error

	loggedIn bool
	log      logger.Logger
}

// New wires a workflow from its collaborators.
func New(cfg *config.Config, sess *remote.Session, client panel.Client,
	prompter secrets.Prompter, printer *ui.Printer) *Workflow {
	w := &Workflow{
		Cfg:      cfg,
		Sess:     sess,
		Panel:    client,
		Secrets:  prompter,
		UI:       printer,
		Renderer: template.NewRenderer(sess, cfg, prompter),
		log:      logger.NewEnvLogger("[workflow]"),
	}
	w.RunLocal = func(cmd string) error {
		w.UI.Command(cmd)
		c := exec.Command("sh", "-c", cmd)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrExec,
				"Local command failed: "+cmd, "")
		}
		return nil
	}
	return w
}

// Venv runs fn inside the project's virtualenv: cwd set to the venv and
// the activate script sourced.
func (w *Workflow) Venv(fn func() error) error {
	venv := w.Cfg.VenvPath()
	return w.Sess.WithDir(venv, func() error {
		return w.Sess.WithPrefix("source "+venv+"/bin/activate", fn)
	})
}

// Project runs fn inside the virtualenv with the project directory as cwd.
func (w *Workflow) Project(fn func() error) error {
	return w.Venv(func() error {
		return w.Sess.WithDir(w.Cfg.ProjPath(), fn)
	})
}

// Manage runs a Django management command through the virtualenv python.
func (w *Workflow) Manage(command string) (remote.Result, error) {
	return w.Sess.RunChecked(w.Cfg.Manage() + " " + command)
}

// Python runs a snippet inside the project with Django set up. The
// snippet's command echo can be suppressed for lines carrying secrets.
func (w *Workflow) Python(code string, show bool) (string, error) {
	setup := fmt.Sprintf("import os;"+
		"os.environ['DJANGO_SETTINGS_MODULE']='%s.settings';"+
		"import django;"+
		"django.setup();", w.Cfg.ProjectApp)
	escaped := strings.ReplaceAll(code, "`", "\\`")
	full := fmt.Sprintf(`python -c "%s%s"`, setup, escaped)

	var out string
	err := w.Project(func() error {
		if show {
			w.UI.Command(code)
		}
		res, err := w.Sess.RunQuiet(full)
		if err != nil {
			return err
		}
		if res.Failed() {
			return errors.New(errors.ErrExec,
				fmt.Sprintf("Python snippet failed with exit code %d", res.ExitCode),
				strings.TrimSpace(res.Stderr))
		}
		out = res.Stdout
		return nil
	})
	return out, err
}

// StaticRoot returns the live STATIC_ROOT directory by asking the
// project's settings.
func (w *Workflow) StaticRoot() (string, error) {
	out, err := w.Python("from django.conf import settings;"+
		"print(settings.STATIC_ROOT)", false)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return lines[len(lines)-1], nil
}

// Pip installs packages into the project's virtualenv.
func (w *Workflow) Pip(packages string) error {
	return w.Venv(func() error {
		_, err := w.Sess.RunChecked("pip install " + packages)
		return err
	})
}

// Backup dumps the project database to filename, relative to the current
// remote directory.
func (w *Workflow) Backup(filename string) error {
	w.UI.Notice("Input the remote database password")
	_, err := w.Sess.RunChecked(fmt.Sprintf("pg_dump -U %s -Fc %s > %s",
		w.Cfg.ProjectName, w.Cfg.ProjectName, filename))
	return err
}

// Restore loads the project database from a previous Backup dump.
func (w *Workflow) Restore(filename string) error {
	w.UI.Notice("Input the remote database password")
	_, err := w.Sess.RunChecked(fmt.Sprintf("pg_restore -U %s -c -d %s %s",
		w.Cfg.ProjectName, w.Cfg.ProjectName, filename))
	return err
}

// Upload pushes the project files to the host with the configured tool.
func (w *Workflow) Upload() error {
	if w.Cfg.IsVCS() {
		return w.vcsUpload()
	}
	return w.rsyncUpload()
}

// rsyncUpload syncs the working directory to the remote project path,
// excluding build artifacts and files managed on the host.
func (w *Workflow) rsyncUpload() error {
	excludes := []string{"*.pyc", "*.pyo", "*.db", ".DS_Store", ".coverage",
		"local_settings.py", "/static", "/.git", "/.hg"}
	args := make([]string, 0, len(excludes))
	for _, e := range excludes {
		args = append(args, "--exclude="+util.ShellQuote(e))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Can't determine the local project directory", "")
	}
	cmd := fmt.Sprintf("rsync -pthrvz --rsh='ssh -o StrictHostKeyChecking=no' %s %s %s@%s:%s",
		strings.Join(args, " "), util.ShellQuote(cwd+"/"),
		w.Cfg.SSHUser, w.Cfg.Host(), util.ShellQuote(w.Cfg.ProjPath()))
	return w.RunLocal(cmd)
}

// vcsUpload force-pushes master to a bare repo on the host and checks it
// out into the project directory.
func (w *Workflow) vcsUpload() error {
	if w.Cfg.DeployTool != "git" {
		return errors.New(errors.ErrConfig,
			"Mercurial is not currently supported",
			"Set deploy_tool to git or rsync")
	}

	repo := w.Cfg.RepoPath()
	exists, err := w.Sess.Exists(repo)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := w.Sess.RunChecked("mkdir -p " + util.ShellQuote(repo)); err != nil {
			return err
		}
		err = w.Sess.WithDir(repo, func() error {
			_, err := w.Sess.RunChecked("git init --bare")
			return err
		})
		if err != nil {
			return err
		}
	}

	push := fmt.Sprintf("git push -f ssh://%s@%s%s master",
		w.Cfg.SSHUser, w.Cfg.Host(), repo)
	if err := w.RunLocal(push); err != nil {
		return err
	}

	proj := w.Cfg.ProjPath()
	return w.Sess.WithDir(repo, func() error {
		if _, err := w.Sess.RunChecked("GIT_WORK_TREE=" + proj + " git checkout -f master"); err != nil {
			return err
		}
		_, err := w.Sess.RunChecked("GIT_WORK_TREE=" + proj + " git reset --hard")
		return err
	})
}

// login authenticates against the control panel once per run, prompting
// for the account password when the config doesn't carry one.
func (w *Workflow) login() error {
	if w.loggedIn {
		return nil
	}
	pass := w.Cfg.SSHPass
	if pass == "" {
		var err error
		pass, err = w.Secrets.Secret(
			"Control panel password for " + w.Cfg.SSHUser)
		if err != nil {
			return err
		}
		w.Cfg.SSHPass = pass
	}
	if err := w.Panel.Login(w.Cfg.SSHUser, pass); err != nil {
		return err
	}
	w.loggedIn = true
	return nil
}

// ensureDBPass returns the database password, prompting once if needed.
func (w *Workflow) ensureDBPass() (string, error) {
	if w.Cfg.DBPass != "" {
		return w.Cfg.DBPass, nil
	}
	pass, err := w.Secrets.Secret("Database password")
	if err != nil {
		return "", err
	}
	w.Cfg.DBPass = pass
	w.Renderer.Extra["db_pass"] = pass
	return pass, nil
}

// cronLine is the crontab entry for the social poller.
func (w *Workflow) cronLine() string {
	return fmt.Sprintf("*/%d * * * * %s poll_twitter",
		w.Cfg.PollPeriod, w.Cfg.Manage())
}

// parentDir returns the directory above p.
func parentDir(p string) string {
	return path.Dir(strings.TrimSuffix(p, "/"))
}
