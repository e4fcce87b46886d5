package workflow

import (
	"strconv"

	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/panel"
	"github.com/webship/webship/internal/reqs"
	"github.com/webship/webship/internal/template"
	"github.com/webship/webship/internal/util"
)

// Restart restarts the project's gunicorn workers, or starts them when
// they are not running yet. A pid file left by a running master selects
// the restart path; otherwise supervisor is told to pick up the program.
func (w *Workflow) Restart() error {
	pidPath := w.Cfg.ProjPath() + "/gunicorn.pid"
	running, err := w.Sess.Exists(pidPath)
	if err != nil {
		return err
	}
	if running {
		_, err = w.Sess.RunChecked("supervisorctl restart gunicorn_" + w.Cfg.ProjectName)
		return err
	}
	_, err = w.Sess.RunChecked("supervisorctl update")
	return err
}

// Deploy pushes the latest version of the project: back up the current
// state, upload the code, install changed requirements, migrate, collect
// static assets, refresh the rendered config files, and restart workers.
func (w *Workflow) Deploy() error {
	exists, err := w.Sess.Exists(w.Cfg.ProjPath())
	if err != nil {
		return err
	}
	if !exists {
		create, err := w.Secrets.Confirm(
			"Project does not exist in host server: " + w.Cfg.ProjectName +
				"\nWould you like to create it?")
		if err != nil {
			return err
		}
		if !create {
			return errors.New(errors.ErrConflict,
				"Aborted: project "+w.Cfg.ProjectName+" does not exist on the host", "")
		}
		if err := w.Provision(); err != nil {
			return err
		}
	}

	w.UI.Notice("Backing up static files and database...")
	if err := w.backupCurrent(); err != nil {
		return err
	}

	w.UI.Notice("Deploying the latest version of the project...")
	guard := reqs.NewGuard(w.Sess, w.remoteReqsPath())
	if err := guard.Capture(); err != nil {
		return err
	}
	if err := w.Upload(); err != nil {
		return err
	}
	if err := w.installChangedReqs(guard); err != nil {
		return err
	}

	staticDir, err := w.StaticRoot()
	if err != nil {
		return err
	}
	if _, err := w.Sess.RunChecked("mkdir -p " + util.ShellQuote(staticDir)); err != nil {
		return err
	}
	htaccess := template.Descriptor{
		Name:       "htaccess",
		LocalPath:  "deploy/htaccess",
		RemotePath: staticDir + "/.htaccess",
	}
	if _, err := w.Renderer.Upload(htaccess); err != nil {
		return err
	}
	if _, err := w.Manage("collectstatic -v 0 --noinput"); err != nil {
		return err
	}
	if _, err := w.Manage("migrate --noinput"); err != nil {
		return err
	}

	w.UI.Notice("Uploading configuration files...")
	if err := w.login(); err != nil {
		return err
	}
	app, found, err := panel.Find(w.Panel, panel.KindApp, w.Cfg.ProjectName, "")
	if err != nil {
		return err
	}
	if !found {
		return errors.New(errors.ErrPanel,
			"App "+w.Cfg.ProjectName+" not found in the control panel",
			"Run provision first")
	}
	// Templates reference the port supervisor binds gunicorn to.
	w.Renderer.Extra["gunicorn_port"] = strconv.Itoa(app.Port)
	if err := w.Renderer.UploadAll(); err != nil {
		return err
	}
	return w.Restart()
}

// backupCurrent snapshots the database, the deployed commit, and the
// static files so Rollback can restore them.
func (w *Workflow) backupCurrent() error {
	err := w.Sess.WithDir(w.Cfg.ProjPath(), func() error {
		return w.Backup("last.db")
	})
	if err != nil {
		return err
	}

	if w.Cfg.IsVCS() {
		err := w.Sess.WithDir(w.Cfg.RepoPath(), func() error {
			_, err := w.Sess.RunChecked("git rev-parse HEAD > " + w.Cfg.ProjPath() + "/last.commit")
			return err
		})
		if err != nil {
			return err
		}
		return w.Project(func() error {
			staticDir, err := w.StaticRoot()
			if err != nil {
				return err
			}
			exists, err := w.Sess.Exists(staticDir)
			if err != nil || !exists {
				return err
			}
			_, err = w.Sess.RunChecked(
				"tar -cf static.tar --exclude='*.thumbnails' " + staticDir)
			return err
		})
	}

	// Rsync deploys snapshot the whole project directory instead.
	return w.Sess.WithDir(parentDir(w.Cfg.ProjPath()), func() error {
		_, err := w.Sess.RunChecked(
			"tar -cf " + w.Cfg.ProjectName + ".tar" +
				" --exclude='*.pyc' --exclude='*.pio' --exclude='*.thumbnails' " +
				w.Cfg.ProjectName)
		return err
	})
}

// Rollback reverts the project to the state captured by the last Deploy:
// code, static files, and database.
func (w *Workflow) Rollback() error {
	if err := w.checkRollbackState(); err != nil {
		return err
	}

	guard := reqs.NewGuard(w.Sess, w.remoteReqsPath())
	if err := guard.Capture(); err != nil {
		return err
	}

	if w.Cfg.IsVCS() {
		err := w.Sess.WithDir(w.Cfg.RepoPath(), func() error {
			proj := w.Cfg.ProjPath()
			_, err := w.Sess.RunChecked(
				"GIT_WORK_TREE=" + proj + " git checkout -f `cat " + proj + "/last.commit`")
			return err
		})
		if err != nil {
			return err
		}
		err = w.Project(func() error {
			staticDir, err := w.StaticRoot()
			if err != nil {
				return err
			}
			return w.Sess.WithDir(parentDir(staticDir), func() error {
				_, err := w.Sess.RunChecked("tar -xf " + w.Cfg.ProjPath() + "/static.tar")
				return err
			})
		})
		if err != nil {
			return err
		}
	} else {
		err := w.Sess.WithDir(parentDir(w.Cfg.ProjPath()), func() error {
			if _, err := w.Sess.RunChecked("rm -rf " + util.ShellQuote(w.Cfg.ProjectName)); err != nil {
				return err
			}
			_, err := w.Sess.RunChecked("tar -xf " + w.Cfg.ProjectName + ".tar")
			return err
		})
		if err != nil {
			return err
		}
	}

	if err := w.installChangedReqs(guard); err != nil {
		return err
	}

	err := w.Sess.WithDir(w.Cfg.ProjPath(), func() error {
		return w.Restore("last.db")
	})
	if err != nil {
		return err
	}
	return w.Restart()
}

// checkRollbackState verifies every artifact of the last deploy exists
// before any destructive step runs. A rollback that fails halfway through
// is worse than one that refuses to start.
func (w *Workflow) checkRollbackState() error {
	required := []string{w.Cfg.ProjPath() + "/last.db"}
	if w.Cfg.IsVCS() {
		required = append(required,
			w.Cfg.ProjPath()+"/last.commit",
			w.Cfg.ProjPath()+"/static.tar")
	} else {
		required = append(required,
			parentDir(w.Cfg.ProjPath())+"/"+w.Cfg.ProjectName+".tar")
	}
	for _, p := range required {
		exists, err := w.Sess.Exists(p)
		if err != nil {
			return err
		}
		if !exists {
			return errors.New(errors.ErrConflict,
				"No previous deploy to roll back to: missing "+p,
				"Rollback needs the backups a successful deploy leaves behind")
		}
	}
	return nil
}

// remoteReqsPath returns the manifest path on the host, or empty when the
// requirements guard is disabled.
func (w *Workflow) remoteReqsPath() string {
	if w.Cfg.RequirementsPath == "" {
		return ""
	}
	return w.Cfg.ProjPath() + "/" + w.Cfg.RequirementsPath
}

// installChangedReqs runs pip when the guard decides the manifest needs
// re-resolving after an upload or rollback.
func (w *Workflow) installChangedReqs(guard *reqs.Guard) error {
	need, err := guard.NeedsInstall()
	if err != nil {
		return err
	}
	if !need {
		return nil
	}
	return w.Pip("-r " + w.remoteReqsPath())
}
