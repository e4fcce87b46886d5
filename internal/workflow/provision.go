package workflow

import (
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/panel"
	"github.com/webship/webship/internal/template"
	"github.com/webship/webship/internal/util"
)

// Provision creates everything the project needs on the host: the
// virtualenv, the control-panel records (database, apps, domain, website),
// the project files, and the initial database content.
//
// Every control-panel record is checked first and an existing one aborts
// the run; provisioning never adopts or overwrites resources it did not
// create. The one exception is the virtualenv, which may be replaced after
// an explicit confirmation.
func (w *Workflow) Provision() error {
	if err := w.createVirtualenv(); err != nil {
		return err
	}

	w.UI.Notice("Creating database and website records in the control panel...")
	if err := w.login(); err != nil {
		return err
	}
	if err := w.createPanelRecords(); err != nil {
		return err
	}

	w.UI.Notice("Uploading project files...")
	if err := w.Upload(); err != nil {
		return err
	}

	w.UI.Notice("Installing project requirements...")
	settings, err := template.ByName("settings")
	if err != nil {
		return err
	}
	if _, err := w.Renderer.Upload(settings); err != nil {
		return err
	}

	return w.Project(func() error {
		if w.Cfg.RequirementsPath != "" {
			err := w.Pip("-r " + w.Cfg.ProjPath() + "/" + w.Cfg.RequirementsPath)
			if err != nil {
				return err
			}
		}
		if err := w.Pip("gunicorn setproctitle psycopg2 " +
			"django-compressor python-memcached"); err != nil {
			return err
		}

		w.UI.Notice("Initializing the database...")
		if _, err := w.Manage("createdb --noinput --nodata"); err != nil {
			return err
		}
		_, err := w.Python("from django.conf import settings;"+
			"from django.contrib.sites.models import Site;"+
			"site, _ = Site.objects.get_or_create(id=settings.SITE_ID);"+
			"site.domain = '"+w.Cfg.LiveHost()+"';"+
			"site.save();", true)
		if err != nil {
			return err
		}

		if w.Cfg.AdminPass != "" {
			// Echoed separately with the password shadowed.
			userPy := "from django.contrib.auth import get_user_model;" +
				"User = get_user_model();" +
				"u, _ = User.objects.get_or_create(username='admin');" +
				"u.is_staff = u.is_superuser = True;" +
				"u.set_password('" + w.Cfg.AdminPass + "');" +
				"u.save();"
			if _, err := w.Python(userPy, false); err != nil {
				return err
			}
			shadowed := ""
			for range w.Cfg.AdminPass {
				shadowed += "*"
			}
			w.UI.Command("... u.set_password('" + shadowed + "'); u.save();")
		}
		return nil
	})
}

// createVirtualenv sets up a fresh virtualenv for the project, asking
// before replacing an existing one.
func (w *Workflow) createVirtualenv() error {
	venvHome := w.Cfg.VenvHome()
	if _, err := w.Sess.RunChecked("mkdir -p " + util.ShellQuote(venvHome)); err != nil {
		return err
	}
	return w.Sess.WithDir(venvHome, func() error {
		exists, err := w.Sess.Exists(w.Cfg.VenvPath())
		if err != nil {
			return err
		}
		if exists {
			replace, err := w.Secrets.Confirm(
				"Virtualenv already exists in host server: " + w.Cfg.ProjectName +
					"\nWould you like to replace it?")
			if err != nil {
				return err
			}
			if !replace {
				return errors.New(errors.ErrConflict,
					"Aborted: virtualenv "+w.Cfg.ProjectName+" already exists", "")
			}
			if _, err := w.Sess.RunChecked("rm -rf " + util.ShellQuote(w.Cfg.ProjectName)); err != nil {
				return err
			}
		}
		if _, err := w.Sess.RunChecked("virtualenv " + util.ShellQuote(w.Cfg.ProjectName)); err != nil {
			return err
		}
		// Keep the venv isolated from anything in the system site-packages.
		_, err = w.Sess.RunChecked("touch " + w.Cfg.ProjectName + "/lib/python2.7/sitecustomize.py")
		return err
	})
}

// createPanelRecords creates the database, apps, domain, and website.
// Each existence check aborts with a CONFLICT error so a half-provisioned
// account is never silently reused.
func (w *Workflow) createPanelRecords() error {
	proj := w.Cfg.ProjectName

	if err := w.requireAbsent(panel.KindDatabaseUser, proj, ""); err != nil {
		return err
	}
	if err := w.requireAbsent(panel.KindDatabase, proj, ""); err != nil {
		return err
	}
	dbPass, err := w.ensureDBPass()
	if err != nil {
		return err
	}
	if _, err := w.Panel.CreateDatabase(proj, "postgresql", dbPass); err != nil {
		return err
	}

	if err := w.requireAbsent(panel.KindApp, proj, ""); err != nil {
		return err
	}
	if _, err := w.Panel.CreateApp(proj, "custom_app_with_port", true, ""); err != nil {
		return err
	}

	staticApp := proj + "_static"
	if err := w.requireAbsent(panel.KindApp, staticApp, ""); err != nil {
		return err
	}
	staticDir := w.Cfg.ProjPath() + "/static"
	if _, err := w.Panel.CreateApp(staticApp, "symlink54", false, staticDir); err != nil {
		return err
	}

	if err := w.requireAbsent(panel.KindDomain, w.Cfg.LiveDomain, w.Cfg.LiveSubdomain); err != nil {
		return err
	}
	if _, err := w.Panel.CreateDomain(w.Cfg.LiveDomain, w.subdomains()...); err != nil {
		return err
	}

	if err := w.requireAbsent(panel.KindWebsite, proj, ""); err != nil {
		return err
	}
	_, err = w.Panel.CreateWebsite(proj, w.Cfg.Host(), false,
		[]string{w.Cfg.LiveHost()},
		panel.Mount{App: proj, Path: "/"},
		panel.Mount{App: staticApp, Path: "/static"})
	return err
}

// requireAbsent aborts with a CONFLICT error when the named resource
// already exists in the control panel.
func (w *Workflow) requireAbsent(kind panel.Kind, name, subdomain string) error {
	_, found, err := panel.Find(w.Panel, kind, name, subdomain)
	if err != nil {
		return err
	}
	if found {
		label := name
		if kind == panel.KindDomain && subdomain != "" {
			label = subdomain + "." + name
		}
		return errors.New(errors.ErrConflict,
			"A "+kind.String()+" named "+label+" already exists",
			"Run teardown first, or pick a different project_name")
	}
	return nil
}

func (w *Workflow) subdomains() []string {
	if w.Cfg.LiveSubdomain == "" {
		return nil
	}
	return []string{w.Cfg.LiveSubdomain}
}
