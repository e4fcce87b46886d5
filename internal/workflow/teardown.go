package workflow

import (
	"github.com/webship/webship/internal/panel"
	"github.com/webship/webship/internal/template"
	"github.com/webship/webship/internal/util"
)

// Teardown removes everything Provision created: control-panel records,
// the virtualenv, the uploaded code, and the rendered config files.
// Missing pieces are skipped, so a partial provision can be cleaned up.
func (w *Workflow) Teardown() error {
	w.UI.Notice("Removing database and website records from the control panel...")
	if err := w.login(); err != nil {
		return err
	}
	if err := w.deletePanelRecords(); err != nil {
		return err
	}

	if err := w.removeIfExists(w.Cfg.VenvPath(), true); err != nil {
		return err
	}
	if err := w.removeIfExists(w.Cfg.RepoPath(), true); err != nil {
		return err
	}
	for _, d := range template.Builtin() {
		remotePath, err := w.Renderer.RemotePath(d)
		if err != nil {
			return err
		}
		if err := w.removeIfExists(remotePath, false); err != nil {
			return err
		}
	}

	_, err := w.Sess.RunChecked("supervisorctl update")
	return err
}

// deletePanelRecords removes the project's control-panel records in
// reverse dependency order: website first, database user last.
func (w *Workflow) deletePanelRecords() error {
	proj := w.Cfg.ProjectName

	if err := w.deleteIfPresent(panel.KindWebsite, proj, "", func() error {
		return w.Panel.DeleteWebsite(proj, w.Cfg.Host())
	}); err != nil {
		return err
	}
	if err := w.deleteIfPresent(panel.KindDomain, w.Cfg.LiveDomain, w.Cfg.LiveSubdomain, func() error {
		return w.Panel.DeleteDomain(w.Cfg.LiveDomain, w.subdomains()...)
	}); err != nil {
		return err
	}
	if err := w.deleteIfPresent(panel.KindApp, proj, "", func() error {
		return w.Panel.DeleteApp(proj)
	}); err != nil {
		return err
	}
	staticApp := proj + "_static"
	if err := w.deleteIfPresent(panel.KindApp, staticApp, "", func() error {
		return w.Panel.DeleteApp(staticApp)
	}); err != nil {
		return err
	}
	if err := w.deleteIfPresent(panel.KindDatabase, proj, "", func() error {
		return w.Panel.DeleteDatabase(proj, "postgresql")
	}); err != nil {
		return err
	}
	if err := w.deleteIfPresent(panel.KindDatabaseUser, proj, "", func() error {
		return w.Panel.DeleteDatabaseUser(proj, "postgresql")
	}); err != nil {
		return err
	}

	if w.Cfg.PollPeriod > 0 {
		if err := w.Panel.DeleteCronJob(w.cronLine()); err != nil {
			return err
		}
	}
	return nil
}

// deleteIfPresent runs del only when the resource exists.
func (w *Workflow) deleteIfPresent(kind panel.Kind, name, subdomain string, del func() error) error {
	_, found, err := panel.Find(w.Panel, kind, name, subdomain)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return del()
}

// removeIfExists deletes a remote path when present. recursive selects
// rm -rf over plain rm.
func (w *Workflow) removeIfExists(p string, recursive bool) error {
	exists, err := w.Sess.Exists(p)
	if err != nil || !exists {
		return err
	}
	cmd := "rm "
	if recursive {
		cmd = "rm -rf "
	}
	_, err = w.Sess.RunChecked(cmd + util.ShellQuote(p))
	return err
}
