// Package paneltest provides an in-memory control-panel fake for testing
// provisioning and teardown workflows without a provider account.
package paneltest

import (
	"fmt"
	"strings"

	"github.com/webship/webship/internal/panel"
)

// Fake implements panel.Client over in-memory state. Seed resources
// directly on the maps before running a workflow, then inspect the maps
// and the Calls log afterwards.
type Fake struct {
	Apps      map[string]panel.Resource
	Databases map[string]panel.Resource
	DBUsers   map[string]panel.Resource
	Domains   map[string][]string
	Websites  map[string]panel.Resource
	CronJobs  []string

	// Calls records every mutating method invoked, e.g. "create_db demo".
	Calls []string

	// LoginErr, when set, is returned from Login.
	LoginErr error
	LoggedIn bool

	// NextPort is assigned to the next created app.
	NextPort int
}

// New creates an empty fake panel.
func New() *Fake {
	return &Fake{
		Apps:      make(map[string]panel.Resource),
		Databases: make(map[string]panel.Resource),
		DBUsers:   make(map[string]panel.Resource),
		Domains:   make(map[string][]string),
		Websites:  make(map[string]panel.Resource),
		NextPort:  30000,
	}
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Login(user, password string) error {
	if f.LoginErr != nil {
		return f.LoginErr
	}
	f.LoggedIn = true
	return nil
}

func (f *Fake) ListApps() ([]panel.Resource, error) {
	return values(f.Apps), nil
}

func (f *Fake) CreateApp(name, appType string, autostart bool, extraInfo string) (panel.Resource, error) {
	f.record("create_app %s %s", name, appType)
	r := panel.Resource{Name: name, Port: f.NextPort}
	f.NextPort++
	f.Apps[name] = r
	return r, nil
}

func (f *Fake) DeleteApp(name string) error {
	f.record("delete_app %s", name)
	delete(f.Apps, name)
	return nil
}

func (f *Fake) ListDatabases() ([]panel.Resource, error) {
	return values(f.Databases), nil
}

func (f *Fake) CreateDatabase(name, engine, password string) (panel.Resource, error) {
	f.record("create_db %s %s", name, engine)
	r := panel.Resource{Name: name}
	f.Databases[name] = r
	f.DBUsers[name] = panel.Resource{Name: name}
	return r, nil
}

func (f *Fake) DeleteDatabase(name, engine string) error {
	f.record("delete_db %s %s", name, engine)
	delete(f.Databases, name)
	return nil
}

func (f *Fake) ListDatabaseUsers() ([]panel.Resource, error) {
	return values(f.DBUsers), nil
}

func (f *Fake) DeleteDatabaseUser(name, engine string) error {
	f.record("delete_db_user %s %s", name, engine)
	delete(f.DBUsers, name)
	return nil
}

func (f *Fake) ListDomains() ([]panel.Resource, error) {
	out := make([]panel.Resource, 0, len(f.Domains))
	for d, subs := range f.Domains {
		out = append(out, panel.Resource{Name: d, Subdomains: subs})
	}
	return out, nil
}

func (f *Fake) CreateDomain(domain string, subdomains ...string) (panel.Resource, error) {
	f.record("create_domain %s %v", domain, subdomains)
	f.Domains[domain] = append(f.Domains[domain], subdomains...)
	return panel.Resource{Name: domain, Subdomains: f.Domains[domain]}, nil
}

func (f *Fake) DeleteDomain(domain string, subdomains ...string) error {
	f.record("delete_domain %s %v", domain, subdomains)
	delete(f.Domains, domain)
	return nil
}

func (f *Fake) ListWebsites() ([]panel.Resource, error) {
	return values(f.Websites), nil
}

func (f *Fake) CreateWebsite(name, ip string, https bool, domains []string, mounts ...panel.Mount) (panel.Resource, error) {
	f.record("create_website %s %s", name, ip)
	r := panel.Resource{Name: name}
	f.Websites[name] = r
	return r, nil
}

func (f *Fake) DeleteWebsite(name, ip string) error {
	f.record("delete_website %s %s", name, ip)
	delete(f.Websites, name)
	return nil
}

func (f *Fake) CreateCronJob(line string) error {
	f.record("create_cronjob %s", line)
	f.CronJobs = append(f.CronJobs, line)
	return nil
}

func (f *Fake) DeleteCronJob(line string) error {
	f.record("delete_cronjob %s", line)
	out := f.CronJobs[:0]
	for _, l := range f.CronJobs {
		if l != line {
			out = append(out, l)
		}
	}
	f.CronJobs = out
	return nil
}

// Created reports whether a mutating call with the given prefix was made.
func (f *Fake) Created(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func values(m map[string]panel.Resource) []panel.Resource {
	out := make([]panel.Resource, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out
}
