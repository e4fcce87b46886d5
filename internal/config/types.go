package config

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// Config holds the deployment settings for one project, loaded once at
// process start from .webship.yaml. All fields are read-only for the
// duration of a run except DBPass and AdminPass, which may be populated
// lazily by the secrets prompter the first time they are needed.
type Config struct {
	// Hosts are the SSH targets, tried in order. The first entry is the
	// deployment target; an empty list aborts before any remote action.
	Hosts []string `yaml:"hosts" mapstructure:"hosts"`

	SSHUser    string `yaml:"ssh_user" mapstructure:"ssh_user"`
	SSHPass    string `yaml:"ssh_pass" mapstructure:"ssh_pass"`
	SSHKeyPath string `yaml:"ssh_key_path" mapstructure:"ssh_key_path"`

	// LiveDomain/LiveSubdomain identify the public site, e.g. www.example.com.
	LiveDomain    string `yaml:"live_domain" mapstructure:"live_domain"`
	LiveSubdomain string `yaml:"live_subdomain" mapstructure:"live_subdomain"`

	// Domains served by the site record. Defaults to the live host.
	Domains []string `yaml:"domains" mapstructure:"domains"`

	ProjectName string `yaml:"project_name" mapstructure:"project_name"`

	// ProjectApp is the Django app/settings package name. Defaults to ProjectName.
	ProjectApp string `yaml:"project_app" mapstructure:"project_app"`

	// DeployTool selects how project files reach the host: "rsync" or "git".
	DeployTool string `yaml:"deploy_tool" mapstructure:"deploy_tool"`

	// RequirementsPath is the pip manifest, relative to the project root.
	// Empty disables the requirements sync guard entirely.
	RequirementsPath string `yaml:"requirements_path" mapstructure:"requirements_path"`

	Locale     string `yaml:"locale" mapstructure:"locale"`
	NumWorkers string `yaml:"num_workers" mapstructure:"num_workers"`

	SecretKey     string `yaml:"secret_key" mapstructure:"secret_key"`
	NevercacheKey string `yaml:"nevercache_key" mapstructure:"nevercache_key"`

	// DBPass and AdminPass may be left empty and prompted for on first use.
	DBPass    string `yaml:"db_pass" mapstructure:"db_pass"`
	AdminPass string `yaml:"admin_pass" mapstructure:"admin_pass"`

	// PollPeriod is the cron poll interval in minutes for the social poller.
	// Zero disables the cron task.
	PollPeriod int `yaml:"poll_period" mapstructure:"poll_period"`

	// PanelURL is the control-panel API endpoint.
	PanelURL string `yaml:"panel_url" mapstructure:"panel_url"`
}

// vcsTools are the deploy tools that push through version control.
var vcsTools = []string{"git", "hg"}

// Host returns the deployment target (first configured host).
func (c *Config) Host() string {
	if len(c.Hosts) == 0 {
		return ""
	}
	return c.Hosts[0]
}

// LiveHost returns the public hostname: subdomain.domain, or just the
// domain when no subdomain is configured.
func (c *Config) LiveHost() string {
	if c.LiveSubdomain != "" {
		return c.LiveSubdomain + "." + c.LiveDomain
	}
	return c.LiveDomain
}

// IsVCS reports whether the selected deploy tool pushes through version control.
func (c *Config) IsVCS() bool {
	for _, t := range vcsTools {
		if c.DeployTool == t {
			return true
		}
	}
	return false
}

// Home returns the remote home directory of the SSH user.
func (c *Config) Home() string {
	return "/home/" + c.SSHUser
}

// VenvHome returns the directory holding all virtualenvs on the host.
func (c *Config) VenvHome() string {
	return path.Join(c.Home(), ".virtualenvs")
}

// VenvPath returns the project's virtualenv directory.
func (c *Config) VenvPath() string {
	return path.Join(c.VenvHome(), c.ProjectName)
}

// ProjPath returns the remote project directory.
func (c *Config) ProjPath() string {
	return path.Join(c.Home(), "webapps", c.ProjectName)
}

// RepoPath returns where uploaded code lives. Remote git repos are bare
// and reside separated from the project; for rsync deploys the project
// directory itself is the destination.
func (c *Config) RepoPath() string {
	if c.DeployTool == "git" {
		return path.Join(c.Home(), "webapps", "git_app", "repos", c.ProjectName+".git")
	}
	return c.ProjPath()
}

// Manage returns the remote manage.py invocation, using the virtualenv python.
func (c *Config) Manage() string {
	return fmt.Sprintf("%s/bin/python %s/manage.py", c.VenvPath(), c.ProjPath())
}

// Context returns the flat key/value mapping used for template
// substitution. Every %(key)s placeholder in a template descriptor must
// resolve against this map (plus any extras the caller merges in, such as
// gunicorn_port during deploy).
func (c *Config) Context() map[string]string {
	domains := c.Domains
	if len(domains) == 0 {
		domains = []string{c.LiveHost()}
	}
	quoted := make([]string, len(domains))
	for i, d := range domains {
		quoted[i] = "'" + d + "'"
	}

	return map[string]string{
		"user":           c.SSHUser,
		"proj_name":      c.ProjectName,
		"proj_app":       c.ProjectApp,
		"proj_path":      c.ProjPath(),
		"venv_home":      c.VenvHome(),
		"venv_path":      c.VenvPath(),
		"repo_path":      c.RepoPath(),
		"manage":         c.Manage(),
		"live_host":      c.LiveHost(),
		"domains_python": strings.Join(quoted, ", "),
		"locale":         c.Locale,
		"num_workers":    c.NumWorkers,
		"secret_key":     c.SecretKey,
		"nevercache_key": c.NevercacheKey,
		"db_pass":        c.DBPass,
		"admin_pass":     c.AdminPass,
	}
}

// Default returns a Config with the defaults applied.
func Default() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "root"
	}
	return &Config{
		SSHUser:    user,
		DeployTool: "rsync",
		Locale:     "en_US.UTF-8",
		NumWorkers: "multiprocessing.cpu_count() * 2 + 1",
		PanelURL:   "https://api.webfaction.com/",
	}
}
