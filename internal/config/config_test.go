package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
hosts:
  - web1.example.com
ssh_user: deploy
project_name: demo
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rsync", cfg.DeployTool)
	assert.Equal(t, "en_US.UTF-8", cfg.Locale)
	assert.Equal(t, "demo", cfg.ProjectApp, "project_app follows project_name")
	assert.Equal(t, "multiprocessing.cpu_count() * 2 + 1", cfg.NumWorkers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.SSHUser = "deploy"
	cfg.ProjectName = "demo"

	assert.Equal(t, "/home/deploy/.virtualenvs/demo", cfg.VenvPath())
	assert.Equal(t, "/home/deploy/webapps/demo", cfg.ProjPath())
	assert.Equal(t, cfg.ProjPath(), cfg.RepoPath(), "rsync deploys straight into the project dir")
	assert.Contains(t, cfg.Manage(), "/home/deploy/.virtualenvs/demo/bin/python")
	assert.Contains(t, cfg.Manage(), "/home/deploy/webapps/demo/manage.py")

	cfg.DeployTool = "git"
	assert.Equal(t, "/home/deploy/webapps/git_app/repos/demo.git", cfg.RepoPath(),
		"git repos are bare and live outside the project dir")
}

func TestLiveHost(t *testing.T) {
	cfg := &Config{LiveDomain: "example.com"}
	assert.Equal(t, "example.com", cfg.LiveHost())

	cfg.LiveSubdomain = "www"
	assert.Equal(t, "www.example.com", cfg.LiveHost())
}

func TestContextMap(t *testing.T) {
	cfg := Default()
	cfg.SSHUser = "deploy"
	cfg.ProjectName = "demo"
	cfg.ProjectApp = "demo"
	cfg.LiveDomain = "example.com"
	cfg.LiveSubdomain = "www"

	ctx := cfg.Context()
	assert.Equal(t, "deploy", ctx["user"])
	assert.Equal(t, "demo", ctx["proj_name"])
	assert.Equal(t, "www.example.com", ctx["live_host"])
	assert.Equal(t, "'www.example.com'", ctx["domains_python"])

	cfg.Domains = []string{"www.example.com", "example.com"}
	ctx = cfg.Context()
	assert.Equal(t, "'www.example.com', 'example.com'", ctx["domains_python"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no hosts", func(c *Config) { c.Hosts = nil }, "no hosts"},
		{"empty host entry", func(c *Config) { c.Hosts = []string{""} }, "no hosts"},
		{"no project", func(c *Config) { c.ProjectName = "" }, "project name"},
		{"bad deploy tool", func(c *Config) { c.DeployTool = "ftp" }, "deploy tool"},
		{"subdomain without domain", func(c *Config) { c.LiveDomain = ""; c.LiveSubdomain = "www" }, "live_domain"},
		{"negative poll period", func(c *Config) { c.PollPeriod = -1 }, "poll_period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Hosts = []string{"web1"}
			cfg.SSHUser = "deploy"
			cfg.ProjectName = "demo"
			cfg.LiveDomain = "example.com"
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestScaffold(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, Scaffold(path, false))

	// The scaffold must itself be loadable.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "myproject", cfg.ProjectName)

	// Refuses to clobber without force.
	assert.Error(t, Scaffold(path, false))
	assert.NoError(t, Scaffold(path, true))
}
