package config

import (
	"fmt"

	"github.com/webship/webship/internal/errors"
)

// validDeployTools are the accepted deploy_tool values. Mercurial is
// accepted at config time but rejected with an explicit message when an
// upload is attempted.
var validDeployTools = map[string]bool{
	"rsync": true,
	"git":   true,
	"hg":    true,
}

// Validate checks the config for errors before any remote action runs.
// A missing or empty host list is a hard startup abort.
func Validate(cfg *Config) error {
	if len(cfg.Hosts) == 0 || cfg.Hosts[0] == "" {
		return errors.New(errors.ErrConfig,
			"Aborting, no hosts defined",
			"Add at least one entry under 'hosts' in "+ConfigFileName)
	}

	if cfg.ProjectName == "" {
		return errors.New(errors.ErrConfig,
			"No project name configured",
			"Set 'project_name' in "+ConfigFileName)
	}

	if cfg.SSHUser == "" {
		return errors.New(errors.ErrConfig,
			"No SSH user configured",
			"Set 'ssh_user' in "+ConfigFileName)
	}

	if !validDeployTools[cfg.DeployTool] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown deploy tool '%s'", cfg.DeployTool),
			"Use 'rsync' or 'git'")
	}

	if cfg.LiveSubdomain != "" && cfg.LiveDomain == "" {
		return errors.New(errors.ErrConfig,
			"live_subdomain is set but live_domain is empty",
			"Set 'live_domain' so the public host resolves")
	}

	if cfg.PollPeriod < 0 {
		return errors.New(errors.ErrConfig,
			"poll_period must be a positive number of minutes",
			"Remove the setting or use a value like 15")
	}

	return nil
}
