package config

import (
	"os"

	"github.com/webship/webship/internal/errors"
	"gopkg.in/yaml.v3"
)

const scaffoldHeader = `# webship deployment settings.
# Fill in the hosts list and project identity, then run 'webship provision'.
# db_pass and admin_pass may be omitted; they are prompted for when needed.
`

// Scaffold writes a starter config file at path. Refuses to overwrite an
// existing file unless force is set.
func Scaffold(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			"Config file already exists: "+path,
			"Use --force to overwrite it")
	}

	cfg := Default()
	cfg.Hosts = []string{"deploy@example.com"}
	cfg.ProjectName = "myproject"
	cfg.LiveDomain = "example.com"
	cfg.LiveSubdomain = "www"
	cfg.RequirementsPath = "requirements.txt"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to render starter config", "")
	}

	if err := os.WriteFile(path, append([]byte(scaffoldHeader), data...), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check directory permissions")
	}

	return nil
}
