package cli

import (
	"os"
	"time"

	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/panel"
	"github.com/webship/webship/internal/remote"
	"github.com/webship/webship/internal/secrets"
	"github.com/webship/webship/internal/ui"
	"github.com/webship/webship/internal/workflow"
	"github.com/webship/webship/pkg/sshutil"
)

// dialTimeout bounds the SSH connection attempt.
const dialTimeout = 30 * time.Second

// loadConfig finds, loads, and validates the project config.
func loadConfig() (*config.Config, error) {
	path, err := config.Find(configFlag)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New(errors.ErrConfig,
			"No config file found",
			"Run 'webship init' to create a .webship.yaml config file")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withWorkflow handles the phases every deployment command shares: load
// and validate the config, connect to the host, wire the workflow, run
// the task, and report the outcome.
func withWorkflow(task string, fn func(w *workflow.Workflow) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.SetQuiet(quietFlag)
	printer.TaskBanner(task)

	spinner := ui.NewSpinner("Connecting to " + cfg.Host())
	if !quietFlag {
		spinner.Start()
	}
	client, err := sshutil.Dial(cfg.Host(), sshutil.Options{
		User:     cfg.SSHUser,
		Password: cfg.SSHPass,
		KeyPath:  cfg.SSHKeyPath,
		Timeout:  dialTimeout,
	})
	if !quietFlag {
		if err != nil {
			spinner.Fail()
		} else {
			spinner.Success()
		}
	}
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	sess := remote.NewSession(client)
	sess.Echo = printer.Command

	w := workflow.New(cfg, sess,
		panel.NewRPCClient(cfg.PanelURL),
		secrets.NewTerminal(), printer)

	start := time.Now()
	if err := fn(w); err != nil {
		printer.Fail(task)
		return err
	}
	printer.Success(task, time.Since(start))
	return nil
}
