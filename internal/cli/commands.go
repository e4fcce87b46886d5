package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/webship/webship/internal/config"
	"github.com/webship/webship/internal/errors"
	"github.com/webship/webship/internal/workflow"
)

// Command-specific flags
var initForce bool

// provisionCmd creates the hosting environment for the project
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the hosting environment for the project",
	Long: `Create everything the project needs on the host.

Sets up the virtualenv, creates the database, app, domain, and website
records in the control panel, uploads the project files, installs the
Python requirements, and initializes the database.

Aborts if any control-panel record with the project's name already exists.

Examples:
  webship provision
  webship provision --config staging.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("provision", func(w *workflow.Workflow) error {
			return w.Provision()
		})
	},
}

// teardownCmd removes everything provision created
var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Remove everything provision created",
	Long: `Blow away the current project.

Deletes the control-panel records, the virtualenv, the uploaded code,
and the rendered config files. Missing pieces are skipped, so a partial
provision can be cleaned up.

Examples:
  webship teardown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("teardown", func(w *workflow.Workflow) error {
			return w.Teardown()
		})
	},
}

// deployCmd pushes the latest version of the project
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the latest version of the project",
	Long: `Deploy the latest version of the project.

Backs up the current version, pushes the code via rsync or git, installs
changed requirements, migrates the database, collects static assets,
refreshes the rendered config files, and restarts the workers.

Examples:
  webship deploy
  webship deploy --quiet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("deploy", func(w *workflow.Workflow) error {
			return w.Deploy()
		})
	},
}

// rollbackCmd reverts to the state before the last deploy
var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the project to the last deploy",
	Long: `Revert the project to its state before the last deploy.

Restores the code, the static files, and the database from the backups
the last deploy left behind, then restarts the workers. Refuses to run
when those backups are missing.

Examples:
  webship rollback`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("rollback", func(w *workflow.Workflow) error {
			return w.Rollback()
		})
	},
}

// restartCmd restarts the project's worker processes
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the project's gunicorn workers",
	Long: `Restart the gunicorn worker processes for the project.
If the processes are not running, they will be started.

Examples:
  webship restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("restart", func(w *workflow.Workflow) error {
			return w.Restart()
		})
	},
}

// manageCmd runs a Django management command on the host
var manageCmd = &cobra.Command{
	Use:   "manage [command]",
	Short: "Run a Django management command on the host",
	Long: `Run a Django management command through the project's virtualenv.

Examples:
  webship manage createsuperuser
  webship manage "shell -c 'print(1)'"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("manage", func(w *workflow.Workflow) error {
			_, err := w.Manage(strings.Join(args, " "))
			return err
		})
	},
}

// pipCmd installs packages into the project's virtualenv
var pipCmd = &cobra.Command{
	Use:   "pip [packages]",
	Short: "Install Python packages into the project's virtualenv",
	Long: `Install one or more Python packages within the virtual environment.

Examples:
  webship pip requests
  webship pip "-r requirements/live.txt"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("pip", func(w *workflow.Workflow) error {
			return w.Pip(strings.Join(args, " "))
		})
	},
}

// backupCmd dumps the project database
var backupCmd = &cobra.Command{
	Use:   "backup <filename>",
	Short: "Back up the project database",
	Long: `Dump the project database to a file on the host.

Examples:
  webship backup snapshot.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("backup", func(w *workflow.Workflow) error {
			return w.Backup(args[0])
		})
	},
}

// restoreCmd restores the project database from a backup
var restoreCmd = &cobra.Command{
	Use:   "restore <filename>",
	Short: "Restore the project database from a backup",
	Long: `Restore the project database from a previous backup file.

Examples:
  webship restore snapshot.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("restore", func(w *workflow.Workflow) error {
			return w.Restore(args[0])
		})
	},
}

// execCmd runs an arbitrary shell command on the host
var execCmd = &cobra.Command{
	Use:   "exec [command]",
	Short: "Run a shell command on the host",
	Long: `Execute a shell command on the deployment host.

Examples:
  webship exec "ls -la"
  webship exec "supervisorctl status"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("exec", func(w *workflow.Workflow) error {
			return w.Sess.Stream(strings.Join(args, " "), os.Stdout, os.Stderr)
		})
	},
}

// cronCmd installs the periodic social poller
var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Install the cron job that polls social feeds",
	Long: `Set up a crontab entry that runs the project's feed poller every
poll_period minutes, and run the poller once to validate it.

Examples:
  webship cron`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("cron", func(w *workflow.Workflow) error {
			return w.Cron()
		})
	},
}

// bootstrapCmd installs per-server prerequisites
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Install per-server prerequisites",
	Long: `Install the software every project on the server shares: the git
app, pip and virtualenv tooling, a user-level supervisor, and memcached.

Run once per server; projects deployed afterwards reuse it.

Examples:
  webship bootstrap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("bootstrap", func(w *workflow.Workflow) error {
			return w.InstallBase()
		})
	},
}

// allCmd bootstraps, provisions, and deploys in one go
var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Bootstrap, provision, and deploy a new server",
	Long: `Install everything required on a new server and deploy.
From the base software up to the running project.

Examples:
  webship all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow("all", func(w *workflow.Workflow) error {
			return w.All()
		})
	},
}

// initCmd creates a starter .webship.yaml
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .webship.yaml configuration",
	Long: `Write a commented starter config to the current directory.

Examples:
  webship init
  webship init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(configFlag, initForce)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for webship.

Examples:
  # Bash
  webship completion bash > /etc/bash_completion.d/webship

  # Zsh
  webship completion zsh > "${fpath[1]}/_webship"`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

// initCommand writes the starter config to path (or the default name).
func initCommand(path string, force bool) error {
	if path == "" {
		path = config.ConfigFileName
	}
	if err := config.Scaffold(path, force); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	fmt.Println("Edit it to set your hosts, project_name, and domain, then run 'webship provision'.")
	return nil
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")

	// Register all commands
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(manageCmd)
	rootCmd.AddCommand(pipCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
}
