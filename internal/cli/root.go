// Package cli implements the webship command-line interface.
//
// Each Cobra command delegates to a workflow method; the withWorkflow
// helper handles the shared phases (load config, connect, wire the
// collaborators) so command bodies stay one line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/webship/webship/internal/ui"
)

// Global flags available to all subcommands
var (
	configFlag  string
	quietFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "webship",
	Short: "Provision and deploy Django projects to shared hosting",
	Long: `Webship provisions, deploys, and manages Django/Mezzanine projects
on shared hosting accounts driven over SSH and the hosting control panel.

A project is described by a .webship.yaml file. Typical lifecycle:

  webship init        - create a starter config
  webship bootstrap   - install per-server prerequisites (once per server)
  webship provision   - create the virtualenv, database, and panel records
  webship deploy      - push the latest version of the project
  webship rollback    - revert to the state before the last deploy
  webship teardown    - remove everything provision created`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColorFlag)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default .webship.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress task output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}
