// Package secrets supplies interactive credentials to the workflows.
// Workflows depend on the Prompter interface so tests can run without a
// terminal.
package secrets

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/webship/webship/internal/errors"
	"golang.org/x/term"
)

// Prompter obtains secrets and confirmations from the operator.
type Prompter interface {
	// Secret returns the value for the labelled credential.
	Secret(label string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(message string) (bool, error)
}

// Terminal is the interactive Prompter. Any prompt issued while stdin is
// not a terminal aborts with a CONFIG error instead of hanging.
type Terminal struct{}

// NewTerminal returns the interactive prompter.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) Secret(label string) (string, error) {
	if !interactive() {
		return "", errors.New(errors.ErrConfig,
			"Can't prompt for '"+label+"' without a terminal",
			"Set the value in .webship.yaml when running non-interactively")
	}

	var value string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(label).
			EchoMode(huh.EchoModePassword).
			Value(&value),
	))
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Prompt for '"+label+"' was cancelled", "")
	}
	return value, nil
}

func (t *Terminal) Confirm(message string) (bool, error) {
	if !interactive() {
		return false, errors.New(errors.ErrConfig,
			"Can't confirm '"+message+"' without a terminal",
			"Run interactively, or adjust the config so no confirmation is needed")
	}

	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Confirmation was cancelled", "")
	}
	return ok, nil
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Static is a Prompter with fixed answers, for tests and scripted runs.
type Static struct {
	// Values maps prompt labels to answers. Missing labels fall back to Default.
	Values  map[string]string
	Default string

	// ConfirmAll is the answer for every Confirm call.
	ConfirmAll bool

	// SecretCalls records the labels prompted for, in order.
	SecretCalls []string
}

func (s *Static) Secret(label string) (string, error) {
	s.SecretCalls = append(s.SecretCalls, label)
	if v, ok := s.Values[label]; ok {
		return v, nil
	}
	return s.Default, nil
}

func (s *Static) Confirm(message string) (bool, error) {
	return s.ConfirmAll, nil
}
