package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner animation frames - braille scan pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner displays an animated status indicator with a label.
// Used for blocking round trips (SSH connect, panel login) where there is
// nothing to stream.
type Spinner struct {
	mu       sync.Mutex
	label    string
	frame    int
	stopChan chan struct{}
	doneChan chan struct{}
	output   func(string)
	running  bool
}

// NewSpinner creates a new spinner with the given label.
// Output defaults to fmt.Print; use SetOutput to customize.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:  label,
		output: func(s string) { fmt.Print(s) },
	}
}

// SetOutput sets the output function for the spinner.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	go s.animate()
}

// Stop halts the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

// Success stops the spinner and prints a success line.
func (s *Spinner) Success() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	symbol := styled(lipgloss.NewStyle().Foreground(ColorSuccess), SymbolSuccess)
	s.output(fmt.Sprintf("\r\033[K%s %s\n", symbol, s.label))
}

// Fail stops the spinner and prints a failure line.
func (s *Spinner) Fail() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	symbol := styled(lipgloss.NewStyle().Foreground(ColorError), SymbolFail)
	s.output(fmt.Sprintf("\r\033[K%s %s\n", symbol, s.label))
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			s.mu.Lock()
			s.output("\r\033[K")
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := styled(lipgloss.NewStyle().Foreground(ColorInfo), spinnerFrames[s.frame%len(spinnerFrames)])
			s.output(fmt.Sprintf("\r%s %s", frame, s.label))
			s.frame++
			s.mu.Unlock()
		}
	}
}
