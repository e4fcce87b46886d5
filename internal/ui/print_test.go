package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskBanner(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.TaskBanner("deploy")

	out := buf.String()
	assert.Contains(t, out, "deploy")
	// Rules above and below, matching the task name length.
	assert.Equal(t, 2, strings.Count(out, "------"))
}

func TestQuietSuppressesOutput(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.SetQuiet(true)

	p.TaskBanner("deploy")
	p.Command("ls")
	p.Notice("Backing up")
	p.Success("done", time.Second)
	p.Skipped("sync", "unchanged")
	assert.Empty(t, buf.String())

	// Failures always print.
	p.Fail("boom")
	assert.Contains(t, buf.String(), "boom")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "(250ms)", formatDuration(250*time.Millisecond))
	assert.Equal(t, "(2.5s)", formatDuration(2500*time.Millisecond))
	assert.Equal(t, "", formatDuration(0))
}
