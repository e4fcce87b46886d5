package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "'hello'"},
		{"with space", "hello world", "'hello world'"},
		{"with single quote", "it's", "'it'\\''s'"},
		{"empty", "", "''"},
		{"command injection attempt", "$(rm -rf /)", "'$(rm -rf /)'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.input))
		})
	}
}

func TestShellQuotePreserveTilde(t *testing.T) {
	assert.Equal(t, "~/'webapps/demo'", ShellQuotePreserveTilde("~/webapps/demo"))
	assert.Equal(t, "~", ShellQuotePreserveTilde("~"))
	assert.Equal(t, "'/home/deploy'", ShellQuotePreserveTilde("/home/deploy"))
}
