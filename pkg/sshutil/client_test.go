package sshutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSSHSettingsParsesHostString(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		opts     Options
		wantUser string
		wantHost string
		wantPort string
	}{
		{
			name:     "plain hostname with configured user",
			host:     "web502.example.net",
			opts:     Options{User: "deploy"},
			wantUser: "deploy",
			wantHost: "web502.example.net",
			wantPort: "22",
		},
		{
			name:     "user@host overrides configured user",
			host:     "admin@web502.example.net",
			opts:     Options{User: "deploy"},
			wantUser: "admin",
			wantHost: "web502.example.net",
			wantPort: "22",
		},
		{
			name:     "host with port",
			host:     "web502.example.net:2222",
			opts:     Options{User: "deploy"},
			wantUser: "deploy",
			wantHost: "web502.example.net",
			wantPort: "2222",
		},
		{
			name:     "non-numeric suffix is not a port",
			host:     "web502:abc",
			opts:     Options{User: "deploy"},
			wantUser: "deploy",
			wantHost: "web502:abc",
			wantPort: "22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := resolveSSHSettings(tt.host, tt.opts)
			assert.Equal(t, tt.wantUser, settings.user)
			assert.Equal(t, tt.wantHost, settings.hostname)
			assert.Equal(t, tt.wantPort, settings.port)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := homeDir()
	assert.Equal(t, home+"/.ssh/id_ed25519", expandPath("~/.ssh/id_ed25519"))
	assert.Equal(t, "/abs/key", expandPath("/abs/key"))
}
