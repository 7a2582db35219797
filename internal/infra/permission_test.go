package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

func TestFileAccessBackend_CheckOperationMode(t *testing.T) {
	dir := t.TempDir()
	readable := filepath.Join(dir, "knowledgeC.db")
	require.NoError(t, os.WriteFile(readable, []byte("x"), 0600))
	locked := filepath.Join(dir, "locked.db")
	require.NoError(t, os.WriteFile(locked, []byte("x"), 0000))

	tests := []struct {
		name    string
		path    string
		op      string
		want    domain.OperationMode
		wantErr bool
	}{
		{name: "readable", path: readable, op: domain.OpGetUsageStats, want: domain.ModeAllowed},
		{name: "missing", path: filepath.Join(dir, "missing.db"), op: domain.OpGetUsageStats, want: domain.ModeDefault, wantErr: true},
		{name: "unknown op", path: readable, op: "camera", want: domain.ModeDenied},
	}
	if os.Geteuid() != 0 {
		tests = append(tests, struct {
			name    string
			path    string
			op      string
			want    domain.OperationMode
			wantErr bool
		}{name: "no read permission", path: locked, op: domain.OpGetUsageStats, want: domain.ModeDenied})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewFileAccessBackend(tt.path, newMockCommandRunner())
			mode, err := b.CheckOperationMode(tt.op, os.Getuid(), "com.focusd.usagemon")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestFileAccessBackend_LaunchSettings(t *testing.T) {
	t.Run("darwin opens privacy pane", func(t *testing.T) {
		runner := newMockCommandRunner()
		b := &FileAccessBackend{runner: runner, goos: "darwin"}

		require.NoError(t, b.LaunchSettings())
		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{"open", fullDiskAccessURL}, runner.calls[0])
	})

	t.Run("runner failure surfaces", func(t *testing.T) {
		runner := newMockCommandRunner()
		runner.runErr = errors.New("exit status 1")
		b := &FileAccessBackend{runner: runner, goos: "darwin"}

		assert.Error(t, b.LaunchSettings())
	})

	t.Run("other OS unsupported", func(t *testing.T) {
		runner := newMockCommandRunner()
		b := &FileAccessBackend{runner: runner, goos: "linux"}

		assert.ErrorContains(t, b.LaunchSettings(), "linux")
		assert.Empty(t, runner.calls)
	})
}

func TestStaticPermissionBackend(t *testing.T) {
	b := StaticPermissionBackend{Mode: domain.ModeAllowed}

	mode, err := b.CheckOperationMode(domain.OpGetUsageStats, 501, "any")

	require.NoError(t, err)
	assert.Equal(t, domain.ModeAllowed, mode)
	assert.NoError(t, b.LaunchSettings())
}
