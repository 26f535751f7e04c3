package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/version"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCommand()
	var out bytes.Buffer
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"audiolens"}, args...))
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: error
database:
  driver: sqlite
  dsn: ":memory:"
  auto_migrate: true
queue:
  backend: memory
`), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Get().Short())
}

func TestJobIDArgument(t *testing.T) {
	for _, name := range []string{"process", "enqueue"} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exactly one job id")

			_, err = run(t, name, "a", "b")
			require.Error(t, err)
		})
	}
}

func TestJobsRejectsUnknownStatus(t *testing.T) {
	_, err := run(t, "jobs", "--status", "archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestJobsListsEmptyDatabase(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "no jobs")
}

func TestEnqueueUnknownJob(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "enqueue", "missing-id")
	require.Error(t, err)
}

func TestMigrateRejectsSQLite(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
