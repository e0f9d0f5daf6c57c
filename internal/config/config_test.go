package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", c.ServerURL)
	assert.Equal(t, "/api/upload/", c.UploadPath)
	assert.Equal(t, "/api/report/", c.ReportPath)
	assert.Equal(t, time.Duration(0), c.HTTPTimeout())
	assert.Equal(t, "last-write-wins", c.SubmitPolicy)
	assert.Equal(t, "equipment_report.pdf", c.ReportOutput)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	in := &Global{
		ServerURL:      "http://analysis.local:9000",
		UploadPath:     "/api/upload/",
		ReportPath:     "/api/report/",
		HTTPTimeoutSec: 15,
		SubmitPolicy:   "serialized",
		ReportUsername: "my_name",
		ReportPassword: "123456",
		LogLevel:       "debug",
	}
	require.NoError(t, Save(in, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.ServerURL, out.ServerURL)
	assert.Equal(t, 15*time.Second, out.HTTPTimeout())
	assert.Equal(t, "serialized", out.SubmitPolicy)
	assert.Equal(t, "my_name", out.ReportUsername)
	assert.Equal(t, "debug", out.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: http://from-file:1\n"), 0o644))
	t.Setenv("EQVIZ_SERVER_URL", "http://from-env:2")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:2", c.ServerURL)
}
