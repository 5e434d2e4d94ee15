package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps Load away from the real user config and environment.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"PHONEBOOK_URL", "PHONEBOOK_KEY", "PHONEBOOK_TIMEOUT", "PHONEBOOK_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.URL)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Equal(t, "classic", c.Theme)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Empty(t, c.Key)
	assert.Equal(t, ":8080", c.Server.Listen)
	assert.Equal(t, "sqlite", c.Server.Database.Type)
	assert.Equal(t, "./phonebook.db", c.Server.Database.DSN)
	assert.Zero(t, c.Server.DelayMax)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "pb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: http://file:1
key: FILEKEY
timeout: 3s
server:
  delay-max: 500ms
  database:
    type: postgres
`), 0o600))

	t.Setenv("PHONEBOOK_KEY", "ENVKEY")
	t.Setenv("PHONEBOOK_SERVER_DATABASE_DSN", "postgres://env")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("url", "", "")
	cmd.Flags().String("db-type", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--url", "http://flag:2"}))

	c, err := Load(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:2", c.URL, "flag beats file")
	assert.Equal(t, "ENVKEY", c.Key, "env beats file")
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, 500*time.Millisecond, c.Server.DelayMax)
	assert.Equal(t, "postgres", c.Server.Database.Type, "unset flag does not hide the file")
	assert.Equal(t, "postgres://env", c.Server.Database.DSN)
}

func TestLoad_BrokenFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "pb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: [unclosed"), 0o600))

	_, err := Load(nil, path)
	assert.Error(t, err)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	isolate(t)

	in, err := Load(nil, "")
	require.NoError(t, err)
	in.URL = "http://saved:9"
	in.Key = "SAVED"
	in.Server.DelayMin = 10 * time.Millisecond

	path, err := WriteFile(in, filepath.Join(t.TempDir(), "sub", "phonebook.yaml"))
	require.NoError(t, err)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	out, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "ABC", KeyFromURL("http://host/?key=ABC"))
	assert.Equal(t, "ABC", KeyFromURL("http://host/path?x=1&key=%20ABC%20"))
	assert.Empty(t, KeyFromURL("http://host/"))
	assert.Empty(t, KeyFromURL("://"))
}
