package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Setenv(EnvKey, "")
	s := &Store{Dir: filepath.Join(t.TempDir(), "phonebook")}

	k, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, k)

	require.NoError(t, s.Save(" 0A1B2C3D4E5 ", "http://localhost:8080"))

	fi, err := os.Stat(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	k, err = s.Load()
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.Equal(t, "0A1B2C3D4E5", k.Key)
	assert.Equal(t, "http://localhost:8080", k.Server)
	assert.Equal(t, SourceFile, k.Source)
	assert.False(t, k.CreatedAt.IsZero())

	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete(), "deleting twice is fine")
	k, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, k)
}

func TestStore_EnvWins(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	require.NoError(t, s.Save("FILEKEY", ""))
	t.Setenv(EnvKey, "ENVKEY")

	k, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "ENVKEY", k.Key)
	assert.Equal(t, SourceEnv, k.Source)
}

func TestStore_SaveEmpty(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	assert.Error(t, s.Save("  ", ""))
}
