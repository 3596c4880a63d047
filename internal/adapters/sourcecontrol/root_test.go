package sourcecontrol_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/sourcecontrol"
	"go.trai.ch/memo/internal/core/domain"
)

func TestDiscoverRoot_PrefersGit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), domain.DirPerm))
	writeFile(t, root, "sub/"+domain.ConfigFileName, "version: \"1\"")
	deep := filepath.Join(root, "sub", "deeper")
	require.NoError(t, os.MkdirAll(deep, domain.DirPerm))

	got, err := sourcecontrol.DiscoverRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDiscoverRoot_ConfigFallback(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, domain.ConfigFileName, "version: \"1\"")
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, domain.DirPerm))

	got, err := sourcecontrol.DiscoverRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
