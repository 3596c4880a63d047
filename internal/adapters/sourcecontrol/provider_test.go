package sourcecontrol_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/adapters/hash"
	"go.trai.ch/memo/internal/adapters/sourcecontrol"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), domain.DirPerm))
	require.NoError(t, os.WriteFile(full, []byte(content), domain.FilePerm))
}

func newHasher(t *testing.T) *hash.Hasher {
	t.Helper()
	h, err := hash.New(domain.HashXXH64)
	require.NoError(t, err)
	return h
}

func TestWalker_FileHashes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/main.c", "int main;")
	writeFile(t, root, "README.md", "readme")
	writeFile(t, root, ".memo/cache/blob", "ignored")

	h := newHasher(t)
	hashes, err := sourcecontrol.NewWalker(fs.NewWalker()).FileHashes(context.Background(), root, h)
	require.NoError(t, err)

	require.Len(t, hashes, 2)
	assert.Equal(t, h.HashString("int main;"), hashes["src/main.c"])
	assert.Equal(t, h.HashString("readme"), hashes["README.md"])
}

func TestWalker_FileHashes_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sourcecontrol.NewWalker(fs.NewWalker()).FileHashes(ctx, root, newHasher(t))
	require.ErrorIs(t, err, context.Canceled)
}

func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_CONFIG_GLOBAL=/dev/null",
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q")
	writeFile(t, root, "tracked.c", "tracked")
	writeFile(t, root, "dir/nested.h", "nested")
	writeFile(t, root, "gone.c", "gone")
	run("add", "tracked.c", "dir/nested.h", "gone.c")
	writeFile(t, root, "untracked.c", "untracked")
	require.NoError(t, os.Remove(filepath.Join(root, "gone.c")))
	return root
}

func TestGit_FileHashes(t *testing.T) {
	t.Parallel()

	root := gitRepo(t)
	h := newHasher(t)

	hashes, err := (&sourcecontrol.Git{}).FileHashes(context.Background(), root, h)
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.ContentHash{
		"tracked.c":    h.HashString("tracked"),
		"dir/nested.h": h.HashString("nested"),
	}, hashes)
}

func TestGit_FileHashes_NotARepository(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	_, err := (&sourcecontrol.Git{}).FileHashes(context.Background(), t.TempDir(), newHasher(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrSourceControlFailed.Error())
}

func TestAuto_FallsBackWithoutGit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	auto := &sourcecontrol.Auto{
		Git:    &sourcecontrol.Git{Binary: "/nonexistent/git"},
		Walker: sourcecontrol.NewWalker(fs.NewWalker()),
		Logger: log,
	}

	h := newHasher(t)
	hashes, err := auto.FileHashes(context.Background(), root, h)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ContentHash{"a.txt": h.HashString("a")}, hashes)
}

func TestAuto_GitFailureLogsAndFallsBack(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), domain.DirPerm))
	writeFile(t, root, "a.txt", "a")

	auto := &sourcecontrol.Auto{
		Git:    &sourcecontrol.Git{Binary: "/nonexistent/git"},
		Walker: sourcecontrol.NewWalker(fs.NewWalker()),
		Logger: log,
	}

	hashes, err := auto.FileHashes(context.Background(), root, newHasher(t))
	require.NoError(t, err)
	assert.Contains(t, hashes, "a.txt")
}
