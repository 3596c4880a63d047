package observer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/observer"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// recordingSink collects events in arrival order.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.FileAccessEvent
	ctxIDs []string
}

func (s *recordingSink) ReportFileAccess(ev domain.FileAccessEvent, contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.ctxIDs = append(s.ctxIDs, contextID)
}

func (s *recordingSink) ReportProcess(domain.ProcessEvent, string) {}

func (s *recordingSink) snapshot() []domain.FileAccessEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.FileAccessEvent(nil), s.events...)
}

func newObserver(t *testing.T, kinds ...string) *observer.Observer {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	o, err := observer.New(log, kinds)
	require.NoError(t, err)
	return o
}

func envValue(env []string, key string) string {
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok && k == key {
			return v
		}
	}
	return ""
}

func TestNew_UnknownObserver(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	_, err := observer.New(mocks.NewMockLogger(ctrl), []string{"ptrace"})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error())
}

func TestWatchScope(t *testing.T) {
	t.Parallel()

	node := &domain.Node{ID: domain.NewInternedString("lib"), WorkingDir: domain.NewInternedString("lib")}
	rootNode := &domain.Node{ID: domain.NewInternedString("app")}
	root := filepath.FromSlash("/repo")

	scope, ok := newObserver(t, domain.ObserverFSNotify).WatchScope(node, root)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "lib"), scope)

	scope, ok = newObserver(t, domain.ObserverFSNotify, domain.ObserverReport).WatchScope(rootNode, root)
	assert.True(t, ok)
	assert.Equal(t, root, scope)

	_, ok = newObserver(t, domain.ObserverReport).WatchScope(node, root)
	assert.False(t, ok)
}

func TestReport_RelaysLinesThenSentinel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), domain.DirPerm))

	sink := &recordingSink{}
	node := &domain.Node{ID: domain.NewInternedString("lib"), WorkingDir: domain.NewInternedString("lib")}

	obs, err := newObserver(t, domain.ObserverReport).Observe(context.Background(), "exec-1", node, root, sink)
	require.NoError(t, err)

	reportPath := envValue(obs.Env(), domain.AccessReportEnv)
	require.NotEmpty(t, reportPath)
	assert.FileExists(t, reportPath)

	lines := strings.Join([]string{
		`{"op":"read","path":"lib.h","pid":42}`,
		`not json`,
		`{"op":"teleport","path":"x"}`,
		`{"op":"write","path":"` + filepath.ToSlash(filepath.Join(root, "out.o")) + `"}`,
		`{"op":"rmdir","path":"tmp"}`,
		`{"op":"read","path":"../.memo/cache/blob"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(reportPath, []byte(lines+"\n"), domain.FilePerm))

	require.NoError(t, obs.Stop())

	events := sink.snapshot()
	require.Len(t, events, 4)

	assert.Equal(t, domain.FileAccessEvent{
		ProcessID:       42,
		RequestedAccess: domain.AccessRead,
		Operation:       domain.OpReadFile,
		Path:            filepath.Join(root, "lib", "lib.h"),
		DesiredAccess:   domain.DesiredGenericRead,
		IsAugmented:     true,
	}, events[0])

	assert.Equal(t, domain.OpWriteFile, events[1].Operation)
	assert.Equal(t, domain.AccessWrite, events[1].RequestedAccess)
	assert.Equal(t, filepath.Join(root, "out.o"), events[1].Path)

	assert.Equal(t, domain.OpRemoveDirectory, events[2].Operation)
	assert.True(t, events[2].IsDirectory)

	assert.True(t, events[3].IsSentinel())
	assert.NoFileExists(t, reportPath)
}

func TestStop_Idempotent(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	node := &domain.Node{ID: domain.NewInternedString("n")}

	obs, err := newObserver(t, domain.ObserverReport).Observe(context.Background(), "exec-2", node, t.TempDir(), sink)
	require.NoError(t, err)

	require.NoError(t, obs.Stop())
	require.NoError(t, obs.Stop())
	assert.Len(t, sink.snapshot(), 1)
}

func TestNoSources_OnlySentinel(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	node := &domain.Node{ID: domain.NewInternedString("n")}

	obs, err := newObserver(t).Observe(context.Background(), "exec-3", node, t.TempDir(), sink)
	require.NoError(t, err)
	assert.Empty(t, obs.Env())

	require.NoError(t, obs.Stop())
	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.True(t, events[0].IsSentinel())
}

func TestFSNotify_ReportsWritesBeforeSentinel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.txt"), []byte("old"), domain.FilePerm))

	sink := &recordingSink{}
	node := &domain.Node{ID: domain.NewInternedString("n")}

	o := newObserver(t, domain.ObserverFSNotify)
	obs, err := o.Observe(context.Background(), "exec-4", node, root, sink)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("new"), domain.FilePerm))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gen", "sub"), domain.DirPerm))
	require.NoError(t, os.Remove(filepath.Join(root, "old.txt")))

	require.NoError(t, obs.Stop())

	events := sink.snapshot()
	require.NotEmpty(t, events)
	assert.True(t, events[len(events)-1].IsSentinel())

	seen := make(map[string][]domain.Operation)
	for _, ev := range events[:len(events)-1] {
		assert.NotContains(t, filepath.Base(ev.Path), ".memo-barrier-")
		seen[ev.Path] = append(seen[ev.Path], ev.Operation)
	}

	assert.Contains(t, seen[filepath.Join(root, "new.txt")], domain.OpCreateFile)
	assert.Contains(t, seen[filepath.Join(root, "gen")], domain.OpCreateDirectory)
	assert.Contains(t, seen[filepath.Join(root, "old.txt")], domain.OpDeleteFile)
}
