package commands_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/cmd/memo/commands"
	"go.trai.ch/memo/internal/adapters/blobstore"
	"go.trai.ch/memo/internal/adapters/codec"
	"go.trai.ch/memo/internal/adapters/hash"
	"go.trai.ch/memo/internal/adapters/observer"
	"go.trai.ch/memo/internal/adapters/telemetry"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/memo/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

const root = "/repo"

type logControl struct {
	json, verbose bool
}

func (l *logControl) SetJSON(enable bool)    { l.json = enable }
func (l *logControl) SetVerbose(enable bool) { l.verbose = enable }

type setup struct {
	cli      *commands.CLI
	ctl      *logControl
	out      *bytes.Buffer
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	loader := mocks.NewMockConfigLoader(ctrl)
	executor := mocks.NewMockExecutor(ctrl)
	hashes := mocks.NewMockFileHashProvider(ctrl)
	hashes.EXPECT().FileHashes(gomock.Any(), root, gomock.Any()).
		Return(map[string]domain.ContentHash{}, nil).AnyTimes()
	resolver := mocks.NewMockInputResolver(ctrl)
	resolver.EXPECT().ResolveInputs(gomock.Any(), root).Return(nil, nil).AnyTimes()

	hasher, err := hash.New(domain.HashXXH64)
	require.NoError(t, err)
	store, err := blobstore.New(afero.NewMemMapFs(), domain.CompressionNone, blobstore.WithVerifier(hasher))
	require.NoError(t, err)

	tracer := telemetry.NewNoOpTracer()
	a := app.New(loader, scheduler.NewScheduler(executor, tracer, log), hashes, resolver, tracer, log,
		app.Adapters{
			Hashers: hash.New,
			Codecs:  codec.New,
			OpenStore: func(string, domain.Compression, ports.ContentHasher) (*blobstore.Store, error) {
				return store, nil
			},
			Observers: func(kinds []string) (*observer.Observer, error) {
				return observer.New(log, kinds)
			},
		}).WithFs(afero.NewMemMapFs())

	ctl := &logControl{}
	cli := commands.New(a, ctl)
	out := &bytes.Buffer{}
	cli.SetOutput(out, out)

	return &setup{cli: cli, ctl: ctl, out: out, loader: loader, executor: executor}
}

func buildWorkspace(t *testing.T) *domain.Workspace {
	t.Helper()
	g := domain.NewGraph(root)
	require.NoError(t, g.AddNode(&domain.Node{ID: domain.NewInternedString("build"), Targets: []string{"all"}}))
	require.NoError(t, g.Validate())
	settings := domain.DefaultCacheSettings()
	settings.Observers = nil
	return &domain.Workspace{Root: root, Graph: g, Cache: settings}
}

func TestRun_Success(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.loader.EXPECT().Load(".").Return(buildWorkspace(t), nil).Times(1)
	s.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), root, gomock.Any()).
		Return(domain.ProcessEvent{ProcessID: 7}, nil).Times(1)

	s.cli.SetArgs([]string{"run", "build", "-j", "1", "--verbose"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.True(t, s.ctl.verbose)
	assert.False(t, s.ctl.json)
}

func TestRun_NoCacheStillExecutes(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.loader.EXPECT().Load(".").Return(buildWorkspace(t), nil).Times(2)
	s.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), root, gomock.Any()).
		Return(domain.ProcessEvent{ProcessID: 7}, nil).Times(2)

	s.cli.SetArgs([]string{"run", "build"})
	require.NoError(t, s.cli.Execute(context.Background()))
	s.cli.SetArgs([]string{"run", "--no-cache", "--json", "build"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.True(t, s.ctl.json)
}

func TestRun_NoTargets(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	// No targets displays help instead of failing
	s.cli.SetArgs([]string{"run"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Contains(t, s.out.String(), "Usage:")
}

func TestInspect_PrintsTable(t *testing.T) {
	t.Parallel()
	s := newSetup(t)
	s.loader.EXPECT().Load(".").Return(buildWorkspace(t), nil)

	s.cli.SetArgs([]string{"inspect", "build"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Contains(t, s.out.String(), "NODE")
	assert.Contains(t, s.out.String(), "build")
	assert.Contains(t, s.out.String(), "miss")
}

func TestInspect_RequiresNode(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.cli.SetArgs([]string{"inspect"})
	require.Error(t, s.cli.Execute(context.Background()))
}

func TestClean(t *testing.T) {
	t.Parallel()
	s := newSetup(t)
	ws := buildWorkspace(t)
	ws.Root = t.TempDir()
	s.loader.EXPECT().Load(".").Return(ws, nil)

	s.cli.SetArgs([]string{"clean"})
	require.NoError(t, s.cli.Execute(context.Background()))
}

func TestVersion(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.cli.SetArgs([]string{"version"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Equal(t, "memo version dev\n", s.out.String())
}

func TestVersion_Verbose(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.cli.SetArgs([]string{"--verbose", "version"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Equal(t, "memo version dev\n", s.out.String())
	assert.True(t, s.ctl.verbose)
}

func TestRoot_VersionShorthand(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.cli.SetArgs([]string{"-v"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Equal(t, "memo version dev\n", s.out.String())
}

func TestRoot_Help(t *testing.T) {
	t.Parallel()
	s := newSetup(t)

	s.cli.SetArgs([]string{"--help"})
	require.NoError(t, s.cli.Execute(context.Background()))
	assert.Contains(t, s.out.String(), "content-addressed build cache")
}
