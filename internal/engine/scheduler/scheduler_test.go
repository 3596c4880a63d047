package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/telemetry"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/memo/internal/engine/fileaccess"
	"go.trai.ch/memo/internal/engine/plugin"
	"go.trai.ch/memo/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type fakeCache struct {
	mu       sync.Mutex
	hits     map[string]bool
	lookups  map[string][]string
	started  []string
	finished map[string]bool
}

func newFakeCache(hits ...string) *fakeCache {
	c := &fakeCache{
		hits:     map[string]bool{},
		lookups:  map[string][]string{},
		finished: map[string]bool{},
	}
	for _, h := range hits {
		c.hits[h] = true
	}
	return c
}

func (c *fakeCache) GetCacheResult(_ context.Context, id domain.InternedString, targets []string) (plugin.CacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups[id.String()] = targets
	if c.hits[id.String()] {
		return plugin.CacheResult{Status: plugin.StatusHit}, nil
	}
	return plugin.CacheResult{Status: plugin.StatusMiss}, nil
}

func (c *fakeCache) StartExecution(id domain.InternedString) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, id.String())
	return id.String() + "#1", nil
}

func (c *fakeCache) HandleNodeFinished(_ context.Context, id domain.InternedString, success bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished[id.String()] = success
	return nil
}

func createGraph(t *testing.T, deps map[string][]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph("/repo")
	for name, ds := range deps {
		require.NoError(t, g.AddNode(&domain.Node{
			ID:           domain.NewInternedString(name),
			Dependencies: domain.NewInternedStrings(ds),
			Command:      []string{"true"},
		}))
	}
	require.NoError(t, g.Validate())
	return g
}

type testMocks struct {
	executor *mocks.MockExecutor
	observer *mocks.MockObserver
	logger   *mocks.MockLogger
}

func setup(t *testing.T) (*scheduler.Scheduler, testMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := testMocks{
		executor: mocks.NewMockExecutor(ctrl),
		observer: mocks.NewMockObserver(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}
	m.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	m.observer.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any(), "/repo", gomock.Any()).
		DoAndReturn(func(context.Context, string, *domain.Node, string, ports.EventSink) (ports.Observation, error) {
			obs := mocks.NewMockObservation(ctrl)
			obs.EXPECT().Env().Return([]string{"MEMO_ACCESS_REPORT=/dev/null"})
			obs.EXPECT().Stop().Return(nil)
			return obs, nil
		}).AnyTimes()

	return scheduler.NewScheduler(m.executor, telemetry.NewNoOpTracer(), m.logger), m
}

func options(cache scheduler.Cache, obs *mocks.MockObserver, nodes ...string) scheduler.RunOptions {
	return scheduler.RunOptions{
		Nodes:       nodes,
		Parallelism: 2,
		Cache:       cache,
		Observer:    obs,
		Sink:        fileaccess.NewRouter(),
	}
}

func matchNode(name string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		n, ok := x.(*domain.Node)
		return ok && n.ID.String() == name
	})
}

func TestScheduler_Diamond(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// A depends on B and C, both depend on D. B fails.
		g := createGraph(t, map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
			"C": {"D"},
			"D": nil,
		})
		s, m := setup(t)
		cache := newFakeCache()

		m.executor.EXPECT().Execute(gomock.Any(), matchNode("D"), "/repo", gomock.Any()).Return(domain.ProcessEvent{}, nil)
		m.executor.EXPECT().Execute(gomock.Any(), matchNode("B"), "/repo", gomock.Any()).
			Return(domain.ProcessEvent{ExitCode: 1}, errors.New("B failed"))
		m.executor.EXPECT().Execute(gomock.Any(), matchNode("C"), "/repo", gomock.Any()).Return(domain.ProcessEvent{}, nil)

		err := s.Run(context.Background(), g, options(cache, m.observer, "A"))
		require.ErrorContains(t, err, domain.ErrNodeExecutionFailed.Error())
		require.ErrorContains(t, err, "B failed")

		assert.Equal(t, domain.NodeStatusCompleted, s.Status(domain.NewInternedString("D")))
		assert.Equal(t, domain.NodeStatusFailed, s.Status(domain.NewInternedString("B")))
		assert.Equal(t, domain.NodeStatusCompleted, s.Status(domain.NewInternedString("C")))
		assert.Equal(t, domain.NodeStatusSkipped, s.Status(domain.NewInternedString("A")))

		assert.Equal(t, map[string]bool{"D": true, "B": false, "C": true}, cache.finished)
	})
}

func TestScheduler_CacheHitSkipsExecution(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraph(t, map[string][]string{"app": {"lib"}, "lib": nil})
		s, m := setup(t)
		cache := newFakeCache("lib")

		m.executor.EXPECT().Execute(gomock.Any(), matchNode("app"), "/repo", gomock.Any()).Return(domain.ProcessEvent{}, nil)

		require.NoError(t, s.Run(context.Background(), g, options(cache, m.observer, "all")))

		assert.Equal(t, domain.NodeStatusCached, s.Status(domain.NewInternedString("lib")))
		assert.Equal(t, domain.NodeStatusCompleted, s.Status(domain.NewInternedString("app")))
		assert.Equal(t, []string{"app"}, cache.started)
	})
}

func TestScheduler_PartialAndTargets(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// A -> B -> C, D is unrelated and must not run.
		g := createGraph(t, map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil, "D": nil})
		s, m := setup(t)
		cache := newFakeCache()

		m.executor.EXPECT().Execute(gomock.Any(), gomock.Not(matchNode("D")), "/repo", gomock.Any()).
			Return(domain.ProcessEvent{}, nil).Times(3)

		opts := options(cache, m.observer, "A")
		opts.Targets = []string{"test"}
		require.NoError(t, s.Run(context.Background(), g, opts))

		assert.Equal(t, []string{"test"}, cache.lookups["A"])
		assert.Nil(t, cache.lookups["B"])
		assert.NotContains(t, cache.lookups, "D")
		assert.NotContains(t, s.Statuses(), domain.NewInternedString("D"))
	})
}

func TestScheduler_UnknownNode(t *testing.T) {
	g := createGraph(t, map[string][]string{"A": nil})
	s, m := setup(t)

	err := s.Run(context.Background(), g, options(newFakeCache(), m.observer, "missing"))
	require.ErrorContains(t, err, domain.ErrNodeNotFound.Error())

	err = s.Run(context.Background(), g, options(newFakeCache(), m.observer))
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestScheduler_ObserverFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraph(t, map[string][]string{"A": nil})
		ctrl := gomock.NewController(t)
		executor := mocks.NewMockExecutor(ctrl)
		observer := mocks.NewMockObserver(ctrl)
		log := mocks.NewMockLogger(ctrl)
		observer.EXPECT().Observe(gomock.Any(), "A#1", gomock.Any(), "/repo", gomock.Any()).
			Return(nil, domain.ErrObserverFailed)

		s := scheduler.NewScheduler(executor, telemetry.NewNoOpTracer(), log)
		cache := newFakeCache()
		err := s.Run(context.Background(), g, options(cache, observer, "A"))

		require.ErrorIs(t, err, domain.ErrObserverFailed)
		assert.Equal(t, map[string]bool{"A": false}, cache.finished)
	})
}

func TestScheduler_Cancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		g := createGraph(t, map[string][]string{"A": {"B"}, "B": nil})
		s, m := setup(t)
		cache := newFakeCache()

		ctx, cancel := context.WithCancel(context.Background())
		m.executor.EXPECT().Execute(gomock.Any(), matchNode("B"), "/repo", gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *domain.Node, _ string, _ []string) (domain.ProcessEvent, error) {
				cancel()
				<-ctx.Done()
				return domain.ProcessEvent{}, ctx.Err()
			})

		err := s.Run(ctx, g, options(cache, m.observer, "A"))
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.NodeStatusSkipped, s.Status(domain.NewInternedString("A")))
	})
}

func TestScheduler_OverlappingWatchScopesRunApart(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// app watches the whole repository, lib and tools watch disjoint subtrees.
		g := createGraph(t, map[string][]string{"app": nil, "lib": nil, "tools": nil})
		ctrl := gomock.NewController(t)
		executor := mocks.NewMockExecutor(ctrl)
		log := mocks.NewMockLogger(ctrl)
		log.EXPECT().Warn(gomock.Any()).AnyTimes()
		obs := mocks.NewMockScopedObserver(ctrl)

		scopes := map[string]string{"app": "/repo", "lib": "/repo/lib", "tools": "/repo/tools"}
		obs.EXPECT().WatchScope(gomock.Any(), "/repo").
			DoAndReturn(func(n *domain.Node, _ string) (string, bool) {
				return scopes[n.ID.String()], true
			}).AnyTimes()
		obs.EXPECT().Observe(gomock.Any(), gomock.Any(), gomock.Any(), "/repo", gomock.Any()).
			DoAndReturn(func(context.Context, string, *domain.Node, string, ports.EventSink) (ports.Observation, error) {
				o := mocks.NewMockObservation(ctrl)
				o.EXPECT().Env().Return(nil)
				o.EXPECT().Stop().Return(nil)
				return o, nil
			}).Times(3)

		var mu sync.Mutex
		running := map[string]bool{}
		var overlaps []string
		peak := 0
		executor.EXPECT().Execute(gomock.Any(), gomock.Any(), "/repo", gomock.Any()).
			DoAndReturn(func(_ context.Context, n *domain.Node, _ string, _ []string) (domain.ProcessEvent, error) {
				id := n.ID.String()
				mu.Lock()
				for other := range running {
					if id == "app" || other == "app" {
						overlaps = append(overlaps, id+"+"+other)
					}
				}
				running[id] = true
				peak = max(peak, len(running))
				mu.Unlock()

				time.Sleep(time.Second)

				mu.Lock()
				delete(running, id)
				mu.Unlock()
				return domain.ProcessEvent{}, nil
			}).Times(3)

		s := scheduler.NewScheduler(executor, telemetry.NewNoOpTracer(), log)
		err := s.Run(context.Background(), g, scheduler.RunOptions{
			Nodes:       []string{"all"},
			Parallelism: 3,
			Cache:       newFakeCache(),
			Observer:    obs,
			Sink:        fileaccess.NewRouter(),
		})
		require.NoError(t, err)

		assert.Empty(t, overlaps)
		assert.Equal(t, 2, peak)
	})
}
