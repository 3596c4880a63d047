// Package app implements the application layer for memo.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.trai.ch/memo/internal/adapters/blobstore"
	"go.trai.ch/memo/internal/adapters/codec"
	"go.trai.ch/memo/internal/adapters/hash"
	"go.trai.ch/memo/internal/adapters/observer"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/cacheclient"
	"go.trai.ch/memo/internal/engine/fileaccess"
	"go.trai.ch/memo/internal/engine/plugin"
	"go.trai.ch/memo/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	hashes       ports.FileHashProvider
	resolver     ports.InputResolver
	tracer       ports.Tracer
	logger       ports.Logger
	hashers      hash.Factory
	codecs       codec.Factory
	openStore    blobstore.Opener
	observers    observer.Factory
	fs           afero.Fs
}

// Adapters groups the factories the App opens a cache session with.
type Adapters struct {
	Hashers   hash.Factory
	Codecs    codec.Factory
	OpenStore blobstore.Opener
	Observers observer.Factory
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	hashes ports.FileHashProvider,
	resolver ports.InputResolver,
	tracer ports.Tracer,
	log ports.Logger,
	adapters Adapters,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		hashes:       hashes,
		resolver:     resolver,
		tracer:       tracer,
		logger:       log,
		hashers:      adapters.Hashers,
		codecs:       adapters.Codecs,
		openStore:    adapters.OpenStore,
		observers:    adapters.Observers,
		fs:           afero.NewOsFs(),
	}
}

// WithFs replaces the file system outputs are hashed from and placed into.
// This is primarily used for testing.
func (a *App) WithFs(fs afero.Fs) *App {
	a.fs = fs
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	NoCache     bool
	Parallelism int
	Targets     []string
}

// cacheSession is everything opened from the cache settings of one workspace.
type cacheSession struct {
	workspace *domain.Workspace
	store     *blobstore.Store
	cache     *cacheclient.Client
	router    *fileaccess.Router
	plugin    *plugin.Plugin
}

func (a *App) load() (*domain.Workspace, error) {
	ws, err := a.configLoader.Load(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return ws, nil
}

func (a *App) openSession(ws *domain.Workspace, opts plugin.Options) (*cacheSession, error) {
	settings := ws.Cache
	hasher, err := a.hashers(settings.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(ws.CacheDir(), settings.Compression, hasher)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open cache"), "dir", ws.CacheDir())
	}
	c, err := a.codecs(settings.Codec)
	if err != nil {
		return nil, err
	}

	client := cacheclient.New(store, c, hasher, a.logger, a.tracer, cacheclient.Options{
		MaxSelectors: settings.MaxSelectors,
		FS:           a.fs,
	})
	router := fileaccess.NewRouter()
	opts.RequirePersist = settings.RequirePersist
	opts.SentinelTimeout = settings.SentinelTimeout

	return &cacheSession{
		workspace: ws,
		store:     store,
		cache:     client,
		router:    router,
		plugin:    plugin.New(a.hashes, hasher, a.resolver, client, router, a.logger, opts),
	}, nil
}

// Run builds the requested nodes, satisfying what it can from the cache.
func (a *App) Run(ctx context.Context, nodes []string, opts RunOptions) error {
	// 1. Load the workspace
	ws, err := a.load()
	if err != nil {
		return err
	}

	// 2. Validate nodes
	if len(nodes) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	// 3. Open the cache session
	sess, err := a.openSession(ws, plugin.Options{NoCache: opts.NoCache})
	if err != nil {
		return err
	}
	obs, err := a.observers(ws.Cache.Observers)
	if err != nil {
		return err
	}
	if err := sess.plugin.BeginBuild(ctx, ws.Graph); err != nil {
		return zerr.Wrap(err, "failed to start build session")
	}

	// 4. Run the scheduler
	runErr := a.scheduler.Run(ctx, ws.Graph, scheduler.RunOptions{
		Nodes:       nodes,
		Targets:     opts.Targets,
		Parallelism: opts.Parallelism,
		Cache:       sess.plugin,
		Observer:    obs,
		Sink:        sess.router,
	})
	stats := sess.plugin.EndBuild(ctx)
	a.logger.Info(formatStats(stats))

	if runErr != nil {
		return errors.Join(domain.ErrBuildExecutionFailed, runErr)
	}
	return nil
}

func formatStats(s plugin.Stats) string {
	msg := fmt.Sprintf("cache: %d hit, %d miss, %d not cacheable, %d stored",
		s.Hits, s.Misses, s.NotCacheable, s.Stored)
	if s.StoreFailures > 0 {
		msg += fmt.Sprintf(", %d store failures", s.StoreFailures)
	}
	if s.Degraded > 0 {
		msg += fmt.Sprintf(", %d degraded", s.Degraded)
	}
	return msg
}

// NodeInspection is the cache state of one node as Inspect sees it.
type NodeInspection struct {
	ID        string
	Status    plugin.CacheStatus
	Weak      domain.Fingerprint
	Selectors []domain.Selector
}

// Inspect looks up node and its dependencies in the cache without running or restoring
// anything. Nodes are returned in execution order, node itself last.
func (a *App) Inspect(ctx context.Context, node string) ([]NodeInspection, error) {
	ws, err := a.load()
	if err != nil {
		return nil, err
	}
	id := domain.NewInternedString(domain.NormalizeNodeID(node))
	if _, ok := ws.Graph.Node(id); !ok {
		return nil, zerr.With(domain.ErrNodeNotFound, "node", node)
	}

	sess, err := a.openSession(ws, plugin.Options{DryRun: true})
	if err != nil {
		return nil, err
	}
	if err := sess.plugin.BeginBuild(ctx, ws.Graph); err != nil {
		return nil, zerr.Wrap(err, "failed to start build session")
	}
	defer sess.plugin.EndBuild(ctx)

	closure := dependencyClosure(ws.Graph, id)
	var out []NodeInspection
	for n := range ws.Graph.Walk() {
		if !closure[n.ID] {
			continue
		}
		res, err := sess.plugin.GetCacheResult(ctx, n.ID, nil)
		if err != nil {
			return nil, err
		}
		entry := NodeInspection{ID: n.ID.String(), Status: res.Status, Weak: res.Weak}
		if res.Weak != nil {
			entry.Selectors, err = sess.cache.Selectors(ctx, res.Weak)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func dependencyClosure(g *domain.Graph, id domain.InternedString) map[domain.InternedString]bool {
	seen := make(map[domain.InternedString]bool)
	var visit func(domain.InternedString)
	visit = func(cur domain.InternedString) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		if n, ok := g.Node(cur); ok {
			for _, dep := range n.Dependencies {
				visit(dep)
			}
		}
	}
	visit(id)
	return seen
}

// Clean empties the cache and removes leftover access reports.
func (a *App) Clean(ctx context.Context) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	var errs error

	hasher, err := a.hashers(ws.Cache.HashAlgorithm)
	if err != nil {
		return err
	}
	store, err := a.openStore(ws.CacheDir(), ws.Cache.Compression, hasher)
	if err != nil {
		errs = errors.Join(errs, zerr.Wrap(err, "failed to open cache"))
	} else {
		files, size, err := store.Usage(ctx)
		if err != nil {
			a.logger.Debug(fmt.Sprintf("could not measure cache: %v", err))
		}
		a.logger.Info(fmt.Sprintf("removing cache (%d files, %d bytes)...", files, size))
		if err := store.Clear(ctx); err != nil {
			errs = errors.Join(errs, err)
		} else {
			a.logger.Info("removed cache")
		}
	}

	reports := filepath.Join(ws.Root, domain.DefaultReportsPath())
	a.logger.Info("removing access reports...")
	if err := os.RemoveAll(reports); err != nil {
		errs = errors.Join(errs, zerr.Wrap(err, "failed to remove access reports"))
	} else {
		a.logger.Info("removed access reports")
	}

	return errs
}
