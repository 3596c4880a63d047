// Package plugin connects the cache engine to the build orchestration: it resolves
// nodes from the cache before they run and records their results after they finish.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/cacheclient"
	"go.trai.ch/memo/internal/engine/fileaccess"
	"go.trai.ch/memo/internal/engine/fingerprint"
	"go.trai.ch/memo/internal/engine/inputs"
	"go.trai.ch/memo/internal/engine/nodecontext"
	"go.trai.ch/zerr"
)

// CacheStatus is the outcome of a cache lookup for one node.
type CacheStatus int

const (
	// StatusNotCacheable means the node must run and its result is not stored.
	StatusNotCacheable CacheStatus = iota
	// StatusMiss means the node must run and its result will be stored.
	StatusMiss
	// StatusHit means the node's outputs were restored from the cache.
	StatusHit
)

func (s CacheStatus) String() string {
	switch s {
	case StatusMiss:
		return "miss"
	case StatusHit:
		return "hit"
	default:
		return "not-cacheable"
	}
}

// CacheResult is returned by GetCacheResult.
type CacheResult struct {
	Status CacheStatus
	Weak   domain.Fingerprint
	Result *domain.NodeBuildResult
}

// Stats summarizes one build session.
type Stats struct {
	Hits          int
	Misses        int
	NotCacheable  int
	Stored        int
	StoreFailures int
	Degraded      int
}

// Options tunes a Plugin.
type Options struct {
	// NoCache skips lookups. Results are still stored.
	NoCache bool
	// RequirePersist makes store failures fail the node.
	RequirePersist bool
	// SentinelTimeout bounds the wait for a node's file-access stream to flush.
	SentinelTimeout time.Duration
	// DryRun reports hits without placing their outputs in the workspace.
	DryRun bool
}

// Plugin drives the cache for one build at a time.
type Plugin struct {
	hashes   ports.FileHashProvider
	hasher   ports.ContentHasher
	resolver ports.InputResolver
	cache    *cacheclient.Client
	router   *fileaccess.Router
	logger   ports.Logger
	opts     Options

	mu      sync.Mutex
	session *session
}

// New creates a Plugin.
func New(
	hashes ports.FileHashProvider,
	hasher ports.ContentHasher,
	resolver ports.InputResolver,
	cache *cacheclient.Client,
	router *fileaccess.Router,
	logger ports.Logger,
	opts Options,
) *Plugin {
	if opts.SentinelTimeout <= 0 {
		opts.SentinelTimeout = domain.DefaultCacheSettings().SentinelTimeout
	}
	return &Plugin{
		hashes:   hashes,
		hasher:   hasher,
		resolver: resolver,
		cache:    cache,
		router:   router,
		logger:   logger,
		opts:     opts,
	}
}

type execution struct {
	contextID  string
	classifier *fileaccess.Classifier
	started    time.Time
}

// session is the state of one build between BeginBuild and EndBuild.
type session struct {
	root       string
	graph      *domain.Graph
	factory    *fingerprint.Factory
	dispatcher *fileaccess.Dispatcher
	unregister func()
	contexts   map[domain.InternedString]*nodecontext.Context

	mu         sync.Mutex
	seq        uint64
	weak       map[domain.InternedString]domain.Fingerprint
	irrelevant map[domain.InternedString]bool
	noStore    map[domain.InternedString]bool
	executions map[domain.InternedString]*execution
	stats      Stats
}

// Outputs implements fingerprint.ResultSource.
func (s *session) Outputs(id domain.InternedString) (map[string]domain.ContentHash, bool) {
	nc, ok := s.contexts[id]
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	irrelevant := s.irrelevant[id]
	s.mu.Unlock()
	if irrelevant {
		return nil, false
	}
	result := nc.BuildResult()
	if result == nil {
		return nil, false
	}
	return result.Outputs, true
}

func (s *session) update(fn func(st *Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

// BeginBuild snapshots the tracked files of the repository and prepares every node of
// graph.
func (p *Plugin) BeginBuild(ctx context.Context, graph *domain.Graph) error {
	root := graph.Root()
	hashes, err := p.hashes.FileHashes(ctx, root, p.hasher)
	if err != nil {
		return err
	}

	s := &session{
		root:       root,
		graph:      graph,
		dispatcher: fileaccess.NewDispatcher(p.logger),
		contexts:   make(map[domain.InternedString]*nodecontext.Context, graph.NodeCount()),
		weak:       make(map[domain.InternedString]domain.Fingerprint),
		irrelevant: make(map[domain.InternedString]bool),
		noStore:    make(map[domain.InternedString]bool),
		executions: make(map[domain.InternedString]*execution),
	}
	s.factory = fingerprint.NewFactory(p.hasher, inputs.NewClassifier(hashes), s, p.resolver, root, p.logger)

	for node := range graph.Walk() {
		predicted, err := s.factory.PredictedInputs(node)
		if err != nil {
			p.logger.Warn(fmt.Sprintf("node %s: %v", node.ID, err))
		}
		s.contexts[node.ID] = nodecontext.New(node, nodecontext.Prediction{PredictedInputs: predicted}, p.logger)
	}
	s.unregister = p.router.Register(s.dispatcher)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		s.unregister()
		return domain.ErrBuildAlreadyStarted
	}
	p.session = s
	p.logger.Debug(fmt.Sprintf("build session started with %d tracked files", len(hashes)))
	return nil
}

func (p *Plugin) current() (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, domain.ErrBuildNotStarted
	}
	return p.session, nil
}

func (p *Plugin) nodeContext(s *session, id domain.InternedString) (*nodecontext.Context, error) {
	nc, ok := s.contexts[id]
	if !ok {
		return nil, zerr.With(domain.ErrNodeNotFound, "node", id.String())
	}
	return nc, nil
}

// GetCacheResult tries to satisfy the node from the cache. targets is the requested
// target set; an empty set means the default. Cache faults only degrade the node to a
// fresh build whose result is not stored.
func (p *Plugin) GetCacheResult(ctx context.Context, id domain.InternedString, targets []string) (CacheResult, error) {
	s, err := p.current()
	if err != nil {
		return CacheResult{}, err
	}
	nc, err := p.nodeContext(s, id)
	if err != nil {
		return CacheResult{}, err
	}
	node := nc.Node()

	if !node.IsDefaultTargetSet(targets) {
		s.mu.Lock()
		s.irrelevant[id] = true
		s.stats.NotCacheable++
		s.mu.Unlock()
		return CacheResult{Status: StatusNotCacheable}, nil
	}

	weak := s.factory.WeakFingerprint(node)
	s.mu.Lock()
	s.weak[id] = weak
	s.mu.Unlock()
	if weak == nil {
		s.update(func(st *Stats) { st.NotCacheable++ })
		return CacheResult{Status: StatusNotCacheable}, nil
	}

	if p.opts.NoCache {
		s.update(func(st *Stats) { st.Misses++ })
		return CacheResult{Status: StatusMiss, Weak: weak}, nil
	}

	hit, err := p.cache.Lookup(ctx, weak, s.factory.StrongFingerprint)
	if err != nil {
		p.degrade(s, id, err)
		return CacheResult{Status: StatusMiss, Weak: weak}, nil
	}
	if hit == nil {
		s.update(func(st *Stats) { st.Misses++ })
		return CacheResult{Status: StatusMiss, Weak: weak}, nil
	}

	if !p.opts.DryRun {
		if err := p.cache.PlaceOutputs(ctx, s.root, hit.Result); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return CacheResult{}, ctxErr
			}
			p.degrade(s, id, err)
			return CacheResult{Status: StatusMiss, Weak: weak}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return CacheResult{}, err
	}

	nc.SetBuildResult(hit.Result, nodecontext.SourceCache)
	s.update(func(st *Stats) { st.Hits++ })
	p.logger.Debug(fmt.Sprintf("cache hit for %s (%d outputs)", id, len(hit.Result.Outputs)))
	return CacheResult{Status: StatusHit, Weak: weak, Result: hit.Result}, nil
}

// degrade turns a cache fault into a miss whose result is not stored.
func (p *Plugin) degrade(s *session, id domain.InternedString, err error) {
	p.logger.Warn(fmt.Sprintf("cache disabled for %s: %v", id, err))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noStore[id] = true
	s.stats.Misses++
	s.stats.Degraded++
}

// StartExecution registers a new execution of the node and returns the context id its
// file-access events must carry.
func (p *Plugin) StartExecution(id domain.InternedString) (string, error) {
	s, err := p.current()
	if err != nil {
		return "", err
	}
	if _, err := p.nodeContext(s, id); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.seq++
	contextID := id.String() + "#" + strconv.FormatUint(s.seq, 10)
	exec := &execution{
		contextID:  contextID,
		classifier: fileaccess.NewClassifier(s.root, p.logger),
		started:    time.Now(),
	}
	s.executions[id] = exec
	s.mu.Unlock()

	s.dispatcher.Add(contextID, exec.classifier)
	return contextID, nil
}

// HandleNodeFinished classifies the accesses of the node's execution, records its
// result and stores it in the cache. Failed and cancelled executions get no result.
// Store failures are returned only when persisting is required.
func (p *Plugin) HandleNodeFinished(ctx context.Context, id domain.InternedString, success bool) error {
	s, err := p.current()
	if err != nil {
		return err
	}
	nc, err := p.nodeContext(s, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	exec := s.executions[id]
	delete(s.executions, id)
	s.mu.Unlock()

	if nc.State() == nodecontext.SourceCache || exec == nil {
		return nil
	}
	defer s.dispatcher.Remove(exec.contextID)

	if !success {
		exec.classifier.Finish()
		return nil
	}

	if err := exec.classifier.WaitForSentinel(ctx, p.opts.SentinelTimeout); err != nil {
		exec.classifier.Finish()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.logger.Warn(fmt.Sprintf("not caching %s: %v", id, err))
		return nil
	}

	classified := exec.classifier.Finish()
	p.logger.Debug(fmt.Sprintf("node %s: %d processes, %d inputs, %d outputs",
		id, len(exec.classifier.Processes()), len(classified.Inputs), len(classified.Outputs)))

	outputs, err := p.cache.HashOutputs(ctx, s.root, classified.Outputs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.logger.Warn(fmt.Sprintf("not caching %s: %v", id, err))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := domain.NewNodeBuildResult(outputs, time.Since(exec.started))
	nc.SetBuildResult(result, nodecontext.SourceExecution)

	s.mu.Lock()
	weak := s.weak[id]
	skip := s.noStore[id] || s.irrelevant[id]
	s.mu.Unlock()
	if weak == nil || skip {
		return nil
	}

	pathSet := s.factory.PathSet(nc.Node(), classified.Inputs)
	strong := s.factory.StrongFingerprint(pathSet)
	if err := p.cache.Store(ctx, weak, pathSet, strong, result, s.root); err != nil {
		s.update(func(st *Stats) { st.StoreFailures++ })
		if p.opts.RequirePersist || errors.Is(err, context.Canceled) {
			return zerr.With(err, "node", id.String())
		}
		p.logger.Warn(fmt.Sprintf("failed to cache %s: %v", id, err))
		return nil
	}
	s.update(func(st *Stats) { st.Stored++ })
	return nil
}

// BuildResult returns the recorded result of the node in the current build.
func (p *Plugin) BuildResult(id domain.InternedString) (*domain.NodeBuildResult, nodecontext.Source) {
	s, err := p.current()
	if err != nil {
		return nil, nodecontext.SourceNone
	}
	nc, ok := s.contexts[id]
	if !ok {
		return nil, nodecontext.SourceNone
	}
	return nc.BuildResult(), nc.State()
}

// EndBuild closes the session and returns its statistics.
func (p *Plugin) EndBuild(_ context.Context) Stats {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s == nil {
		return Stats{}
	}

	s.unregister()
	s.mu.Lock()
	stats := s.stats
	pending := len(s.executions)
	s.mu.Unlock()
	if pending > 0 {
		p.logger.Debug(fmt.Sprintf("%d executions never finished", pending))
	}
	return stats
}
