// Package scheduler runs the nodes of the dependency graph, consulting the cache before
// each node executes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/plugin"
	"go.trai.ch/zerr"
)

// Cache is the part of the plugin the scheduler drives.
type Cache interface {
	GetCacheResult(ctx context.Context, id domain.InternedString, targets []string) (plugin.CacheResult, error)
	StartExecution(id domain.InternedString) (string, error)
	HandleNodeFinished(ctx context.Context, id domain.InternedString, success bool) error
}

// RunOptions configures one Run.
type RunOptions struct {
	// Nodes are the requested node IDs. "all" selects every node.
	Nodes []string
	// Targets is the target set requested for the selected nodes. Dependencies always
	// build their default target set.
	Targets []string
	// Parallelism bounds concurrent node executions.
	Parallelism int
	Cache       Cache
	Observer    ports.Observer
	Sink        ports.EventSink
}

// Scheduler manages the execution of nodes in the dependency graph.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer
	logger   ports.Logger

	mu         sync.RWMutex
	nodeStatus map[domain.InternedString]domain.NodeStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(executor ports.Executor, tracer ports.Tracer, logger ports.Logger) *Scheduler {
	return &Scheduler{
		executor:   executor,
		tracer:     tracer,
		logger:     logger,
		nodeStatus: make(map[domain.InternedString]domain.NodeStatus),
	}
}

func (s *Scheduler) initNodeStatuses(nodes []domain.InternedString) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodeStatus[n] = domain.NodeStatusPending
	}
}

func (s *Scheduler) updateStatus(id domain.InternedString, status domain.NodeStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeStatus[id] = status
}

// Status returns the status of a node in the last run.
func (s *Scheduler) Status(id domain.InternedString) domain.NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.nodeStatus[id]; ok {
		return st
	}
	return domain.NodeStatusPending
}

// Statuses returns a copy of every node status of the last run.
func (s *Scheduler) Statuses() map[domain.InternedString]domain.NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.nodeStatus)
}

// Run executes the selected nodes and their dependencies with bounded parallelism.
// A failed node stops its dependents; independent nodes keep running.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, opts RunOptions) error {
	if err := graph.Validate(); err != nil {
		return err
	}
	if len(opts.Nodes) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}

	state, err := s.newRunState(ctx, graph, opts)
	if err != nil {
		return err
	}

	planned := make([]string, 0, len(state.nodes))
	for node := range graph.Walk() {
		if _, ok := state.nodes[node.ID]; ok {
			planned = append(planned, node.ID.String())
		}
	}
	s.tracer.EmitPlan(ctx, planned)
	s.initNodeStatuses(slices.Collect(maps.Keys(state.nodes)))

	err = state.runExecutionLoop()

	s.mu.Lock()
	for id, st := range s.nodeStatus {
		if st == domain.NodeStatusPending {
			s.nodeStatus[id] = domain.NodeStatusSkipped
		}
	}
	s.mu.Unlock()
	return err
}

type result struct {
	node   domain.InternedString
	err    error
	cached bool
}

type runState struct {
	s         *Scheduler
	ctx       context.Context
	graph     *domain.Graph
	opts      RunOptions
	requested map[domain.InternedString]bool
	nodes     map[domain.InternedString]*domain.Node
	inDegree  map[domain.InternedString]int
	ready     []domain.InternedString
	active    int
	resultsCh chan result
	errs      error

	// scopes holds the watched tree of each running node.
	scopes map[domain.InternedString]string
}

func (s *Scheduler) newRunState(ctx context.Context, graph *domain.Graph, opts RunOptions) (*runState, error) {
	requested, err := resolveRequested(graph, opts.Nodes)
	if err != nil {
		return nil, err
	}
	nodes := collectDependencies(graph, requested)

	inDegree := make(map[domain.InternedString]int, len(nodes))
	for id, node := range nodes {
		inDegree[id] = len(node.Dependencies)
	}

	var ready []domain.InternedString
	for node := range graph.Walk() {
		if _, ok := nodes[node.ID]; ok && inDegree[node.ID] == 0 {
			ready = append(ready, node.ID)
		}
	}

	return &runState{
		s:         s,
		ctx:       ctx,
		graph:     graph,
		opts:      opts,
		requested: requested,
		nodes:     nodes,
		inDegree:  inDegree,
		ready:     ready,
		resultsCh: make(chan result, opts.Parallelism),
		scopes:    make(map[domain.InternedString]string),
	}, nil
}

func resolveRequested(graph *domain.Graph, names []string) (map[domain.InternedString]bool, error) {
	requested := make(map[domain.InternedString]bool)
	if slices.Contains(names, "all") {
		for node := range graph.Walk() {
			requested[node.ID] = true
		}
		return requested, nil
	}
	for _, name := range names {
		id := domain.NewInternedString(domain.NormalizeNodeID(name))
		if _, ok := graph.Node(id); !ok {
			return nil, zerr.With(domain.ErrNodeNotFound, "node", name)
		}
		requested[id] = true
	}
	return requested, nil
}

func collectDependencies(graph *domain.Graph, requested map[domain.InternedString]bool) map[domain.InternedString]*domain.Node {
	nodes := make(map[domain.InternedString]*domain.Node)
	queue := slices.Collect(maps.Keys(requested))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := nodes[id]; seen {
			continue
		}
		node, _ := graph.Node(id)
		nodes[id] = node
		queue = append(queue, node.Dependencies...)
	}
	return nodes
}

func (state *runState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				return errors.Join(state.errs, state.ctx.Err())
			}
			// Nothing new starts once cancelled; drain the running nodes.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}
	return state.errs
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	var held []domain.InternedString
	for len(state.ready) > 0 && state.active < state.opts.Parallelism && state.ctx.Err() == nil {
		id := state.ready[0]
		state.ready = state.ready[1:]

		if scope, ok := state.watchScope(state.nodes[id]); ok {
			if state.scopeBusy(scope) {
				held = append(held, id)
				continue
			}
			state.scopes[id] = scope
		}

		state.active++
		state.s.updateStatus(id, domain.NodeStatusRunning)

		go state.executeNode(state.nodes[id])
	}
	state.ready = append(held, state.ready...)
}

// watchScope returns the directory tree the observer attributes to node, if it
// attributes by tree.
func (state *runState) watchScope(node *domain.Node) (string, bool) {
	scoped, ok := state.opts.Observer.(ports.ScopedObserver)
	if !ok {
		return "", false
	}
	return scoped.WatchScope(node, state.graph.Root())
}

// scopeBusy reports whether a running node watches a tree that overlaps scope.
func (state *runState) scopeBusy(scope string) bool {
	for _, active := range state.scopes {
		if withinDir(scope, active) || withinDir(active, scope) {
			return true
		}
	}
	return false
}

func withinDir(p, dir string) bool {
	if p == dir {
		return true
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (state *runState) executeNode(node *domain.Node) {
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, node.ID.String(), ports.WithKind("node"))
		defer span.End()

		var targets []string
		if state.requested[node.ID] {
			targets = state.opts.Targets
		}

		cached, err := state.run(ctx, node, targets, span)
		if err != nil {
			span.RecordError(err)
		}
		span.SetAttribute("memo.cached", cached)
		return result{node: node.ID, err: err, cached: cached}
	}()

	state.resultsCh <- res
}

// run resolves the node from the cache or executes it under observation.
func (state *runState) run(ctx context.Context, node *domain.Node, targets []string, span ports.Span) (bool, error) {
	cache := state.opts.Cache
	lookup, err := cache.GetCacheResult(ctx, node.ID, targets)
	if err != nil {
		return false, err
	}
	span.SetAttribute("memo.cache", lookup.Status.String())
	if lookup.Status == plugin.StatusHit {
		return true, nil
	}

	contextID, err := cache.StartExecution(node.ID)
	if err != nil {
		return false, err
	}

	root := state.graph.Root()
	obs, err := state.opts.Observer.Observe(ctx, contextID, node, root, state.opts.Sink)
	if err != nil {
		return false, errors.Join(err, cache.HandleNodeFinished(ctx, node.ID, false))
	}

	ev, execErr := state.s.executor.Execute(ctx, node, root, obs.Env())
	state.opts.Sink.ReportProcess(ev, contextID)
	if stopErr := obs.Stop(); stopErr != nil {
		state.s.logger.Warn(fmt.Sprintf("observer for %s: %v", node.ID, stopErr))
	}

	finishErr := cache.HandleNodeFinished(ctx, node.ID, execErr == nil)
	if execErr != nil {
		return false, execErr
	}
	return false, finishErr
}

func (state *runState) handleResult(res result) {
	state.active--
	delete(state.scopes, res.node)

	if res.err != nil {
		wrapped := zerr.With(zerr.Wrap(res.err, domain.ErrNodeExecutionFailed.Error()), "node", res.node.String())
		state.errs = errors.Join(state.errs, wrapped)
		state.s.updateStatus(res.node, domain.NodeStatusFailed)
		return
	}

	if res.cached {
		state.s.updateStatus(res.node, domain.NodeStatusCached)
	} else {
		state.s.updateStatus(res.node, domain.NodeStatusCompleted)
	}

	for _, dep := range state.graph.Dependents(res.node) {
		if _, ok := state.nodes[dep]; !ok {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}
