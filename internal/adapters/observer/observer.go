// Package observer reports the file accesses of a running node. Two sources are
// combined: an access report the node appends to, and an fsnotify watch of the node's
// working directory.
package observer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ScopedObserver = (*Observer)(nil)

// DefaultBarrierTimeout bounds the wait for the fsnotify barrier on Stop.
const DefaultBarrierTimeout = 2 * time.Second

// Observer implements ports.Observer.
type Observer struct {
	logger         ports.Logger
	report         bool
	fsnotify       bool
	barrierTimeout time.Duration
}

// New creates an Observer using the named sources (domain.ObserverReport,
// domain.ObserverFSNotify). Unknown names are rejected.
func New(logger ports.Logger, kinds []string) (*Observer, error) {
	o := &Observer{logger: logger, barrierTimeout: DefaultBarrierTimeout}
	for _, kind := range kinds {
		switch kind {
		case domain.ObserverReport:
			o.report = true
		case domain.ObserverFSNotify:
			o.fsnotify = true
		default:
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown observer"), "observer", kind)
		}
	}
	return o, nil
}

// WatchScope returns the working directory of node when fsnotify is enabled. fsnotify
// cannot tell which process changed a file, so every change below that directory is
// attributed to node.
func (o *Observer) WatchScope(node *domain.Node, root string) (string, bool) {
	if !o.fsnotify {
		return "", false
	}
	return nodeWorkDir(root, node.WorkingDir.String()), true
}

// Observe starts observing one execution of node.
func (o *Observer) Observe(
	ctx context.Context,
	contextID string,
	node *domain.Node,
	root string,
	sink ports.EventSink,
) (ports.Observation, error) {
	obs := &observation{
		contextID: contextID,
		sink:      sink,
		logger:    o.logger,
		root:      root,
		workDir:   nodeWorkDir(root, node.WorkingDir.String()),
	}

	if o.report {
		path, err := createReportFile(root, contextID)
		if err != nil {
			return nil, err
		}
		obs.reportPath = path
	}

	if o.fsnotify {
		w, err := startWatch(ctx, obs, o.barrierTimeout)
		if err != nil {
			obs.removeReport()
			return nil, zerr.With(zerr.Wrap(err, domain.ErrObserverFailed.Error()), "dir", obs.workDir)
		}
		obs.watch = w
	}

	return obs, nil
}

type observation struct {
	contextID  string
	sink       ports.EventSink
	logger     ports.Logger
	root       string
	workDir    string
	reportPath string
	watch      *watch

	stopOnce sync.Once
	stopErr  error
}

// Env points the node at its access report file.
func (o *observation) Env() []string {
	if o.reportPath == "" {
		return nil
	}
	return []string{domain.AccessReportEnv + "=" + o.reportPath}
}

// Stop flushes the watch, relays the report and then emits the sentinel. Later calls
// return the first result.
func (o *observation) Stop() error {
	o.stopOnce.Do(func() {
		var errs []error
		if o.watch != nil {
			errs = append(errs, o.watch.stop())
		}
		if o.reportPath != "" {
			errs = append(errs, o.relayReport())
			o.removeReport()
		}
		o.sink.ReportFileAccess(domain.NewSentinelEvent(), o.contextID)
		o.stopErr = errors.Join(errs...)
	})
	return o.stopErr
}

func (o *observation) emit(ev domain.FileAccessEvent) {
	if o.ignored(ev.Path) {
		return
	}
	o.sink.ReportFileAccess(ev, o.contextID)
}

// ignored filters memo's own workspace directory.
func (o *observation) ignored(path string) bool {
	internal := filepath.Join(o.root, domain.MemoDirName)
	return path == internal || strings.HasPrefix(path, internal+string(filepath.Separator))
}

func (o *observation) removeReport() {
	if o.reportPath != "" {
		_ = os.Remove(o.reportPath)
	}
}

func nodeWorkDir(root, dir string) string {
	if dir == "" {
		return root
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}

// skippedDirs are never watched.
var skippedDirs = []string{".git", ".jj", domain.MemoDirName, "node_modules"}

func skipDir(name string) bool {
	return slices.Contains(skippedDirs, name)
}
