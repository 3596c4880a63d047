package fileaccess

import (
	"sync"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// Handler receives the events fanned out by a Router.
type Handler interface {
	OnFileAccess(ev domain.FileAccessEvent, contextID string)
	OnProcess(ev domain.ProcessEvent, contextID string)
}

type registration struct {
	handler Handler
}

// Router fans file-access and process events out to every registered handler in
// registration order. It implements ports.EventSink.
type Router struct {
	mu       sync.RWMutex
	handlers []*registration
}

var _ ports.EventSink = (*Router)(nil)

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// Register adds h and returns a function that removes it again. The returned function
// is safe to call more than once.
func (r *Router) Register(h Handler) func() {
	reg := &registration{handler: h}

	r.mu.Lock()
	r.handlers = append(r.handlers, reg)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, existing := range r.handlers {
				if existing == reg {
					r.handlers = append(r.handlers[:i:i], r.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// ReportFileAccess delivers ev to every handler.
func (r *Router) ReportFileAccess(ev domain.FileAccessEvent, contextID string) {
	for _, reg := range r.snapshot() {
		reg.handler.OnFileAccess(ev, contextID)
	}
}

// ReportProcess delivers ev to every handler.
func (r *Router) ReportProcess(ev domain.ProcessEvent, contextID string) {
	for _, reg := range r.snapshot() {
		reg.handler.OnProcess(ev, contextID)
	}
}

// Len returns the number of registered handlers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// snapshot copies the handler list so handlers run without the lock held.
func (r *Router) snapshot() []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.handlers) == 0 {
		return nil
	}
	out := make([]*registration, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Dispatcher routes events to the Classifier registered for their execution context.
type Dispatcher struct {
	logger ports.Logger

	mu        sync.RWMutex
	byContext map[string]*Classifier
}

var _ Handler = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with no executions.
func NewDispatcher(logger ports.Logger) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		byContext: make(map[string]*Classifier),
	}
}

// Add associates contextID with c.
func (d *Dispatcher) Add(contextID string, c *Classifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byContext[contextID] = c
}

// Remove forgets contextID and returns its classifier.
func (d *Dispatcher) Remove(contextID string) (*Classifier, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.byContext[contextID]
	delete(d.byContext, contextID)
	return c, ok
}

// Get returns the classifier for contextID.
func (d *Dispatcher) Get(contextID string) (*Classifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byContext[contextID]
	return c, ok
}

// OnFileAccess implements Handler.
func (d *Dispatcher) OnFileAccess(ev domain.FileAccessEvent, contextID string) {
	c, ok := d.Get(contextID)
	if !ok {
		d.logger.Debug("dropping file access for unknown context " + contextID)
		return
	}
	c.ReportFileAccess(ev)
}

// OnProcess implements Handler.
func (d *Dispatcher) OnProcess(ev domain.ProcessEvent, contextID string) {
	c, ok := d.Get(contextID)
	if !ok {
		d.logger.Debug("dropping process event for unknown context " + contextID)
		return
	}
	c.ReportProcess(ev)
}
