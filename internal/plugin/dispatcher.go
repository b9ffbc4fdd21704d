package plugin

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/podium/internal/gesture"
)

// DefaultQueueSize is the number of pending plugin runs kept before new ones are dropped.
const DefaultQueueSize = 8

type job struct {
	gesture gesture.Label
	slide   int
	binding Binding
}

// Dispatcher runs gesture bindings in the background so a slow plugin
// never stalls the frame loop. A nil *Dispatcher ignores every call.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	bindings map[gesture.Label]Binding

	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	results []Result
}

// Result records the outcome of one dispatched run.
type Result struct {
	Gesture gesture.Label
	Plugin  string
	Err     error
}

// NewDispatcher starts a dispatcher worker. queueSize <= 0 uses DefaultQueueSize.
func NewDispatcher(m *Manager, e *Executor, bindings map[gesture.Label]Binding, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if bindings == nil {
		bindings = DefaultBindings()
	}
	d := &Dispatcher{
		manager:  m,
		executor: e,
		bindings: bindings,
		jobs:     make(chan job, queueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues the binding for g. It reports false when g is unbound,
// the queue is full or the dispatcher is nil.
func (d *Dispatcher) Dispatch(g gesture.Label, slide int) bool {
	if d == nil {
		return false
	}
	b, ok := d.bindings[g]
	if !ok {
		return false
	}
	select {
	case d.jobs <- job{gesture: g, slide: slide, binding: b}:
		return true
	default:
		log.Printf("Plugin queue full, dropping %s", g)
		return false
	}
}

// Results returns the outcomes recorded so far.
func (d *Dispatcher) Results() []Result {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Result, len(d.results))
	copy(out, d.results)
	return out
}

// Close drains pending runs and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.jobs)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.jobs {
		err := d.execute(j)
		if err != nil {
			log.Printf("Plugin %s for %s failed: %v", j.binding.Plugin, j.gesture, err)
		}
		d.mu.Lock()
		d.results = append(d.results, Result{Gesture: j.gesture, Plugin: j.binding.Plugin, Err: err})
		d.mu.Unlock()
	}
}

func (d *Dispatcher) execute(j job) error {
	p, err := d.manager.Get(j.binding.Plugin)
	if err != nil {
		return err
	}
	return d.executor.Run(context.Background(), p, j.binding, j.gesture, j.slide)
}
