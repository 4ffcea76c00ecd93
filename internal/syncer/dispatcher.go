package syncer

import (
	"context"
	"sync"
	"time"
)

// Dispatcher decouples filesystem notification delivery from catalog
// writes. Events land in a per-path coalescing map (so a burst of writes
// to one file becomes one task, and a later event for a path supersedes an
// earlier pending one — last write wins), then flow through a bounded task
// channel into a single worker. One worker means tasks never interleave
// and per-path order is trivially preserved; there is no ordering across
// different paths.
type Dispatcher struct {
	syncer   *Syncer
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]pendingTask

	tasks chan Task
}

type pendingTask struct {
	op Op
	at time.Time
}

// DispatcherConfig holds configuration options for a Dispatcher.
type DispatcherConfig struct {
	// Debounce is how long a path must stay quiet before its pending task
	// is applied. Default: 100ms.
	Debounce time.Duration
	// QueueSize bounds the task channel. Default: 256. The notification
	// goroutine never blocks on it; only the flusher does.
	QueueSize int
}

// NewDispatcher creates a Dispatcher applying tasks through s.
func NewDispatcher(s *Syncer, cfg DispatcherConfig) *Dispatcher {
	debounce := cfg.Debounce
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}
	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = 256
	}
	return &Dispatcher{
		syncer:   s,
		debounce: debounce,
		pending:  make(map[string]pendingTask),
		tasks:    make(chan Task, queueSize),
	}
}

// Enqueue records an event for a path. It only touches the coalescing map
// and returns immediately, so it is safe to call from the filesystem
// notification goroutine.
func (d *Dispatcher) Enqueue(task Task) {
	d.mu.Lock()
	d.pending[task.Path] = pendingTask{op: task.Op, at: time.Now()}
	d.mu.Unlock()
}

// Run flushes debounced tasks to the worker until ctx is cancelled, then
// drains: everything still pending or queued is applied before Run
// returns. No task is abandoned half-way.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for task := range d.tasks {
			if err := d.syncer.Apply(task); err != nil {
				d.syncer.debugf("task %s %s: %v", task.Op, task.Path, err)
			}
		}
	}()

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flush(true)
			close(d.tasks)
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			d.flush(false)
		}
	}
}

// flush moves pending tasks past the debounce window (or all of them,
// when draining) onto the task channel.
func (d *Dispatcher) flush(all bool) {
	d.mu.Lock()
	now := time.Now()
	var ready []Task
	for path, p := range d.pending {
		if all || now.Sub(p.at) >= d.debounce {
			ready = append(ready, Task{Op: p.op, Path: path})
			delete(d.pending, path)
		}
	}
	d.mu.Unlock()

	for _, task := range ready {
		d.tasks <- task
	}
}
