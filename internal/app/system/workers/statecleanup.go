package workers

import (
	"context"
	"sync"
	"time"

	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ExpiredStates removes sign-in state entries past their expiry.
type ExpiredStates interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Task is an extra housekeeping step run on each sweep. It returns how
// many items it removed.
type Task func(ctx context.Context) (int64, error)

// StateCleanup is a background worker that sweeps expired OAuth state
// entries, plus any tasks added with Also. The TTL index removes states
// too, but only about once a minute and not at all on deployments without
// TTL support.
type StateCleanup struct {
	states   ExpiredStates
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]Task
}

// NewStateCleanup creates the worker. interval is how often it sweeps.
func NewStateCleanup(states ExpiredStates, logger *zap.Logger, interval time.Duration) *StateCleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateCleanup{
		states:   states,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		tasks:    map[string]Task{},
	}
}

// Also adds a named task to every sweep. Adding a name again replaces it.
func (w *StateCleanup) Also(name string, task Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks[name] = task
}

// Start begins the background cleanup loop.
func (w *StateCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *StateCleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("cleanup worker stopped")
}

func (w *StateCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one cleanup pass.
func (w *StateCleanup) Sweep() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "cleanup sweep")
	defer cancel()

	w.runOne(ctx, "oauth states", w.states.CleanupExpired)

	w.mu.Lock()
	tasks := make(map[string]Task, len(w.tasks))
	for name, t := range w.tasks {
		tasks[name] = t
	}
	w.mu.Unlock()

	for name, t := range tasks {
		w.runOne(ctx, name, t)
	}
}

func (w *StateCleanup) runOne(ctx context.Context, name string, task Task) {
	count, err := task(ctx)
	if err != nil {
		w.log.Error("cleanup task failed", zap.String("task", name), zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("cleanup removed items", zap.String("task", name), zap.Int64("count", count))
	}
}
