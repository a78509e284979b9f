// internal/app/system/workers/sweeper.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one periodic cleanup. Run returns how many items it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context) int
}

// Sweeper runs its tasks on a fixed interval until stopped.
type Sweeper struct {
	log      *zap.Logger
	interval time.Duration

	mu    sync.Mutex
	tasks []Task

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewSweeper creates a sweeper that runs every interval once started.
func NewSweeper(logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Add registers a task. Tasks added after Start run from the next tick.
func (w *Sweeper) Add(t Task) {
	w.mu.Lock()
	w.tasks = append(w.tasks, t)
	w.mu.Unlock()
}

// Start begins the background loop. Calling it twice is a no-op.
func (w *Sweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true

	w.wg.Add(1)
	go w.run()
	w.log.Info("sweeper started",
		zap.Duration("interval", w.interval),
		zap.Int("tasks", len(w.tasks)))
}

// Stop signals the loop to exit and waits for it. Safe to call more than once
// and before Start.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Sweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			w.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs every task once.
func (w *Sweeper) Sweep() {
	w.mu.Lock()
	tasks := append([]Task(nil), w.tasks...)
	w.mu.Unlock()

	for _, t := range tasks {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n := t.Run(ctx)
		cancel()
		if n > 0 {
			w.log.Info("sweep removed items",
				zap.String("task", t.Name),
				zap.Int("count", n))
		}
	}
}
