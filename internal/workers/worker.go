package workers

import (
	"context"
	"sync"
)

// Worker interface defines the contract for all background workers
type Worker interface {
	// Start runs the worker until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the worker
	Stop() error

	// GetWorkerID returns the unique identifier for this worker
	GetWorkerID() string

	IsRunning() bool
}

// BaseWorker provides common functionality for all workers
type BaseWorker struct {
	WorkerID string
	StopChan chan struct{}

	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(workerID string) *BaseWorker {
	return &BaseWorker{
		WorkerID: workerID,
		StopChan: make(chan struct{}),
	}
}

// GetWorkerID returns the worker's unique identifier
func (w *BaseWorker) GetWorkerID() string {
	return w.WorkerID
}

// Stop gracefully stops the worker. Calling it more than once is safe.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.StopChan)
	})
	return nil
}

// IsRunning checks if the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *BaseWorker) setRunning(running bool) {
	w.mu.Lock()
	w.running = running
	w.mu.Unlock()
}
