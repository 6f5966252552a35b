package report

import (
	"path/filepath"
	"sync"
	"time"
)

// IndexWriter provides thread-safe updates to the report index.
// The engine reports from its test coroutine while the host may read the
// index from the frame loop.
type IndexWriter struct {
	mu        sync.Mutex
	outputDir string
	path      string
	index     *Index

	// Debouncing for progress updates
	pending   map[string]*TestUpdate
	timer     *time.Timer
	immediate chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewIndexWriter creates a new IndexWriter.
func NewIndexWriter(outputDir string, index *Index) *IndexWriter {
	w := &IndexWriter{
		outputDir: outputDir,
		path:      filepath.Join(outputDir, "report.json"),
		index:     index,
		pending:   make(map[string]*TestUpdate),
		immediate: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

// Start marks the run as started.
func (w *IndexWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.index.Status = StatusRunning
	w.index.StartTime = now
	w.index.LastUpdated = now

	w.flushLocked()
}

// UpdateTest updates a test entry in the index.
// Terminal states (passed/failed/skipped) flush immediately.
// Progress updates are debounced to reduce I/O.
func (w *IndexWriter) UpdateTest(testID string, update *TestUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[testID] = update

	if update.Status.IsTerminal() {
		w.flushLocked()
		return
	}

	// Debounced flush for progress updates (100ms)
	if w.timer == nil {
		w.timer = time.AfterFunc(100*time.Millisecond, func() {
			select {
			case w.immediate <- struct{}{}:
			default:
			}
		})
	}
}

// End marks the run as complete. Tests still pending are marked skipped.
func (w *IndexWriter) End() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for testID, update := range w.pending {
		w.applyUpdate(testID, update)
	}
	w.pending = make(map[string]*TestUpdate)
	for i := range w.index.Tests {
		if !w.index.Tests[i].Status.IsTerminal() {
			w.index.Tests[i].Status = StatusSkipped
		}
	}

	now := time.Now()
	w.index.EndTime = &now
	w.index.Status = w.computeRunStatus()

	w.flushLocked()
}

// Close shuts down the IndexWriter and flushes any pending updates.
// Calling it more than once is a no-op.
func (w *IndexWriter) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.flush()
	})
}

// GetIndex returns a copy of the current index (for reading).
func (w *IndexWriter) GetIndex() Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := *w.index
	idx.Tests = append([]TestEntry(nil), w.index.Tests...)
	return idx
}

// flushLoop handles debounced flush requests.
func (w *IndexWriter) flushLoop() {
	for {
		select {
		case <-w.immediate:
			w.flush()
		case <-w.done:
			return
		}
	}
}

// flush applies pending updates and writes to disk.
func (w *IndexWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

// flushLocked flushes while holding the lock.
func (w *IndexWriter) flushLocked() {
	for testID, update := range w.pending {
		w.applyUpdate(testID, update)
	}
	w.pending = make(map[string]*TestUpdate)

	w.index.UpdateSeq++
	w.index.LastUpdated = time.Now()
	w.index.Summary = w.computeSummary()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	atomicWriteJSON(w.path, w.index)
}

// applyUpdate applies a TestUpdate to the index.
func (w *IndexWriter) applyUpdate(testID string, update *TestUpdate) {
	for i := range w.index.Tests {
		if w.index.Tests[i].ID != testID {
			continue
		}
		t := &w.index.Tests[i]
		t.Status = update.Status
		if update.StartTime != nil {
			t.StartTime = update.StartTime
		}
		if update.EndTime != nil {
			t.EndTime = update.EndTime
		}
		if update.Duration != nil {
			t.Duration = update.Duration
		}
		t.Log = update.Log
		if update.Error != nil {
			t.Error = update.Error
		}
		t.UpdateSeq++
		now := time.Now()
		t.LastUpdated = &now
		return
	}
}

// computeSummary calculates summary from test statuses.
func (w *IndexWriter) computeSummary() Summary {
	var s Summary
	for _, t := range w.index.Tests {
		s.Total++
		switch t.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

// computeRunStatus determines overall run status from tests.
func (w *IndexWriter) computeRunStatus() Status {
	hasFailure := false
	for _, t := range w.index.Tests {
		if !t.Status.IsTerminal() {
			return StatusRunning
		}
		if t.Status == StatusFailed {
			hasFailure = true
		}
	}
	if hasFailure {
		return StatusFailed
	}
	return StatusPassed
}
