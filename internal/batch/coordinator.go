// Package batch orchestrates upload batches end-to-end: archive expansion,
// windowed concurrent extraction, duplicate rejection, persistence, and live
// progress reporting with cooperative pause/cancel.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/archive"
	"github.com/spendlyhq/invoice-ingest/internal/dedup"
	"github.com/spendlyhq/invoice-ingest/internal/extract"
	"github.com/spendlyhq/invoice-ingest/internal/ingest"
	"github.com/spendlyhq/invoice-ingest/internal/models"
	"github.com/spendlyhq/invoice-ingest/internal/notify"
	"github.com/spendlyhq/invoice-ingest/internal/pdftext"
	"github.com/spendlyhq/invoice-ingest/internal/platform"
	"github.com/spendlyhq/invoice-ingest/internal/storage"
)

// ErrEmptyBatch rejects a submission with no items before a run starts
var ErrEmptyBatch = errors.New("batch contains no items")

// UploadItem is a single unit submitted by a caller
type UploadItem struct {
	Name        string
	ContentType string
	Data        []byte
}

// Receipt is returned immediately at submission so control calls can target
// the run before it completes
type Receipt struct {
	RunID      string `json:"runId"`
	TotalFiles int    `json:"totalFiles"`
}

// Store is the record persistence consumed by the coordinator
type Store interface {
	Create(rec *models.InvoiceRecord) error
	Update(rec *models.InvoiceRecord) error
}

// Config holds coordinator tuning knobs
type Config struct {
	// WindowSize bounds how many items are in flight at once
	WindowSize int
	// PausePoll is how often a paused run re-checks its flags
	PausePoll time.Duration
}

// DefaultConfig returns the coordinator defaults
func DefaultConfig() Config {
	return Config{
		WindowSize: 5,
		PausePoll:  100 * time.Millisecond,
	}
}

// Coordinator runs upload batches. Each batch gets its own Run state object;
// the coordinator owns the registry of live runs.
type Coordinator struct {
	cfg      Config
	store    Store
	files    storage.FileStore
	expander *archive.Expander
	text     pdftext.Extractor
	fields   extract.FieldExtractor
	detector *dedup.Detector
	notifier notify.Notifier
	logger   *zap.Logger

	mu   sync.Mutex
	runs map[string]*Run
}

// NewCoordinator creates a new batch coordinator
func NewCoordinator(
	cfg Config,
	store Store,
	files storage.FileStore,
	text pdftext.Extractor,
	fields extract.FieldExtractor,
	detector *dedup.Detector,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Coordinator {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	if cfg.PausePoll <= 0 {
		cfg.PausePoll = DefaultConfig().PausePoll
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		files:    files,
		expander: archive.NewExpander(logger),
		text:     text,
		fields:   fields,
		detector: detector,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit accepts a batch and returns immediately with its run id. The count
// in the receipt is the pre-expansion item count; the definitive total is
// announced by the upload:start event once archives are expanded.
func (c *Coordinator) Submit(items []UploadItem) (*Receipt, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	run := newRun(uuid.NewString())

	c.mu.Lock()
	if c.runs == nil {
		c.runs = make(map[string]*Run)
	}
	c.runs[run.id] = run
	c.mu.Unlock()

	c.logger.Info("Batch accepted",
		zap.String("run_id", run.id),
		zap.Int("items", len(items)))

	go c.execute(run, items)

	return &Receipt{RunID: run.id, TotalFiles: len(items)}, nil
}

// Pause flags a run as paused. Fire-and-forget: a no-op for unknown or
// terminal runs, observed through subsequent progress events.
func (c *Coordinator) Pause(runID string) {
	if run := c.run(runID); run != nil && run.Pause() {
		c.notifier.Publish(notify.Event{Type: notify.EventUploadPaused, RunID: runID})
	}
}

// Resume clears a run's paused flag
func (c *Coordinator) Resume(runID string) {
	if run := c.run(runID); run != nil && run.Resume() {
		c.notifier.Publish(notify.Event{Type: notify.EventUploadResumed, RunID: runID})
	}
}

// Cancel flags a run as cancelled. In-flight items finish; no further
// windows start. Terminal: there is no un-cancel.
func (c *Coordinator) Cancel(runID string) {
	if run := c.run(runID); run != nil {
		run.Cancel()
	}
}

// Status reports a run's current progress, or false for an unknown run
func (c *Coordinator) Status(runID string) (Status, bool) {
	run := c.run(runID)
	if run == nil {
		return Status{}, false
	}
	return run.Status(), true
}

// Summary returns the per-item results accumulated so far
func (c *Coordinator) Summary(runID string) (*Summary, bool) {
	run := c.run(runID)
	if run == nil {
		return nil, false
	}
	return run.summary(), true
}

// Wait blocks until the run reaches a terminal state. Used by graceful
// shutdown and tests; returns false for an unknown run.
func (c *Coordinator) Wait(runID string) bool {
	run := c.run(runID)
	if run == nil {
		return false
	}
	<-run.done
	return true
}

func (c *Coordinator) run(id string) *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[id]
}

// workItem is one flattened PDF awaiting processing, already in temp storage
type workItem struct {
	name     string
	tempPath string
	data     []byte
}

// execute drives one batch from expansion through completion
func (c *Coordinator) execute(run *Run, items []UploadItem) {
	defer close(run.done)

	// Single consumer publishes worker progress; workers never block on a
	// slow listener.
	events := make(chan notify.Event, 128)
	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for evt := range events {
			c.notifier.Publish(evt)
		}
	}()
	emit := func(evt notify.Event) {
		select {
		case events <- evt:
		default:
		}
	}

	work, preFailed := c.expandItems(run, items)

	total := len(work) + len(preFailed)
	run.setTotal(total)
	run.setState(StateProcessing)

	c.notifier.Publish(notify.Event{
		Type:  notify.EventUploadStart,
		RunID: run.id,
		Data:  map[string]any{"totalFiles": total},
	})

	for _, res := range preFailed {
		c.settle(run, res, emit)
	}

	cancelled := false
	for start := 0; start < len(work); start += c.cfg.WindowSize {
		if !c.waitGate(run) {
			cancelled = true
			break
		}

		end := start + c.cfg.WindowSize
		if end > len(work) {
			end = len(work)
		}

		var wg sync.WaitGroup
		for _, item := range work[start:end] {
			wg.Add(1)
			go func(item workItem) {
				defer wg.Done()
				c.processItem(run, item, emit)
			}(item)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			work[i].data = nil // settled, release the bytes
		}
	}

	close(events)
	pump.Wait()

	if cancelled || run.IsCancelled() {
		// Undispatched items keep their temp files out of permanent storage
		for _, item := range work {
			if item.tempPath != "" && !c.itemSettled(run, item.name) {
				c.files.Delete(item.tempPath)
			}
		}
		run.setState(StateCancelled)
		c.notifier.Publish(notify.Event{Type: notify.EventUploadCancelled, RunID: run.id})
		c.logger.Info("Batch cancelled", zap.String("run_id", run.id))
		return
	}

	run.setState(StateCompleted)
	s := run.summary()
	c.notifier.Publish(notify.Event{
		Type:  notify.EventUploadComplete,
		RunID: run.id,
		Data: map[string]any{
			"successful": s.Successful,
			"failed":     s.Failed,
			"duplicates": s.Duplicates,
			"totalFiles": s.TotalFiles,
		},
	})
	c.logger.Info("Batch completed",
		zap.String("run_id", run.id),
		zap.Int("successful", s.Successful),
		zap.Int("failed", s.Failed),
		zap.Int("duplicates", s.Duplicates))
}

// expandItems flattens the submission: archives are expanded into their PDF
// entries, plain PDFs pass through, anything else fails up front. The
// flattened count is fixed for the remainder of the run.
func (c *Coordinator) expandItems(run *Run, items []UploadItem) (work []workItem, preFailed []ItemResult) {
	run.setState(StateExpanding)

	for _, item := range items {
		switch {
		case archive.IsArchive(item.Name, item.ContentType):
			entries, err := c.expandArchive(item)
			if err != nil {
				preFailed = append(preFailed, ItemResult{
					FileName: item.Name,
					Outcome:  OutcomeFailed,
					Error:    err.Error(),
				})
				continue
			}
			work = append(work, entries...)

		case archive.IsPDF(item.Name):
			tempPath, err := c.files.SaveTemp(item.Name, item.Data)
			if err != nil {
				preFailed = append(preFailed, ItemResult{
					FileName: item.Name,
					Outcome:  OutcomeFailed,
					Error:    err.Error(),
				})
				continue
			}
			work = append(work, workItem{name: item.Name, tempPath: tempPath, data: item.Data})

		default:
			preFailed = append(preFailed, ItemResult{
				FileName: item.Name,
				Outcome:  OutcomeFailed,
				Error:    fmt.Sprintf("unsupported file type: %s", item.Name),
			})
		}
	}

	return work, preFailed
}

// expandArchive stages an archive in temp storage, expands it, and removes
// the archive's temp copy whether expansion succeeded or failed
func (c *Coordinator) expandArchive(item UploadItem) ([]workItem, error) {
	archivePath, err := c.files.SaveTemp(item.Name, item.Data)
	if err != nil {
		return nil, err
	}
	defer c.files.Delete(archivePath)

	var entries []workItem
	err = c.expander.Expand(item.Data, func(name string, data []byte) error {
		tempPath, err := c.files.SaveTemp(name, data)
		if err != nil {
			return err
		}
		entries = append(entries, workItem{name: name, tempPath: tempPath, data: data})
		return nil
	})
	if err != nil {
		for _, e := range entries {
			c.files.Delete(e.tempPath)
		}
		return nil, err
	}

	return entries, nil
}

// waitGate blocks while the run is paused, re-checking cancellation at the
// poll interval so a pause can still be cancelled out of. Returns false when
// the run is cancelled.
func (c *Coordinator) waitGate(run *Run) bool {
	for {
		if run.IsCancelled() {
			return false
		}
		if !run.IsPaused() {
			return true
		}
		time.Sleep(c.cfg.PausePoll)
	}
}

// processItem runs the per-item pipeline: digest, duplicate check, text
// extraction, classification, field extraction, persistence, promotion.
// A failure settles the item as failed and never aborts the batch.
func (c *Coordinator) processItem(run *Run, item workItem, emit func(notify.Event)) {
	hash, err := ingest.HashReader(bytes.NewReader(item.data))
	if err != nil {
		c.files.Delete(item.tempPath)
		c.settle(run, ItemResult{FileName: item.name, Outcome: OutcomeFailed, Error: err.Error()}, emit)
		return
	}

	verdict := c.detector.Check(hash, item.name)
	if verdict.Duplicate {
		c.files.Delete(item.tempPath)
		c.settle(run, ItemResult{
			FileName: item.name,
			Outcome:  OutcomeDuplicate,
			Reason:   verdict.Reason,
		}, emit)
		return
	}

	rec := &models.InvoiceRecord{
		FileName: item.name,
		FileHash: hash,
		Platform: models.PlatformOther,
		Status:   models.StatusProcessing,
	}
	if err := c.store.Create(rec); err != nil {
		c.files.Delete(item.tempPath)
		c.settle(run, ItemResult{FileName: item.name, Outcome: OutcomeFailed, Error: err.Error()}, emit)
		return
	}

	emit(notify.Event{
		Type:     notify.EventUploadProgress,
		RunID:    run.id,
		FileName: item.name,
		Status:   models.StatusProcessing,
		Message:  "Extracting text",
	})

	text, err := c.text.ExtractText(item.data)
	if err != nil {
		c.failItem(run, rec, item, err, emit)
		return
	}

	rec.Platform = platform.Classify(text)
	rec.RawText = text
	rec.Fields = c.fields.Extract(context.Background(), text, rec.Platform)
	rec.Status = models.StatusCompleted

	if err := c.store.Update(rec); err != nil {
		c.failItem(run, rec, item, err, emit)
		return
	}

	// Bytes move to permanent storage only after the record is persisted
	finalPath, err := c.files.Promote(item.tempPath, item.name)
	if err != nil {
		c.failItem(run, rec, item, err, emit)
		return
	}

	rec.FilePath = finalPath
	if err := c.store.Update(rec); err != nil {
		c.logger.Warn("Failed to persist final file path",
			zap.Int64("record_id", rec.ID),
			zap.Error(err))
	}

	c.settle(run, ItemResult{
		FileName: item.name,
		Outcome:  OutcomeSuccess,
		RecordID: rec.ID,
	}, emit)
}

// failItem marks the record failed with the underlying error message and
// cleans up the item's temp bytes
func (c *Coordinator) failItem(run *Run, rec *models.InvoiceRecord, item workItem, cause error, emit func(notify.Event)) {
	rec.Status = models.StatusFailed
	rec.ErrorMessage = cause.Error()
	if err := c.store.Update(rec); err != nil {
		c.logger.Warn("Failed to mark record as failed",
			zap.Int64("record_id", rec.ID),
			zap.Error(err))
	}
	c.files.Delete(item.tempPath)
	c.settle(run, ItemResult{
		FileName: item.name,
		Outcome:  OutcomeFailed,
		RecordID: rec.ID,
		Error:    cause.Error(),
	}, emit)
}

// settle records an item outcome and emits the progress notification
func (c *Coordinator) settle(run *Run, res ItemResult, emit func(notify.Event)) {
	processed, total := run.advance(res)

	progress := 0
	if total > 0 {
		progress = processed * 100 / total
	}

	message := res.FileName + " " + res.Outcome
	if res.Error != "" {
		message = fmt.Sprintf("%s failed: %s", res.FileName, res.Error)
	} else if res.Reason != "" {
		message = fmt.Sprintf("%s is a duplicate (%s)", res.FileName, res.Reason)
	}

	emit(notify.Event{
		Type:     notify.EventUploadProgress,
		RunID:    run.id,
		FileName: res.FileName,
		Status:   res.Outcome,
		Message:  message,
		Progress: &progress,
	})
}

func (c *Coordinator) itemSettled(run *Run, name string) bool {
	run.mu.Lock()
	defer run.mu.Unlock()
	for _, res := range run.results {
		if res.FileName == name {
			return true
		}
	}
	return false
}
