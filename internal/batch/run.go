package batch

import "sync"

// Run states
const (
	StateStarting   = "starting"
	StateExpanding  = "expanding-archives"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateCancelled  = "cancelled"
)

// Item outcome tags
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// ItemResult is the settled outcome of one item in a batch
type ItemResult struct {
	FileName string `json:"fileName"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	RecordID int64  `json:"recordId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Summary is the terminal result of a batch run
type Summary struct {
	RunID      string       `json:"runId"`
	TotalFiles int          `json:"totalFiles"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Duplicates int          `json:"duplicates"`
	Results    []ItemResult `json:"results"`
}

// Status is a point-in-time snapshot of a run for polling callers
type Status struct {
	RunID      string `json:"runId"`
	State      string `json:"state"`
	TotalFiles int    `json:"totalFiles"`
	Processed  int    `json:"processed"`
	Paused     bool   `json:"paused"`
	Cancelled  bool   `json:"cancelled"`
}

// Run is the shared mutable state of one batch. It is mutated by every
// concurrent worker of the batch and by external pause/resume/cancel
// signals, so all access goes through the mutex.
type Run struct {
	id string

	mu         sync.Mutex
	state      string
	totalFiles int
	processed  int
	paused     bool
	cancelled  bool
	results    []ItemResult

	done chan struct{}
}

func newRun(id string) *Run {
	return &Run{
		id:    id,
		state: StateStarting,
		done:  make(chan struct{}),
	}
}

func (r *Run) setState(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *Run) setTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalFiles = n
}

// advance records a settled item and returns the new progress counters
func (r *Run) advance(res ItemResult) (processed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	r.results = append(r.results, res)
	return r.processed, r.totalFiles
}

// Pause sets the paused flag; returns false if the run is terminal or
// already paused
func (r *Run) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() || r.paused {
		return false
	}
	r.paused = true
	return true
}

// Resume clears the paused flag; returns false if it was not set
func (r *Run) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		return false
	}
	r.paused = false
	return true
}

// Cancel sets the cancelled flag. Cancellation is terminal: there is no
// un-cancel. Returns false if the run was already terminal.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminalLocked() {
		return false
	}
	r.cancelled = true
	return true
}

func (r *Run) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *Run) IsCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *Run) terminalLocked() bool {
	return r.state == StateCompleted || r.state == StateCancelled || r.cancelled
}

// Status returns a consistent snapshot of the run
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		RunID:      r.id,
		State:      r.state,
		TotalFiles: r.totalFiles,
		Processed:  r.processed,
		Paused:     r.paused,
		Cancelled:  r.cancelled,
	}
}

// summary builds the terminal batch summary from settled results
func (r *Run) summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Summary{
		RunID:      r.id,
		TotalFiles: r.totalFiles,
		Results:    append([]ItemResult(nil), r.results...),
	}
	for _, res := range r.results {
		switch res.Outcome {
		case OutcomeSuccess:
			s.Successful++
		case OutcomeDuplicate:
			s.Duplicates++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
