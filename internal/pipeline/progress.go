package pipeline

import "time"

// Stage names the phase a run is in.
type Stage string

// Run stages, in order. A run ends in StageDone or StageFailed.
const (
	StagePending    Stage = "PENDING"
	StageCollecting Stage = "COLLECTING"
	StageFetching   Stage = "FETCHING"
	StageFinalizing Stage = "FINALIZING"
	StageUploading  Stage = "UPLOADING"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID           string   `json:"run_id"`
	Stage           Stage    `json:"stage"`
	Discovered      int      `json:"discovered"`
	Written         int      `json:"written"`
	Skipped         int      `json:"skipped"`
	SalaryMalformed int      `json:"salary_malformed"`
	Artifacts       []string `json:"artifacts,omitempty"`
}

// Summary is published when a run ends.
type Summary struct {
	Progress
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// Progress returns a copy of the current run state. Safe to call from other
// goroutines while Run executes.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Artifacts = append([]string(nil), r.progress.Artifacts...)
	return p
}

func (r *Runner) setStage(s Stage) {
	r.update(func(p *Progress) { p.Stage = s })
}

func (r *Runner) update(fn func(*Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.progress)
}

func (r *Runner) summarize(started time.Time, runErr error) Summary {
	finished := r.now()
	s := Summary{
		Progress:   r.Progress(),
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Duration:   finished.Sub(started),
	}
	if runErr != nil {
		s.Error = runErr.Error()
		s.Stage = StageFailed
	} else {
		s.Stage = StageDone
	}
	return s
}
