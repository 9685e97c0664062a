package domain

import "time"

// RunMode selects the page window of an ingestion run.
type RunMode string

const (
	// ModeBackfill sweeps the whole configured page window; used once on an empty store.
	ModeBackfill RunMode = "backfill"
	// ModeIncremental fetches only the first, most recent page.
	ModeIncremental RunMode = "incremental"
)

// Stage names the pipeline step an item was in when it failed or was skipped.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageClassify  Stage = "classify"
	StageParse     Stage = "parse"
	StageSummarize Stage = "summarize"
	StagePersist   Stage = "persist"
)

// RunReport aggregates the outcome of one ingestion run.
type RunReport struct {
	RunID      string
	Mode       RunMode
	StartedAt  time.Time
	FinishedAt time.Time
	Headlines  int
	Admitted   int
	Rejected   int
	Failed     map[Stage]int
	Created    []SummarizedArticle
	Duplicates int
	PageErrors int
}

// NewRunReport starts a report for a run.
func NewRunReport(runID string, mode RunMode, started time.Time) *RunReport {
	return &RunReport{
		RunID:     runID,
		Mode:      mode,
		StartedAt: started,
		Failed:    map[Stage]int{},
	}
}

// FailedTotal sums per-stage failures.
func (r *RunReport) FailedTotal() int {
	total := 0
	for _, n := range r.Failed {
		total += n
	}
	return total
}

// Duration of the run; zero until finished.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
