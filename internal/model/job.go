package model

// JobStatus is the lifecycle state of one upload -> stream -> verify workflow.
type JobStatus string

const (
	JobStreaming JobStatus = "streaming"
	JobFinished  JobStatus = "finished"
)

// Phase names one stage of the extraction pipeline. Transitions only ever
// move parse -> extract.
type Phase string

const (
	PhaseParse   Phase = "parse"
	PhaseExtract Phase = "extract"
)

// Job is the persisted identity and latest progress of one upload.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Phase     Phase     `json:"phase,omitempty"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
}

// ProgressSnapshot is the last persisted (phase, processed, total, ts) tuple,
// replayed to the client on reconnect.
type ProgressSnapshot struct {
	Phase     Phase `json:"phase"`
	Processed int   `json:"processed"`
	Total     int   `json:"total"`
	TS        int64 `json:"ts"`
}
