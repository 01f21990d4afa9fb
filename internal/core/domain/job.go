package domain

import "time"

// Priority orders resume jobs in the queue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric rank of a priority, lower dequeues first.
// Unknown priorities sort after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// JobStatus is the lifecycle state of a resume job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Active reports whether the job still occupies its failure record.
func (s JobStatus) Active() bool {
	return s == JobPending || s == JobInProgress
}

// JobType distinguishes how a resume job was created.
type JobType string

const (
	JobResumeEnrichment JobType = "resume_enrichment"
	JobManualRepair     JobType = "manual_repair"
)

// ResumeJob re-enters the pipeline at a specific (node, agent) after the
// failure that produced it has been fixed.
type ResumeJob struct {
	ID             string         `json:"id"               db:"id"`
	Type           JobType        `json:"type"             db:"job_type"`
	SourceBay      Bay            `json:"source_bay"       db:"source_bay"`
	SourceRecordID string         `json:"source_record_id" db:"source_record_id"`
	ResumeNode     NodeName       `json:"resume_node"      db:"resume_node"`
	ResumeAgent    AgentName      `json:"resume_agent"     db:"resume_agent"`
	Priority       Priority       `json:"priority"         db:"priority"`
	Status         JobStatus      `json:"status"           db:"status"`
	Payload        map[string]any `json:"payload,omitempty"`
	EnqueuedAt     time.Time      `json:"enqueued_at"      db:"enqueued_at"`
	UpdatedAt      time.Time      `json:"updated_at"       db:"updated_at"`
}
