package model

import (
	"regexp"
	"strings"
	"time"

	"study-plan-assistant/internal/domain"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// TaskType classifies what a job's message asked for. It only affects which
// generation path runs and how the job is reported in the metrics journal.
type TaskType string

const (
	TaskTypeChat         TaskType = "chat"
	TaskTypeStudyPlan    TaskType = "study_plan"
	TaskTypePlanRevision TaskType = "study_plan_revision"
)

// JobResult is the assistant message produced by a completed job.
type JobResult struct {
	MessageID string    `json:"message_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is one tracked unit of asynchronous generation work. After creation it
// mutates exactly once: the owning background worker moves it from
// processing to complete or error.
type Job struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	UserID      string     `json:"user_id"`
	Message     string     `json:"message"`
	TaskType    TaskType   `json:"task_type"`
	Status      JobStatus  `json:"status"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ProcessingSeconds float64 `json:"processing_time_seconds,omitempty"`
}

// jobIDRe is the full charset allowed in a job id. Ids double as persisted
// file names, so anything that could name a path (separators, dots) is out.
var jobIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func NewJob(id, sessionID, userID, message string) (*Job, error) {
	if sessionID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !jobIDRe.MatchString(id) {
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Job{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		Message:   message,
		TaskType:  ClassifyTask(message),
		Status:    JobStatusProcessing,
		StartedAt: time.Now(),
	}, nil
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}

// Complete moves the job to its terminal success state.
func (j *Job) Complete(res JobResult) error {
	if j.Status != JobStatusProcessing {
		return domain.ErrInvalidTransition
	}
	now := time.Now()
	j.Status = JobStatusComplete
	j.Result = &res
	j.CompletedAt = &now
	j.ProcessingSeconds = now.Sub(j.StartedAt).Seconds()
	return nil
}

// Fail moves the job to its terminal error state.
func (j *Job) Fail(msg string) error {
	if j.Status != JobStatusProcessing {
		return domain.ErrInvalidTransition
	}
	now := time.Now()
	j.Status = JobStatusError
	j.Error = msg
	j.CompletedAt = &now
	j.ProcessingSeconds = now.Sub(j.StartedAt).Seconds()
	return nil
}

var planKeywords = []string{
	"study plan", "learning plan", "create a plan", "help me study",
	"help me prepare", "study schedule", "study guide", "study strategy",
	"learning strategy", "make me a plan", "create a study",
	"personalized study", "how should i study", "how to study",
	"structured plan", "prepare for exam", "exam preparation",
	"plan my study", "learning roadmap", "study roadmap",
}

var revisionKeywords = []string{
	"revise the plan", "update the plan", "modify the plan", "change the plan",
	"adjust the study plan", "can you modify", "need more time for",
	"struggling with", "having trouble with", "focus more on",
	"spend more time on", "allocate more time", "too difficult",
	"not enough time", "different approach",
}

// ClassifyTask decides which generation path a message should take.
// Revision keywords win over plan keywords: "revise the plan" mentions a plan
// but must not start a fresh one.
func ClassifyTask(message string) TaskType {
	m := strings.ToLower(message)
	for _, kw := range revisionKeywords {
		if strings.Contains(m, kw) {
			return TaskTypePlanRevision
		}
	}
	for _, kw := range planKeywords {
		if strings.Contains(m, kw) {
			return TaskTypeStudyPlan
		}
	}
	return TaskTypeChat
}
