package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Action string

const (
	ActionManufacture Action = "manufacture"
	ActionRefine      Action = "refine"
	ActionConstruct   Action = "construct"
)

func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionManufacture, ActionRefine, ActionConstruct:
		return Action(raw), nil
	default:
		return "", ErrInvalidAction
	}
}

// Status advances strictly forward: queued -> resourcesFulfilled -> delivered.
type Status string

const (
	StatusQueued             Status = "queued"
	StatusResourcesFulfilled Status = "resourcesFulfilled"
	StatusDelivered          Status = "delivered"
)

// Job is one production request. Outputs is populated only for refine jobs;
// Duration and Outputs are copied from the catalog at submit time so later
// catalog changes cannot alter an in-flight job.
type Job struct {
	ID         snowflake.ID
	FacilityID string
	AccountID  string

	Action   Action
	Target   string
	Quantity int64
	Duration int64 // seconds per unit
	Outputs  map[string]int64
	FinishAt *time.Time

	Status              Status
	NextStatus          *Status
	NextStatusStartedAt *time.Time
	StatusCompletedAt   *time.Time
	CreatedAt           time.Time
}

// Leased reports whether a transition is currently in flight for the job.
func (j *Job) Leased() bool {
	return j != nil && j.NextStatus != nil
}

// Due reports whether a fulfilled job's build time has elapsed.
func (j *Job) Due(now time.Time) bool {
	return j != nil && j.FinishAt != nil && !j.FinishAt.After(now)
}

type Response struct {
	ID         string           `json:"id"`
	FacilityID string           `json:"facility"`
	AccountID  string           `json:"account"`
	Action     Action           `json:"action"`
	Target     string           `json:"target"`
	Quantity   int64            `json:"quantity"`
	Duration   int64            `json:"duration"`
	Outputs    map[string]int64 `json:"outputs,omitempty"`
	Status     Status           `json:"status"`
	FinishAt   *int64           `json:"finish_at,omitempty"` // unix seconds
	CreatedAt  int64            `json:"created_at"`
}

func (j *Job) ToResponse() Response {
	resp := Response{
		ID:         j.ID.String(),
		FacilityID: j.FacilityID,
		AccountID:  j.AccountID,
		Action:     j.Action,
		Target:     j.Target,
		Quantity:   j.Quantity,
		Duration:   j.Duration,
		Outputs:    j.Outputs,
		Status:     j.Status,
		CreatedAt:  j.CreatedAt.Unix(),
	}
	if j.FinishAt != nil {
		ts := j.FinishAt.Unix()
		resp.FinishAt = &ts
	}
	return resp
}
