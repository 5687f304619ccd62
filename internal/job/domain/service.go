package domain

import "context"

type SubmitRequest struct {
	FacilityID string `json:"facility"`
	Action     string `json:"action"`
	Target     string `json:"target"`
	Quantity   int64  `json:"quantity"`
}

type Service interface {
	// Submit validates and persists a job. Resource consumption is deferred
	// to the scheduler so submission latency is independent of the ledger.
	Submit(ctx context.Context, req SubmitRequest) (*Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, all bool) ([]Job, error)
	// Cancel always fails: refunds are unsupported.
	Cancel(ctx context.Context, id string) error
}
