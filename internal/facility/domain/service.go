package domain

import "context"

type BuildRequest struct {
	ID          string `json:"id"`
	BlueprintID string `json:"blueprint"`
	AccountID   string `json:"account"`
}

type Response struct {
	ID                       string     `json:"id"`
	BlueprintID              string     `json:"blueprint"`
	AccountID                string     `json:"account"`
	Generator                *Generator `json:"resources,omitempty"`
	ResourcesLastDeliveredAt *int64     `json:"resources_last_delivered_at,omitempty"` // unix seconds
}

type Service interface {
	Build(ctx context.Context, req BuildRequest) (*Facility, error)
	Destroy(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Facility, error)
	List(ctx context.Context) ([]Facility, error)
}
