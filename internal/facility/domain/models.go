package domain

import "time"

// Generator is the passive resource-generation descriptor copied from the
// blueprint at build time. Absent for non-generating facilities.
type Generator struct {
	ItemType string `json:"type"`
	Quantity int64  `json:"quantity"`
	Period   int64  `json:"period"` // seconds
}

func (g *Generator) PeriodDuration() time.Duration {
	if g == nil {
		return 0
	}
	return time.Duration(g.Period) * time.Second
}

// Facility is one player-owned production slot. ResourceLeaseStartedAt is the
// binary generation lease: non-nil means a delivery is in flight.
type Facility struct {
	ID                       string
	BlueprintID              string
	AccountID                string
	Generator                *Generator
	ResourceLeaseStartedAt   *time.Time
	ResourcesLastDeliveredAt *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (f *Facility) ToResponse() Response {
	resp := Response{
		ID:          f.ID,
		BlueprintID: f.BlueprintID,
		AccountID:   f.AccountID,
		Generator:   f.Generator,
	}
	if f.ResourcesLastDeliveredAt != nil {
		ts := f.ResourcesLastDeliveredAt.Unix()
		resp.ResourcesLastDeliveredAt = &ts
	}
	return resp
}
