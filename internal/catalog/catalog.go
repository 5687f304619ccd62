package catalog

import "context"

// Blueprint is one entry from the tech catalog. Only the fields the engine
// consumes are decoded; the catalog service owns the full wire shape.
type Blueprint struct {
	Type       string      `json:"type"`
	Production *Production `json:"production,omitempty"`
	Build      *BuildRule  `json:"build,omitempty"`
	Refine     *RefineRule `json:"refine,omitempty"`
}

type Production struct {
	Manufacture []ProductionEntry `json:"manufacture,omitempty"`
	Refine      []ProductionEntry `json:"refine,omitempty"`
	Construct   []ProductionEntry `json:"construct,omitempty"`
	Generate    *GeneratorRule    `json:"generate,omitempty"`
}

type ProductionEntry struct {
	Item string `json:"item"`
}

type BuildRule struct {
	Time      int64            `json:"time"`
	Resources map[string]int64 `json:"resources"`
}

type RefineRule struct {
	Time    int64            `json:"time"`
	Outputs map[string]int64 `json:"outputs"`
}

type GeneratorRule struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	Period   int64  `json:"period"` // seconds
}

// List returns the production list for the given action, nil when the
// blueprint cannot run that action at all.
func (p *Production) List(action string) []ProductionEntry {
	if p == nil {
		return nil
	}
	switch action {
	case "manufacture":
		return p.Manufacture
	case "refine":
		return p.Refine
	case "construct":
		return p.Construct
	default:
		return nil
	}
}

// CanProduce reports whether the blueprint's production list for action
// contains target.
func (b Blueprint) CanProduce(action, target string) bool {
	for _, entry := range b.Production.List(action) {
		if entry.Item == target {
			return true
		}
	}
	return false
}

// IsProductionCapable reports whether the blueprint declares any production
// definition at all.
func (b Blueprint) IsProductionCapable() bool {
	return b.Production != nil
}

// Service fetches blueprint definitions from the tech catalog.
type Service interface {
	FetchAll(ctx context.Context) (map[string]Blueprint, error)
}
