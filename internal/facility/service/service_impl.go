package service

import (
	"context"
	"strings"

	"github.com/orbitalworks/foundry/internal/catalog"
	"github.com/orbitalworks/foundry/internal/clock"
	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	"github.com/orbitalworks/foundry/internal/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     facilitydomain.Repository
	Catalog  catalog.Service
	Registry *registry.Registry
	Hub      *events.Hub
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     facilitydomain.Repository
	catalog  catalog.Service
	registry *registry.Registry
	hub      *events.Hub
	clock    clock.Clock
}

func New(p Params) facilitydomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("facility.service"),
		repo:     p.Repo,
		catalog:  p.Catalog,
		registry: p.Registry,
		hub:      p.Hub,
		clock:    p.Clock,
	}
}

func (s *Service) Build(ctx context.Context, req facilitydomain.BuildRequest) (*facilitydomain.Facility, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, facilitydomain.ErrNotFound
	}

	blueprints, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	bp, ok := blueprints[req.BlueprintID]
	if !ok {
		return nil, facilitydomain.ErrUnknownBlueprint
	}
	if !bp.IsProductionCapable() {
		return nil, facilitydomain.ErrNotProductionCapable
	}

	now := s.clock.Now()
	f := &facilitydomain.Facility{
		ID:          id,
		BlueprintID: req.BlueprintID,
		AccountID:   req.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rule := bp.Production.Generate; rule != nil {
		f.Generator = &facilitydomain.Generator{
			ItemType: rule.Type,
			Quantity: rule.Quantity,
			Period:   rule.Period,
		}
	}

	if err := s.repo.Upsert(ctx, s.db, f); err != nil {
		return nil, err
	}

	if bp.Type == "structure" || bp.Type == "deployable" {
		s.registry.Register(f.ID, f.BlueprintID)
	}

	s.hub.Publish(events.Event{
		AccountID: f.AccountID,
		Kind:      events.KindFacility,
		State:     f.ToResponse(),
	})
	s.log.Info("facility built",
		zap.String("facility_id", f.ID),
		zap.String("blueprint", f.BlueprintID),
		zap.String("account", f.AccountID),
	)
	return f, nil
}

func (s *Service) Destroy(ctx context.Context, id string) error {
	f, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}

	// Tombstone first so subscribers learn the last known owner/blueprint.
	s.hub.Publish(events.Event{
		AccountID: f.AccountID,
		Kind:      events.KindFacility,
		State:     f.ToResponse(),
		Tombstone: true,
	})

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}
	s.registry.Remove(id)

	s.log.Info("facility destroyed",
		zap.String("facility_id", id),
		zap.String("account", f.AccountID),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*facilitydomain.Facility, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context) ([]facilitydomain.Facility, error) {
	return s.repo.List(ctx, s.db)
}
