package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/orbitalworks/foundry/internal/accountctx"
	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/catalog"
	"github.com/orbitalworks/foundry/internal/clock"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         jobdomain.Repository
	FacilityRepo facilitydomain.Repository
	Catalog      catalog.Service
	Clock        clock.Clock
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         jobdomain.Repository
	facilityRepo facilitydomain.Repository
	catalog      catalog.Service
	clock        clock.Clock
}

func New(p Params) jobdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("job.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		facilityRepo: p.FacilityRepo,
		catalog:      p.Catalog,
		clock:        p.Clock,
	}
}

func (s *Service) Submit(ctx context.Context, req jobdomain.SubmitRequest) (*jobdomain.Job, error) {
	caller, ok := accountctx.FromContext(ctx)
	if !ok {
		return nil, authgw.ErrUnauthorized
	}

	action, err := jobdomain.ParseAction(strings.TrimSpace(req.Action))
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return nil, jobdomain.ErrUnableToProduce
	}

	facility, err := s.facilityRepo.FindByID(ctx, s.db, strings.TrimSpace(req.FacilityID))
	if err != nil {
		return nil, err
	}
	if facility.AccountID != caller.AccountID {
		return nil, jobdomain.ErrForbidden
	}

	quantity := req.Quantity
	if action == jobdomain.ActionConstruct {
		quantity = 1
	}
	if quantity < 1 {
		return nil, jobdomain.ErrInvalidQuantity
	}

	blueprints, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	facilityType, ok := blueprints[facility.BlueprintID]
	if !ok {
		return nil, facilitydomain.ErrUnknownBlueprint
	}
	if !facilityType.CanProduce(string(action), target) {
		return nil, jobdomain.ErrUnableToProduce
	}
	targetType, ok := blueprints[target]
	if !ok {
		return nil, facilitydomain.ErrUnknownBlueprint
	}

	job := &jobdomain.Job{
		ID:         s.genID.Generate(),
		FacilityID: facility.ID,
		AccountID:  caller.AccountID,
		Action:     action,
		Target:     target,
		Quantity:   quantity,
		Status:     jobdomain.StatusQueued,
		CreatedAt:  s.clock.Now(),
	}

	// Duration and refine outputs are frozen onto the job at submit time.
	switch action {
	case jobdomain.ActionRefine:
		if targetType.Refine == nil {
			return nil, jobdomain.ErrUnableToProduce
		}
		job.Duration = targetType.Refine.Time
		job.Outputs = targetType.Refine.Outputs
	default:
		if targetType.Build == nil {
			return nil, jobdomain.ErrUnableToProduce
		}
		job.Duration = targetType.Build.Time
	}

	if err := s.repo.Insert(ctx, s.db, job); err != nil {
		return nil, err
	}

	s.log.Info("job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("facility_id", job.FacilityID),
		zap.String("account", job.AccountID),
		zap.String("action", string(job.Action)),
		zap.String("target", job.Target),
		zap.Int64("quantity", job.Quantity),
	)
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (*jobdomain.Job, error) {
	caller, ok := accountctx.FromContext(ctx)
	if !ok {
		return nil, authgw.ErrUnauthorized
	}

	jobID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, jobdomain.ErrNotFound
	}

	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if job.AccountID != caller.AccountID && !caller.Privileged {
		return nil, jobdomain.ErrForbidden
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, all bool) ([]jobdomain.Job, error) {
	caller, ok := accountctx.FromContext(ctx)
	if !ok {
		return nil, authgw.ErrUnauthorized
	}

	if all && caller.Privileged {
		return s.repo.ListAll(ctx, s.db)
	}
	return s.repo.ListByAccount(ctx, s.db, caller.AccountID)
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	// Does the user get the resources back? Not supported.
	return jobdomain.ErrCancellationUnsupported
}
