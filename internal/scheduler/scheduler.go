package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/orbitalworks/foundry/internal/catalog"
	"github.com/orbitalworks/foundry/internal/clock"
	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"github.com/orbitalworks/foundry/internal/ledger"
	obsmetrics "github.com/orbitalworks/foundry/internal/observability/metrics"
	"github.com/orbitalworks/foundry/internal/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	JobRepo      jobdomain.Repository
	FacilityRepo facilitydomain.Repository
	FacilitySvc  facilitydomain.Service
	Catalog      catalog.Service
	Ledger       ledger.Service
	Registry     *registry.Registry
	Hub          *events.Hub
	Config       Config `optional:"true"`
}

// Scheduler drives every facility's job pipeline and resource generation.
// All concurrency control lives in the durable lease columns; two scheduler
// instances racing on the same entity is safe, merely wasteful.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	genID        *snowflake.Node
	clock        clock.Clock
	jobRepo      jobdomain.Repository
	facilityRepo facilitydomain.Repository
	facilitySvc  facilitydomain.Service
	catalog      catalog.Service
	ledger       ledger.Service
	registry     *registry.Registry
	hub          *events.Hub
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil ||
		p.JobRepo == nil || p.FacilityRepo == nil || p.FacilitySvc == nil ||
		p.Catalog == nil || p.Ledger == nil || p.Registry == nil || p.Hub == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		genID:        p.GenID,
		clock:        p.Clock,
		jobRepo:      p.JobRepo,
		facilityRepo: p.FacilityRepo,
		facilitySvc:  p.FacilitySvc,
		catalog:      p.Catalog,
		ledger:       p.Ledger,
		registry:     p.Registry,
		hub:          p.Hub,
	}, nil
}

// RunOnce scans every facility and advances at most one job transition plus
// one generation check per facility. Facilities are processed concurrently;
// one facility's failure never blocks the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	runID := s.genID.Generate().String()
	schedMetrics := obsmetrics.Scheduler()
	s.log.Debug("scheduler.tick.start", zap.String("run_id", runID))

	facilities, err := s.facilityRepo.List(ctx, s.db)
	if err != nil {
		s.log.Error("scheduler.tick.scan_failed", zap.String("run_id", runID), zap.Error(err))
		return err
	}

	sem := make(chan struct{}, s.cfg.DispatchWidth)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var tickErr error
	errCount := 0

	for i := range facilities {
		if ctx.Err() != nil {
			tickErr = errors.Join(tickErr, ctx.Err())
			break
		}
		facility := facilities[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.processFacility(ctx, runID, &facility); err != nil {
				mu.Lock()
				tickErr = errors.Join(tickErr, err)
				errCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	schedMetrics.IncTickRun()
	schedMetrics.ObserveTickDuration(time.Since(start))
	s.log.Debug("scheduler.tick.finish",
		zap.String("run_id", runID),
		zap.Int("processed", len(facilities)),
		zap.Int("errors", errCount),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return tickErr
}

// RunForever ticks at the configured interval until ctx is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processFacility evaluates the facility's job queue head and its resource
// generator. Errors from external effects are already resolved (lease
// released, retried next tick) by the transition helpers; whatever reaches
// here is a genuine storage fault.
func (s *Scheduler) processFacility(ctx context.Context, runID string, facility *facilitydomain.Facility) error {
	var procErr error

	job, err := s.jobRepo.NextPending(ctx, s.db, facility.ID)
	if err != nil {
		procErr = errors.Join(procErr, err)
	} else if job != nil && !job.Leased() {
		switch job.Status {
		case jobdomain.StatusQueued:
			procErr = errors.Join(procErr, s.fulfillJob(ctx, runID, job))
		case jobdomain.StatusResourcesFulfilled:
			if job.Due(s.clock.Now()) {
				procErr = errors.Join(procErr, s.deliverJob(ctx, runID, job))
			}
		}
	}

	procErr = errors.Join(procErr, s.checkGeneration(ctx, runID, facility))
	return procErr
}
