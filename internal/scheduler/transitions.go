package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"github.com/orbitalworks/foundry/internal/ledger"
	obsmetrics "github.com/orbitalworks/foundry/internal/observability/metrics"
	"go.uber.org/zap"
)

// fulfillJob advances queued -> resourcesFulfilled: lease, debit the input
// resources, freeze finishAt, commit. A ledger failure releases the lease and
// the same job is retried on a later tick; the inventory is never debited
// twice because the debit only happens under a freshly won lease.
func (s *Scheduler) fulfillJob(ctx context.Context, runID string, job *jobdomain.Job) error {
	now := s.clock.Now()
	log := s.log.With(
		zap.String("run_id", runID),
		zap.String("job_id", job.ID.String()),
		zap.String("facility_id", job.FacilityID),
		zap.String("action", string(job.Action)),
	)

	won, err := s.jobRepo.Lease(ctx, s.db, job.ID, jobdomain.StatusQueued, jobdomain.StatusResourcesFulfilled, now)
	if err != nil {
		return fmt.Errorf("lease job %s: %w", job.ID, err)
	}
	if !won {
		obsmetrics.Scheduler().IncLeaseContention()
		return nil
	}

	deltas, err := s.inputDeltas(ctx, job)
	if err != nil {
		log.Warn("job.fulfill.inputs_unresolved", zap.Error(err))
		obsmetrics.Scheduler().IncTransitionFailure("catalog")
		return s.jobRepo.Release(ctx, s.db, job.ID, jobdomain.StatusResourcesFulfilled)
	}

	if err := s.ledger.ApplyDelta(ctx, job.AccountID, deltas); err != nil {
		log.Info("job.fulfill.debit_failed", zap.Error(err))
		obsmetrics.Scheduler().IncTransitionFailure("fulfill")
		return s.jobRepo.Release(ctx, s.db, job.ID, jobdomain.StatusResourcesFulfilled)
	}

	finishAt := now.Add(jobBuildDuration(job))
	job.FinishAt = &finishAt

	committed, err := s.jobRepo.Commit(ctx, s.db, job, jobdomain.StatusResourcesFulfilled, now)
	if err != nil {
		return fmt.Errorf("commit job %s: %w", job.ID, err)
	}
	if !committed {
		// Lost the lease between debit and commit; should not happen with a
		// single scheduler, another instance will converge the row.
		log.Warn("job.fulfill.commit_skipped")
		return nil
	}

	job.Status = jobdomain.StatusResourcesFulfilled
	job.NextStatus = nil
	job.NextStatusStartedAt = nil
	obsmetrics.Scheduler().IncTransition(string(job.Action), string(jobdomain.StatusResourcesFulfilled))
	log.Info("job.fulfill.committed", zap.Time("finish_at", finishAt))
	s.hub.Publish(events.Event{
		AccountID: job.AccountID,
		Kind:      events.KindJob,
		State:     job.ToResponse(),
	})
	return nil
}

// deliverJob advances resourcesFulfilled -> delivered once finishAt has
// passed: lease, apply the action's output effects, commit.
func (s *Scheduler) deliverJob(ctx context.Context, runID string, job *jobdomain.Job) error {
	now := s.clock.Now()
	log := s.log.With(
		zap.String("run_id", runID),
		zap.String("job_id", job.ID.String()),
		zap.String("facility_id", job.FacilityID),
		zap.String("action", string(job.Action)),
	)

	won, err := s.jobRepo.Lease(ctx, s.db, job.ID, jobdomain.StatusResourcesFulfilled, jobdomain.StatusDelivered, now)
	if err != nil {
		return fmt.Errorf("lease job %s: %w", job.ID, err)
	}
	if !won {
		obsmetrics.Scheduler().IncLeaseContention()
		return nil
	}

	var deliverErr error
	switch job.Action {
	case jobdomain.ActionManufacture:
		deliverErr = s.ledger.ApplyDelta(ctx, job.AccountID, []ledger.Delta{{
			ContainerID: job.FacilityID,
			Slice:       ledger.DefaultSlice,
			Item:        job.Target,
			Quantity:    job.Quantity,
		}})
	case jobdomain.ActionRefine:
		deltas := make([]ledger.Delta, 0, len(job.Outputs))
		for item, count := range job.Outputs {
			deltas = append(deltas, ledger.Delta{
				ContainerID: job.FacilityID,
				Slice:       ledger.DefaultSlice,
				Item:        item,
				Quantity:    count * job.Quantity,
			})
		}
		deliverErr = s.ledger.ApplyDelta(ctx, job.AccountID, deltas)
	case jobdomain.ActionConstruct:
		deliverErr = s.deliverConstruct(ctx, job)
	}
	if deliverErr != nil {
		log.Info("job.deliver.failed", zap.Error(deliverErr))
		obsmetrics.Scheduler().IncTransitionFailure("deliver")
		return s.jobRepo.Release(ctx, s.db, job.ID, jobdomain.StatusDelivered)
	}

	committed, err := s.jobRepo.Commit(ctx, s.db, job, jobdomain.StatusDelivered, now)
	if err != nil {
		return fmt.Errorf("commit job %s: %w", job.ID, err)
	}
	if !committed {
		log.Warn("job.deliver.commit_skipped")
		return nil
	}

	job.Status = jobdomain.StatusDelivered
	job.NextStatus = nil
	job.NextStatusStartedAt = nil
	job.StatusCompletedAt = &now
	obsmetrics.Scheduler().IncTransition(string(job.Action), string(jobdomain.StatusDelivered))
	log.Info("job.deliver.committed")
	s.hub.Publish(events.Event{
		AccountID: job.AccountID,
		Kind:      events.KindJob,
		State:     job.ToResponse(),
	})
	return nil
}

// deliverConstruct swaps the facility over to the constructed blueprint. The
// placement record is re-pointed first, then the facility row is rebuilt (or
// destroyed, when the new blueprint cannot produce anything), and finally the
// inventory container is re-labelled.
func (s *Scheduler) deliverConstruct(ctx context.Context, job *jobdomain.Job) error {
	if err := s.registry.Reassign(job.FacilityID, job.Target); err != nil {
		return fmt.Errorf("reassign structure %s: %w", job.FacilityID, err)
	}

	blueprints, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return err
	}
	target, ok := blueprints[job.Target]
	if !ok || !target.IsProductionCapable() {
		if err := s.facilitySvc.Destroy(ctx, job.FacilityID); err != nil {
			return fmt.Errorf("destroy facility %s: %w", job.FacilityID, err)
		}
	} else {
		if _, err := s.facilitySvc.Build(ctx, facilitydomain.BuildRequest{
			ID:          job.FacilityID,
			BlueprintID: job.Target,
			AccountID:   job.AccountID,
		}); err != nil {
			return fmt.Errorf("rebuild facility %s: %w", job.FacilityID, err)
		}
	}

	return s.ledger.SetContainerBlueprint(ctx, job.FacilityID, job.Target, job.AccountID)
}

// inputDeltas resolves the debits a job's fulfilment charges. Refine consumes
// the target item itself; manufacture and construct consume the target
// blueprint's build resources per unit.
func (s *Scheduler) inputDeltas(ctx context.Context, job *jobdomain.Job) ([]ledger.Delta, error) {
	if job.Action == jobdomain.ActionRefine {
		return []ledger.Delta{{
			ContainerID: job.FacilityID,
			Slice:       ledger.DefaultSlice,
			Item:        job.Target,
			Quantity:    -job.Quantity,
		}}, nil
	}

	blueprints, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := blueprints[job.Target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", facilitydomain.ErrUnknownBlueprint, job.Target)
	}
	if target.Build == nil {
		return nil, nil
	}

	deltas := make([]ledger.Delta, 0, len(target.Build.Resources))
	for item, count := range target.Build.Resources {
		deltas = append(deltas, ledger.Delta{
			ContainerID: job.FacilityID,
			Slice:       ledger.DefaultSlice,
			Item:        item,
			Quantity:    -count * job.Quantity,
		})
	}
	return deltas, nil
}

// jobBuildDuration is the wall time a fulfilled job waits before delivery:
// per-unit build time multiplied by quantity.
func jobBuildDuration(job *jobdomain.Job) time.Duration {
	return time.Duration(job.Duration*job.Quantity) * time.Second
}
