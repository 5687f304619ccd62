package scheduler

import (
	"context"
	"fmt"

	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	"github.com/orbitalworks/foundry/internal/ledger"
	obsmetrics "github.com/orbitalworks/foundry/internal/observability/metrics"
	"go.uber.org/zap"
)

// checkGeneration delivers one generation batch when the facility's generator
// period has elapsed. The first observation of a generating facility only
// records a baseline timestamp; credit starts one full period later. The
// resource_lease_started_at column is the binary lease guarding the credit.
func (s *Scheduler) checkGeneration(ctx context.Context, runID string, facility *facilitydomain.Facility) error {
	if facility.Generator == nil {
		return nil
	}

	now := s.clock.Now()
	log := s.log.With(
		zap.String("run_id", runID),
		zap.String("facility_id", facility.ID),
		zap.String("item_type", facility.Generator.ItemType),
	)

	if facility.ResourcesLastDeliveredAt == nil {
		if _, err := s.facilityRepo.InitGenerationBaseline(ctx, s.db, facility.ID, now); err != nil {
			return fmt.Errorf("init generation baseline %s: %w", facility.ID, err)
		}
		return nil
	}

	if now.Sub(*facility.ResourcesLastDeliveredAt) < facility.Generator.PeriodDuration() {
		return nil
	}

	won, err := s.facilityRepo.AcquireGenerationLease(ctx, s.db, facility.ID, now)
	if err != nil {
		return fmt.Errorf("acquire generation lease %s: %w", facility.ID, err)
	}
	if !won {
		obsmetrics.Scheduler().IncLeaseContention()
		return nil
	}

	err = s.ledger.ApplyDelta(ctx, facility.AccountID, []ledger.Delta{{
		ContainerID: facility.ID,
		Slice:       ledger.DefaultSlice,
		Item:        facility.Generator.ItemType,
		Quantity:    facility.Generator.Quantity,
	}})
	if err != nil {
		log.Info("generation.delivery_failed", zap.Error(err))
		obsmetrics.Scheduler().IncGenerationResult("delivery_failed")
		s.hub.Publish(events.Event{
			AccountID: facility.AccountID,
			Kind:      events.KindResources,
			State: map[string]any{
				"facility": facility.ID,
				"type":     facility.Generator.ItemType,
				"quantity": facility.Generator.Quantity,
				"status":   "delivery_failed",
			},
		})
		return s.facilityRepo.ReleaseGenerationLease(ctx, s.db, facility.ID)
	}

	if err := s.facilityRepo.CommitGenerationDelivery(ctx, s.db, facility.ID, now); err != nil {
		return fmt.Errorf("commit generation delivery %s: %w", facility.ID, err)
	}

	obsmetrics.Scheduler().IncGenerationResult("delivered")
	log.Info("generation.delivered", zap.Int64("quantity", facility.Generator.Quantity))
	s.hub.Publish(events.Event{
		AccountID: facility.AccountID,
		Kind:      events.KindResources,
		State: map[string]any{
			"facility":     facility.ID,
			"type":         facility.Generator.ItemType,
			"quantity":     facility.Generator.Quantity,
			"delivered_at": now.Unix(),
		},
	})
	return nil
}
