package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID string) ([]Job, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Job, error)

	// NextPending returns the oldest non-delivered job for the facility,
	// leased or not. A facility runs its queue strictly FIFO: if the head is
	// leased or not yet due, the tick does nothing for that facility.
	NextPending(ctx context.Context, db *gorm.DB, facilityID string) (*Job, error)

	// Lease conditionally claims the transition from -> to. False means
	// another attempt already holds the lease (or the status moved on);
	// the caller must skip without side effects.
	Lease(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)

	// Commit advances status to the leased target, persists mutated job
	// fields from doc (e.g. finishAt) and clears the lease.
	Commit(ctx context.Context, db *gorm.DB, job *Job, to Status, now time.Time) (bool, error)

	// Release clears the lease without advancing status so the same
	// transition is retried on a later tick.
	Release(ctx context.Context, db *gorm.DB, id snowflake.ID, to Status) error
}
