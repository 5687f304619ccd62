package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, facility *Facility) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Facility, error)
	List(ctx context.Context, db *gorm.DB) ([]Facility, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID string) ([]Facility, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error

	// Binary generation lease. All three are conditional updates; the bool
	// reports whether this caller won the row.
	InitGenerationBaseline(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error)
	AcquireGenerationLease(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error)
	CommitGenerationDelivery(ctx context.Context, db *gorm.DB, id string, now time.Time) error
	ReleaseGenerationLease(ctx context.Context, db *gorm.DB, id string) error
}
