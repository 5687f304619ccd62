package repository

import (
	"context"
	"encoding/json"
	"time"

	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() facilitydomain.Repository {
	return &repo{}
}

type facilityRow struct {
	ID                       string
	Blueprint                string
	Account                  string
	Resources                *string
	ResourceLeaseStartedAt   *time.Time
	ResourcesLastDeliveredAt *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, f *facilitydomain.Facility) error {
	resources, err := encodeGenerator(f.Generator)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO facilities (id, blueprint, account, resources, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET blueprint = excluded.blueprint,
		     account = excluded.account,
		     resources = excluded.resources,
		     updated_at = excluded.updated_at`,
		f.ID,
		f.BlueprintID,
		f.AccountID,
		resources,
		f.CreatedAt,
		f.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*facilitydomain.Facility, error) {
	var row facilityRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, blueprint, account, resources,
		        resource_lease_started_at, resources_last_delivered_at,
		        created_at, updated_at
		 FROM facilities WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, facilitydomain.ErrNotFound
	}
	return rowToFacility(row)
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]facilitydomain.Facility, error) {
	var rows []facilityRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, blueprint, account, resources,
		        resource_lease_started_at, resources_last_delivered_at,
		        created_at, updated_at
		 FROM facilities
		 ORDER BY created_at, id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToFacilities(rows)
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID string) ([]facilitydomain.Facility, error) {
	var rows []facilityRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, blueprint, account, resources,
		        resource_lease_started_at, resources_last_delivered_at,
		        created_at, updated_at
		 FROM facilities
		 WHERE account = ?
		 ORDER BY created_at, id`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToFacilities(rows)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM facilities WHERE id = ?`, id).Error
}

func (r *repo) InitGenerationBaseline(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE facilities
		 SET resources_last_delivered_at = ?, updated_at = ?
		 WHERE id = ?
		   AND resources IS NOT NULL
		   AND resources_last_delivered_at IS NULL`,
		now,
		now,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) AcquireGenerationLease(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE facilities
		 SET resource_lease_started_at = ?, updated_at = ?
		 WHERE id = ?
		   AND resources IS NOT NULL
		   AND resource_lease_started_at IS NULL`,
		now,
		now,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CommitGenerationDelivery(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE facilities
		 SET resource_lease_started_at = NULL,
		     resources_last_delivered_at = ?,
		     updated_at = ?
		 WHERE id = ?
		   AND resource_lease_started_at IS NOT NULL`,
		now,
		now,
		id,
	).Error
}

func (r *repo) ReleaseGenerationLease(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE facilities
		 SET resource_lease_started_at = NULL
		 WHERE id = ?
		   AND resource_lease_started_at IS NOT NULL`,
		id,
	).Error
}

func encodeGenerator(g *facilitydomain.Generator) (*string, error) {
	if g == nil {
		return nil, nil
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}

func rowToFacility(row facilityRow) (*facilitydomain.Facility, error) {
	f := &facilitydomain.Facility{
		ID:                       row.ID,
		BlueprintID:              row.Blueprint,
		AccountID:                row.Account,
		ResourceLeaseStartedAt:   row.ResourceLeaseStartedAt,
		ResourcesLastDeliveredAt: row.ResourcesLastDeliveredAt,
		CreatedAt:                row.CreatedAt,
		UpdatedAt:                row.UpdatedAt,
	}
	if row.Resources != nil && *row.Resources != "" {
		var gen facilitydomain.Generator
		if err := json.Unmarshal([]byte(*row.Resources), &gen); err != nil {
			return nil, err
		}
		f.Generator = &gen
	}
	return f, nil
}

func rowsToFacilities(rows []facilityRow) ([]facilitydomain.Facility, error) {
	out := make([]facilitydomain.Facility, 0, len(rows))
	for _, row := range rows {
		f, err := rowToFacility(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}
