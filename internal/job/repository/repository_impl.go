package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() jobdomain.Repository {
	return &repo{}
}

// jobDoc is the persisted payload column. Lease and status bookkeeping live
// in dedicated columns so they can drive conditional updates; everything
// else rides along as a document.
type jobDoc struct {
	Action   jobdomain.Action `json:"action"`
	Target   string           `json:"target"`
	Quantity int64            `json:"quantity"`
	Duration int64            `json:"duration"`
	Outputs  map[string]int64 `json:"outputs,omitempty"`
	FinishAt *int64           `json:"finish_at,omitempty"` // unix seconds
}

type jobRow struct {
	ID                  int64
	FacilityID          string
	Account             string
	Doc                 string
	Status              jobdomain.Status
	NextStatus          *jobdomain.Status
	NextStatusStartedAt *time.Time
	StatusCompletedAt   *time.Time
	CreatedAt           time.Time
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *jobdomain.Job) error {
	doc, err := encodeDoc(job)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (id, facility_id, account, doc, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		int64(job.ID),
		job.FacilityID,
		job.AccountID,
		doc,
		job.Status,
		job.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.Job, error) {
	var row jobRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, facility_id, account, doc, status, next_status,
		        next_status_started_at, status_completed_at, created_at
		 FROM jobs WHERE id = ?`,
		int64(id),
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, jobdomain.ErrNotFound
	}
	return rowToJob(row)
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID string) ([]jobdomain.Job, error) {
	var rows []jobRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, facility_id, account, doc, status, next_status,
		        next_status_started_at, status_completed_at, created_at
		 FROM jobs
		 WHERE account = ?
		 ORDER BY created_at, id`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToJobs(rows)
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]jobdomain.Job, error) {
	var rows []jobRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, facility_id, account, doc, status, next_status,
		        next_status_started_at, status_completed_at, created_at
		 FROM jobs
		 ORDER BY created_at, id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToJobs(rows)
}

func (r *repo) NextPending(ctx context.Context, db *gorm.DB, facilityID string) (*jobdomain.Job, error) {
	var row jobRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, facility_id, account, doc, status, next_status,
		        next_status_started_at, status_completed_at, created_at
		 FROM jobs
		 WHERE facility_id = ? AND status != ?
		 ORDER BY created_at, id
		 LIMIT 1`,
		facilityID,
		jobdomain.StatusDelivered,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return rowToJob(row)
}

func (r *repo) Lease(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to jobdomain.Status, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE jobs
		 SET next_status = ?, next_status_started_at = ?
		 WHERE id = ?
		   AND status = ?
		   AND next_status IS NULL`,
		to,
		now,
		int64(id),
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Commit(ctx context.Context, db *gorm.DB, job *jobdomain.Job, to jobdomain.Status, now time.Time) (bool, error) {
	doc, err := encodeDoc(job)
	if err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE jobs
		 SET status = ?,
		     doc = ?,
		     next_status = NULL,
		     next_status_started_at = NULL,
		     status_completed_at = ?
		 WHERE id = ?
		   AND next_status = ?`,
		to,
		doc,
		now,
		int64(job.ID),
		to,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, id snowflake.ID, to jobdomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE jobs
		 SET next_status = NULL, next_status_started_at = NULL
		 WHERE id = ?
		   AND next_status = ?`,
		int64(id),
		to,
	).Error
}

func encodeDoc(job *jobdomain.Job) (string, error) {
	doc := jobDoc{
		Action:   job.Action,
		Target:   job.Target,
		Quantity: job.Quantity,
		Duration: job.Duration,
		Outputs:  job.Outputs,
	}
	if job.FinishAt != nil {
		ts := job.FinishAt.Unix()
		doc.FinishAt = &ts
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func rowToJob(row jobRow) (*jobdomain.Job, error) {
	var doc jobDoc
	if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
		return nil, err
	}
	job := &jobdomain.Job{
		ID:                  snowflake.ID(row.ID),
		FacilityID:          row.FacilityID,
		AccountID:           row.Account,
		Action:              doc.Action,
		Target:              doc.Target,
		Quantity:            doc.Quantity,
		Duration:            doc.Duration,
		Outputs:             doc.Outputs,
		Status:              row.Status,
		NextStatus:          row.NextStatus,
		NextStatusStartedAt: row.NextStatusStartedAt,
		StatusCompletedAt:   row.StatusCompletedAt,
		CreatedAt:           row.CreatedAt,
	}
	if doc.FinishAt != nil {
		ts := time.Unix(*doc.FinishAt, 0).UTC()
		job.FinishAt = &ts
	}
	return job, nil
}

func rowsToJobs(rows []jobRow) ([]jobdomain.Job, error) {
	out := make([]jobdomain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := rowToJob(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, nil
}
