package postgres

import (
	"context"
	"fmt"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// AuditStore implements storage.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *Pool
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(pool *Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Insert appends an audit record. Returns ErrDuplicateKey if run_id exists.
func (s *AuditStore) Insert(ctx context.Context, audit *domain.RunAudit) error {
	if audit == nil || audit.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pipeline_audit (
			run_id, run_timestamp, metric_date, status,
			coins_processed, records_inserted, records_updated,
			duration_ms, report, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
	`

	// Empty report goes in as NULL; '' is not valid jsonb.
	var report *string
	if audit.ReportJSON != "" {
		report = &audit.ReportJSON
	}

	_, err := s.pool.Exec(ctx, query,
		audit.RunID,
		audit.RunTimestamp.UTC(),
		audit.MetricDate.UTC(),
		string(audit.Status),
		audit.CoinsProcessed,
		audit.RecordsInserted,
		audit.RecordsUpdated,
		audit.Duration.Milliseconds(),
		report,
		audit.ErrorMessage,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// GetByRunID retrieves an audit record. Returns ErrNotFound if not exists.
func (s *AuditStore) GetByRunID(ctx context.Context, runID string) (*domain.RunAudit, error) {
	query := `
		SELECT run_id, run_timestamp, metric_date, status,
			coins_processed, records_inserted, records_updated,
			duration_ms, report::text, error_message
		FROM pipeline_audit
		WHERE run_id = $1
	`

	var (
		audit      domain.RunAudit
		status     string
		durationMs int64
		report     *string
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&audit.RunID,
		&audit.RunTimestamp,
		&audit.MetricDate,
		&status,
		&audit.CoinsProcessed,
		&audit.RecordsInserted,
		&audit.RecordsUpdated,
		&durationMs,
		&report,
		&audit.ErrorMessage,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get audit by run id: %w", err)
	}

	audit.RunTimestamp = audit.RunTimestamp.UTC()
	audit.MetricDate = audit.MetricDate.UTC()
	audit.Status = domain.BatchStatus(status)
	if report != nil {
		audit.ReportJSON = *report
	}
	audit.Duration = time.Duration(durationMs) * time.Millisecond
	return &audit, nil
}
