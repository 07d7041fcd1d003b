package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coralforge/engine/internal/diag"
)

// ReportRow mirrors one run_reports record.
type ReportRow struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	ErrorCount     int
	PendingCompute int
	Timings        []diag.Timing
	Ambiguities    []diag.AmbiguityInfo
}

// ReportRepo stores per-run diagnostics reports.
type ReportRepo struct {
	db *DB
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Save inserts one run's report. errorCount is carried separately since
// the run result, not the report, owns the failures.
func (r *ReportRepo) Save(ctx context.Context, rep *diag.Report, errorCount int) error {
	timings, err := json.Marshal(rep.Timings)
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}
	ambiguities, err := json.Marshal(rep.Ambiguities)
	if err != nil {
		return fmt.Errorf("marshal ambiguities: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO run_reports (run_id, started_at, error_count, pending_compute, timings, ambiguities)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rep.RunID, rep.StartedAt, errorCount, rep.PendingCompute, timings, ambiguities,
	)
	return err
}

// Load fetches one report by run id, or nil when absent.
func (r *ReportRepo) Load(ctx context.Context, runID uuid.UUID) (*ReportRow, error) {
	row := &ReportRow{}
	var timings, ambiguities []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT run_id, started_at, error_count, pending_compute, timings, ambiguities
		 FROM run_reports WHERE run_id = $1`, runID,
	).Scan(&row.RunID, &row.StartedAt, &row.ErrorCount, &row.PendingCompute, &timings, &ambiguities)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(timings, &row.Timings); err != nil {
		return nil, fmt.Errorf("unmarshal timings: %w", err)
	}
	if err := json.Unmarshal(ambiguities, &row.Ambiguities); err != nil {
		return nil, fmt.Errorf("unmarshal ambiguities: %w", err)
	}
	return row, nil
}
