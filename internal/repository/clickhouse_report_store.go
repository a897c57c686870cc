package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/domain/repository"
)

// CHReportStore persists validation reports in ClickHouse. The full report
// is stored as a JSON blob next to the queryable columns; reports are
// immutable artifacts, so there is no update path.
type CHReportStore struct {
	db    *sql.DB
	table string
}

// NewCHReportStore creates a ClickHouse-backed report store.
func NewCHReportStore(db *sql.DB, table string) repository.ReportStore {
	return &CHReportStore{db: db, table: table}
}

func (s *CHReportStore) Init(ctx context.Context) error {
	q := fmt.Sprintf("SELECT count() FROM %s WHERE 0", s.table)
	var n uint64
	return s.db.QueryRowContext(ctx, q).Scan(&n)
}

func (s *CHReportStore) Save(ctx context.Context, report models.ValidationReport) error {
	if report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, ticker, strategy, timeframe, from_at, to_at, created_at, verdict, mean_oos_sharpe, overfitting_score, consistency_pct, folds, report) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err = s.db.ExecContext(ctx, q,
		report.ID,
		report.Ticker,
		report.Strategy,
		report.Timeframe,
		report.From,
		report.To,
		report.CreatedAt,
		string(report.Verdict),
		report.MeanOOSSharpe,
		report.OverfittingScore,
		report.ConsistencyPct,
		len(report.Folds),
		string(body),
	)
	return err
}

func (s *CHReportStore) Get(ctx context.Context, id string) (models.ValidationReport, error) {
	q := fmt.Sprintf("SELECT report FROM %s WHERE id = ? LIMIT 1", s.table)
	return s.scanReport(s.db.QueryRowContext(ctx, q, id))
}

func (s *CHReportStore) Latest(ctx context.Context, ticker, strategy string) (models.ValidationReport, error) {
	q := fmt.Sprintf("SELECT report FROM %s WHERE ticker = ? AND strategy = ? ORDER BY created_at DESC LIMIT 1", s.table)
	return s.scanReport(s.db.QueryRowContext(ctx, q, ticker, strategy))
}

func (s *CHReportStore) scanReport(row *sql.Row) (models.ValidationReport, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		return models.ValidationReport{}, err
	}
	var report models.ValidationReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return models.ValidationReport{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}

func (s *CHReportStore) Close() error {
	return nil // Managed by pkg
}
