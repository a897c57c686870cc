package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/domain/repository"
)

// CHDecisionJournal implements DecisionJournal for ClickHouse. Every tick
// outcome lands here, approved or not, so the journal is the audit trail
// the HTTP query surface reads from.
type CHDecisionJournal struct {
	db    *sql.DB
	table string
}

// NewCHDecisionJournal creates a ClickHouse-backed decision journal.
func NewCHDecisionJournal(db *sql.DB, table string) repository.DecisionJournal {
	return &CHDecisionJournal{db: db, table: table}
}

func (s *CHDecisionJournal) Init(ctx context.Context) error {
	// Schema is created by the provider; Init only proves the table is reachable.
	q := fmt.Sprintf("SELECT count() FROM %s WHERE 0", s.table)
	var n uint64
	return s.db.QueryRowContext(ctx, q).Scan(&n)
}

func (s *CHDecisionJournal) Append(ctx context.Context, rec models.DecisionRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (id, ticker, tick_at, action, consensus_score, weighted_confidence, unanimous, votes_for, votes_against, votes_abstain, approved, reject_reason, detail, notional, no_op, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		rec.Ticker,
		rec.TickAt,
		string(rec.Action),
		rec.ConsensusScore,
		rec.WeightedConfidence,
		rec.Unanimous,
		rec.VotesFor,
		rec.VotesAgainst,
		rec.VotesAbstain,
		rec.Approved,
		string(rec.RejectReason),
		rec.Detail,
		rec.Notional,
		rec.NoOp,
		rec.CreatedAt,
	)
	return err
}

func (s *CHDecisionJournal) AppendBatch(ctx context.Context, recs []models.DecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*16)
		for _, rec := range recs[start:end] {
			if rec.ID == "" || rec.Ticker == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				rec.ID,
				rec.Ticker,
				rec.TickAt,
				string(rec.Action),
				rec.ConsensusScore,
				rec.WeightedConfidence,
				rec.Unanimous,
				rec.VotesFor,
				rec.VotesAgainst,
				rec.VotesAbstain,
				rec.Approved,
				string(rec.RejectReason),
				rec.Detail,
				rec.Notional,
				rec.NoOp,
				rec.CreatedAt,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, ticker, tick_at, action, consensus_score, weighted_confidence, unanimous, votes_for, votes_against, votes_abstain, approved, reject_reason, detail, notional, no_op, created_at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *CHDecisionJournal) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]models.DecisionRecord, error) {
	q := fmt.Sprintf("SELECT id, ticker, tick_at, action, consensus_score, weighted_confidence, unanimous, votes_for, votes_against, votes_abstain, approved, reject_reason, detail, notional, no_op, created_at FROM %s WHERE ticker = ? AND tick_at >= ? AND tick_at <= ? ORDER BY tick_at DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		var action, rejectReason string
		if err := rows.Scan(
			&rec.ID,
			&rec.Ticker,
			&rec.TickAt,
			&action,
			&rec.ConsensusScore,
			&rec.WeightedConfidence,
			&rec.Unanimous,
			&rec.VotesFor,
			&rec.VotesAgainst,
			&rec.VotesAbstain,
			&rec.Approved,
			&rejectReason,
			&rec.Detail,
			&rec.Notional,
			&rec.NoOp,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Action = models.Action(action)
		rec.RejectReason = models.RejectReason(rejectReason)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *CHDecisionJournal) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHDecisionJournal) Close() error {
	return nil // Managed by pkg
}
