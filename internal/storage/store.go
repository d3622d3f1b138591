package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const (
	OutcomeOpportunity   = "opportunity"
	OutcomeNoOpportunity = "no_opportunity"
	OutcomeError         = "error"
	OutcomeExecuted      = "executed"
)

// AttemptRecord is one evaluated pool pair at one block
type AttemptRecord struct {
	BlockNumber  uint64
	PoolA        common.Address
	PoolB        common.Address
	Outcome      string
	AToB         bool
	AmountIn     uint64
	Intermediate uint64
	Profit       int64
	Iterations   uint32
	ExitReason   string
	Error        string
	RecordedAt   time.Time
}

type Stats struct {
	Attempts      int64
	Opportunities int64
	Errors        int64
	TotalProfit   int64
}

// HitRate is the share of attempts that found a profitable amount
func (s Stats) HitRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Opportunities) / float64(s.Attempts)
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open attempts db: %w", err)
	}
	// a single connection keeps :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const insertAttempt = `INSERT OR REPLACE INTO attempts
	(block_number, pool_a, pool_b, outcome, a_to_b, amount_in, intermediate, profit, iterations, exit_reason, error, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func attemptArgs(r AttemptRecord) []interface{} {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	return []interface{}{
		r.BlockNumber,
		r.PoolA.Hex(),
		r.PoolB.Hex(),
		r.Outcome,
		r.AToB,
		strconv.FormatUint(r.AmountIn, 10),
		strconv.FormatUint(r.Intermediate, 10),
		r.Profit,
		r.Iterations,
		r.ExitReason,
		r.Error,
		r.RecordedAt.Unix(),
	}
}

// RecordAttempt stores r, replacing an earlier record for the same block and pools
func (s *Store) RecordAttempt(r AttemptRecord) error {
	if _, err := s.db.Exec(insertAttempt, attemptArgs(r)...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) RecordAttempts(records []AttemptRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertAttempt)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(attemptArgs(r)...); err != nil {
			return fmt.Errorf("insert attempt at block %d: %w", r.BlockNumber, err)
		}
	}
	return tx.Commit()
}

// RecentAttempts returns the latest attempts, newest block first
func (s *Store) RecentAttempts(limit int) ([]AttemptRecord, error) {
	rows, err := s.db.Query(`SELECT block_number, pool_a, pool_b, outcome, a_to_b, amount_in, intermediate,
		profit, iterations, exit_reason, error, recorded_at
		FROM attempts ORDER BY block_number DESC, pool_a, pool_b LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			r                      AttemptRecord
			poolA, poolB           string
			amountIn, intermediate string
			recordedAt             int64
		)
		if err := rows.Scan(&r.BlockNumber, &poolA, &poolB, &r.Outcome, &r.AToB, &amountIn, &intermediate,
			&r.Profit, &r.Iterations, &r.ExitReason, &r.Error, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		r.PoolA = common.HexToAddress(poolA)
		r.PoolB = common.HexToAddress(poolB)
		if r.AmountIn, err = strconv.ParseUint(amountIn, 10, 64); err != nil {
			return nil, fmt.Errorf("amount_in: %w", err)
		}
		if r.Intermediate, err = strconv.ParseUint(intermediate, 10, 64); err != nil {
			return nil, fmt.Errorf("intermediate: %w", err)
		}
		r.RecordedAt = time.Unix(recordedAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetStats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN outcome IN (?, ?) THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome IN (?, ?) THEN profit ELSE 0 END), 0)
		FROM attempts`,
		OutcomeOpportunity, OutcomeExecuted, OutcomeError, OutcomeOpportunity, OutcomeExecuted,
	).Scan(&st.Attempts, &st.Opportunities, &st.Errors, &st.TotalProfit)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}
