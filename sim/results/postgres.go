package results

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/qcloud-sim/qcloud-sim/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS qcloud_runs (
	run_id      TEXT PRIMARY KEY,
	policy      TEXT NOT NULL,
	task_count  INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS qcloud_records (
	run_id          TEXT NOT NULL REFERENCES qcloud_runs(run_id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	task_id         INTEGER NOT NULL,
	backend         TEXT NOT NULL,
	status          TEXT NOT NULL,
	message         TEXT NOT NULL,
	arrival_time    DOUBLE PRECISION NOT NULL,
	start_time      DOUBLE PRECISION NOT NULL,
	finish_time     DOUBLE PRECISION NOT NULL,
	waiting_time    DOUBLE PRECISION NOT NULL,
	turnaround_time DOUBLE PRECISION NOT NULL,
	fidelity        DOUBLE PRECISION,
	exec_time_est   DOUBLE PRECISION,
	swap_count      INTEGER,
	PRIMARY KEY (run_id, seq)
);`

var recordColumns = []string{
	"run_id", "seq", "task_id", "backend", "status", "message",
	"arrival_time", "start_time", "finish_time", "waiting_time", "turnaround_time",
	"fidelity", "exec_time_est", "swap_count",
}

// PostgresSink persists runs and their records.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and checks the connection.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing results DSN: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to results database: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// WriteRun stores one run and its records in completion order, in one
// transaction. Writing an existing runID replaces it.
func (s *PostgresSink) WriteRun(ctx context.Context, runID, policy string, records []sim.ExecutionRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM qcloud_runs WHERE run_id = $1`, runID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO qcloud_runs (run_id, policy, task_count) VALUES ($1, $2, $3)`,
		runID, policy, len(records)); err != nil {
		return err
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			runID, i, r.TaskID, r.Backend, string(r.Status), r.Message,
			r.ArrivalTime, r.StartTime, r.FinishTime, r.WaitingTime, r.TurnaroundTime,
			r.Fidelity, r.ExecTimeEst, r.SwapCount,
		}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"qcloud_records"}, recordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logrus.Infof("stored %d records for run %s", n, runID)
	return nil
}

// ReadRun loads the records of runID in completion order.
func (s *PostgresSink) ReadRun(ctx context.Context, runID string) ([]sim.ExecutionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT task_id, backend, status, message, arrival_time, start_time, finish_time,
		       waiting_time, turnaround_time, fidelity, exec_time_est, swap_count
		FROM qcloud_records WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.ExecutionRecord
	for rows.Next() {
		var r sim.ExecutionRecord
		var status string
		if err := rows.Scan(
			&r.TaskID, &r.Backend, &status, &r.Message, &r.ArrivalTime, &r.StartTime, &r.FinishTime,
			&r.WaitingTime, &r.TurnaroundTime, &r.Fidelity, &r.ExecTimeEst, &r.SwapCount,
		); err != nil {
			return nil, err
		}
		r.Status = sim.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
