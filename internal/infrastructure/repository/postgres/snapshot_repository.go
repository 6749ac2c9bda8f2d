package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

// SnapshotRepository keeps last-known-good canonical procedures. It is the
// stale-if-error fallback: when the upstream and all its path spellings fail,
// the gateway serves the stored record together with its age.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS procedure_snapshots (
	id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_procedure_snapshots_fetched_at ON procedure_snapshots(fetched_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Upsert(ctx context.Context, proc *domain.Procedure) error {
	payload, err := json.Marshal(proc)
	if err != nil {
		return fmt.Errorf("marshal procedure: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO procedure_snapshots (id, payload, fetched_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
`, proc.ID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*domain.Procedure, time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT payload, fetched_at
FROM procedure_snapshots
WHERE id = $1
`, id)

	var payload []byte
	var fetchedAt time.Time
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, domain.WrapError(domain.ErrProcedureNotFound, "get snapshot", fmt.Errorf("id=%s", id))
		}
		return nil, time.Time{}, fmt.Errorf("scan snapshot: %w", err)
	}

	var proc domain.Procedure
	if err := json.Unmarshal(payload, &proc); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &proc, fetchedAt, nil
}
