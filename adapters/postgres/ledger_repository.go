// Package postgres persists study artifacts in PostgreSQL. A single
// append-only table holds every artifact a run produces; payloads are
// stored as JSONB so new artifact kinds need no schema change.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"her2lab/domain/core"
	"her2lab/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection
func Open(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the artifact table and its indexes if they are missing
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS study_artifacts (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create study_artifacts table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON study_artifacts(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON study_artifacts(kind)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_run_kind ON study_artifacts(run_id, kind)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON study_artifacts(created_at DESC)",
	}
	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Index creation failures are not fatal
			log.Printf("[LedgerRepository] Warning: failed to create index: %v", err)
		}
	}

	return nil
}

// LedgerRepository implements the ledger ports over PostgreSQL
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new PostgreSQL artifact ledger
func NewLedgerRepository(db *sqlx.DB) ports.LedgerPort {
	return &LedgerRepository{db: db}
}

// artifactRow is the wire shape of one study_artifacts row
type artifactRow struct {
	ID        string    `db:"id"`
	RunID     string    `db:"run_id"`
	Kind      string    `db:"kind"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

func (row artifactRow) toArtifact() (core.Artifact, error) {
	var payload interface{}
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		return core.Artifact{}, fmt.Errorf("failed to unmarshal artifact payload: %w", err)
	}
	return core.Artifact{
		ID:        core.ID(row.ID),
		Kind:      core.ArtifactKind(row.Kind),
		Payload:   payload,
		CreatedAt: core.NewTimestamp(row.CreatedAt),
	}, nil
}

// StoreArtifact appends one artifact to the ledger. Replaying the same
// artifact ID is treated as success so a retried stage cannot fail on
// storage it already completed.
func (r *LedgerRepository) StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error {
	payloadJSON, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO study_artifacts (id, run_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		artifact.ID.String(),
		runID.String(),
		string(artifact.Kind),
		payloadJSON,
		artifact.CreatedAt.Time(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil
		}
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	return nil
}

// ListArtifacts returns artifacts matching the filters in creation order
func (r *LedgerRepository) ListArtifacts(ctx context.Context, filters ports.ArtifactFilters) ([]core.Artifact, error) {
	query := `SELECT id, run_id, kind, payload, created_at FROM study_artifacts`

	var conditions []string
	var args []interface{}
	if filters.RunID != nil {
		args = append(args, filters.RunID.String())
		conditions = append(conditions, fmt.Sprintf("run_id = $%d", len(args)))
	}
	if filters.Kind != nil {
		args = append(args, string(*filters.Kind))
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []artifactRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}

	artifacts := make([]core.Artifact, 0, len(rows))
	for _, row := range rows {
		artifact, err := row.toArtifact()
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// GetArtifact retrieves a single artifact by ID
func (r *LedgerRepository) GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error) {
	var row artifactRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, run_id, kind, payload, created_at
		FROM study_artifacts
		WHERE id = $1
	`, artifactID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, artifactID)
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	artifact, err := row.toArtifact()
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// GetArtifactsByRun returns every artifact a run stored, oldest first
func (r *LedgerRepository) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	return r.ListArtifacts(ctx, ports.ArtifactFilters{RunID: &runID})
}

// GetArtifactsByKind returns artifacts of one kind across all runs
func (r *LedgerRepository) GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error) {
	return r.ListArtifacts(ctx, ports.ArtifactFilters{Kind: &kind, Limit: limit})
}
