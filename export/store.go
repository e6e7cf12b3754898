package export

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// schema.sql creates tables for runs and their trajectory tables
//
//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned by LoadRun for unknown run IDs
var ErrRunNotFound = errors.New("run not found")

// Store keeps pipeline runs in a SQLite database
type Store struct {
	db *sql.DB
}

// Run is a stored pipeline run
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Config    ptrack.PipelineConfig
	Rows      []ptrack.Row
}

// storedConfig is JSON form of PipelineConfig, matching algorithm is kept by name
type storedConfig struct {
	ptrack.PipelineConfig
	MatchingName string `json:"matching_name"`
}

// OpenStore opens (or creates) database file and applies schema
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", path)
	}
	_, err = db.Exec(schemaSQL)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't apply schema")
	}
	return &Store{db: db}, nil
}

// Close closes database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores config and trajectory table of a run in a single transaction
func (s *Store) SaveRun(ctx context.Context, runID uuid.UUID, cfg ptrack.PipelineConfig, rows []ptrack.Row) error {
	cfgJSON, err := json.Marshal(storedConfig{PipelineConfig: cfg, MatchingName: cfg.Matching.String()})
	if err != nil {
		return errors.Wrap(err, "can't encode config")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, config) VALUES (?, ?, ?)`,
		runID.String(), time.Now().UTC().Format(time.RFC3339Nano), string(cfgJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "can't insert run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trajectory_rows (run_id, particle, frame, x, y, mass, size, ecc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "can't prepare insert")
	}
	defer stmt.Close()
	for _, row := range rows {
		_, err = stmt.ExecContext(ctx, runID.String(), row.TrajectoryID, row.Frame, row.X, row.Y, row.Mass, row.Size, row.Ecc)
		if err != nil {
			return errors.Wrapf(err, "can't insert row of particle %d frame %d", row.TrajectoryID, row.Frame)
		}
	}
	return tx.Commit()
}

// LoadRun reads run back. Rows are sorted by (particle, frame)
func (s *Store) LoadRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var createdAt, cfgJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, config FROM runs WHERE run_id = ?`, runID.String(),
	).Scan(&createdAt, &cfgJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't query run %s", runID)
	}
	run := &Run{ID: runID}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, errors.Wrap(err, "bad created_at")
	}
	stored := storedConfig{}
	err = json.Unmarshal([]byte(cfgJSON), &stored)
	if err != nil {
		return nil, errors.Wrap(err, "can't decode config")
	}
	run.Config = stored.PipelineConfig
	run.Config.Matching, err = ptrack.ParseMatchingAlgorithm(stored.MatchingName)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT particle, frame, x, y, mass, size, ecc
		FROM trajectory_rows
		WHERE run_id = ?
		ORDER BY particle, frame
	`, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "can't query rows")
	}
	defer rows.Close()
	run.Rows = make([]ptrack.Row, 0)
	for rows.Next() {
		row := ptrack.Row{}
		err = rows.Scan(&row.TrajectoryID, &row.Frame, &row.X, &row.Y, &row.Mass, &row.Size, &row.Ecc)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan row")
		}
		run.Rows = append(run.Rows, row)
	}
	return run, rows.Err()
}

// RunSummary is a line of ListRuns
type RunSummary struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Rows         int
	Trajectories int
}

// ListRuns returns stored runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.created_at, COUNT(t.frame), COUNT(DISTINCT t.particle)
		FROM runs r
		LEFT JOIN trajectory_rows t ON t.run_id = r.run_id
		GROUP BY r.run_id, r.created_at
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "can't query runs")
	}
	defer rows.Close()
	summaries := make([]RunSummary, 0)
	for rows.Next() {
		var id, createdAt string
		summary := RunSummary{}
		err = rows.Scan(&id, &createdAt, &summary.Rows, &summary.Trajectories)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan run")
		}
		summary.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "bad run id %s", id)
		}
		summary.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.Wrap(err, "bad created_at")
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
