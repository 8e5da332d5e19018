package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/laborsync/internal/planner"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// timeLayout has fixed-width fractional seconds so text ordering matches time
// ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one sync invocation as recorded in the ledger.
type Run struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Outcome    string           `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	ErrorCode  string           `json:"error_code,omitempty"`
	Windows    []planner.Window `json:"windows"`
	Records    int              `json:"records"`
	Skipped    int              `json:"skipped"`
	Rejected   int              `json:"rejected"`
	Rows       int              `json:"rows"`
	TableHash  string           `json:"table_hash,omitempty"`

	// FreshHash is the hash of the table reshaped from this run's payloads
	// alone, before merging. Replay re-derives it.
	FreshHash string `json:"fresh_hash,omitempty"`
}

// Payload is a raw upstream response archived for a run.
type Payload struct {
	RunID  string
	Seq    int
	Window planner.Window
	Series []string
	Body   []byte
}

// Record writes a run and its payloads in a single transaction.
func (s *Store) Record(ctx context.Context, run Run, payloads []Payload) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := insertPayloads(ctx, tx, run.ID, payloads); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}
	return nil
}

// FindRuns returns the runs matching f, newest first.
func (s *Store) FindRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query, args, err := f.compile()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+"\n\t\tFROM runs WHERE id = ?", id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadPayloads returns the archived payloads of a run ordered by seq.
// Returns an empty slice (not nil) when the run archived nothing.
func (s *Store) ReadPayloads(ctx context.Context, runID string) ([]Payload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, window_start, window_end, series, body
		FROM payloads
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query payloads: %w", err)
	}
	defer rows.Close()

	payloads := []Payload{}
	for rows.Next() {
		var (
			p      Payload
			series string
		)
		if err := rows.Scan(&p.RunID, &p.Seq, &p.Window.Start, &p.Window.End, &series, &p.Body); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		if series != "" {
			p.Series = strings.Split(series, ",")
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payloads: %w", err)
	}
	return payloads, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertRun(ctx context.Context, db execer, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty id")
	}
	windows := run.Windows
	if windows == nil {
		windows = []planner.Window{}
	}
	windowsJSON, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("write run: marshal windows: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, outcome, reason, error_code, windows,
		 records, skipped, rejected, rows, table_hash, fresh_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Outcome,
		run.Reason,
		run.ErrorCode,
		string(windowsJSON),
		run.Records,
		run.Skipped,
		run.Rejected,
		run.Rows,
		run.TableHash,
		run.FreshHash,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

func insertPayloads(ctx context.Context, db execer, runID string, payloads []Payload) error {
	for _, p := range payloads {
		body := p.Body
		if body == nil {
			body = []byte{}
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO payloads
			(run_id, seq, window_start, window_end, series, body)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			runID,
			p.Seq,
			p.Window.Start,
			p.Window.End,
			strings.Join(p.Series, ","),
			body,
		)
		if err != nil {
			return fmt.Errorf("write payload %d: %w", p.Seq, err)
		}
	}
	return nil
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		windowsJSON       string
	)
	err := row.Scan(
		&run.ID,
		&started,
		&finished,
		&run.Outcome,
		&run.Reason,
		&run.ErrorCode,
		&windowsJSON,
		&run.Records,
		&run.Skipped,
		&run.Rejected,
		&run.Rows,
		&run.TableHash,
		&run.FreshHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("scan run %s: finished_at: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(windowsJSON), &run.Windows); err != nil {
		return Run{}, fmt.Errorf("scan run %s: windows: %w", run.ID, err)
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
