package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/value"
)

// Run is one recorded scenario execution.
type Run struct {
	ID          string   `json:"id"`
	Scenario    string   `json:"scenario"`
	Description string   `json:"description,omitempty"`
	Pass        *bool    `json:"pass"` // nil while the run is unfinished
	Errors      []string `json:"errors"`
	Entries     int      `json:"entries"`
}

// Status renders Pass as "pass", "fail" or "running".
func (r Run) Status() string {
	switch {
	case r.Pass == nil:
		return "running"
	case *r.Pass:
		return "pass"
	default:
		return "fail"
	}
}

// Entry is one journaled event.
type Entry struct {
	ID     string `json:"id"`
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Line   string `json:"line"`
	Digest string `json:"digest,omitempty"`
}

// EntryFromEvent converts an environment event into a journal entry.
func EntryFromEvent(runID string, ev env.Event) Entry {
	return Entry{
		ID:     value.EventID(runID, ev.Seq),
		RunID:  runID,
		Seq:    ev.Seq,
		Kind:   string(ev.Kind),
		Name:   ev.Name,
		Line:   ev.Line(),
		Digest: ev.Digest,
	}
}

// BeginRun inserts a run row. Re-beginning an existing id is a no-op.
func (j *Journal) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("begin run: id is required")
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, description)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Scenario, run.Description)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Append inserts an entry. Duplicate ids are silently ignored so replays
// with a fixed run id are idempotent.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO entries (id, run_id, seq, kind, name, line, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, e.ID, e.RunID, e.Seq, e.Kind, e.Name, e.Line, e.Digest)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (j *Journal) FinishRun(ctx context.Context, runID string, pass bool, errs []string) error {
	list := make([]any, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	errorsJSON, err := value.MarshalCanonical(list)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET pass = ?, errors = ? WHERE id = ?
	`, pass, string(errorsJSON), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `
	r.id, r.scenario, r.description, r.pass, r.errors,
	(SELECT COUNT(*) FROM entries e WHERE e.run_id = r.id)
`

// Runs returns every run in insertion order.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.rowid ASC`)
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

// GetRun returns one run, or ErrRunNotFound.
func (j *Journal) GetRun(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// Entries returns the entries of a run ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) for a run with no entries.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, seq, kind, name, line, digest
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Kind, &e.Name, &e.Line, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// EntriesByDigest returns entries from any run whose value had digest d.
func (j *Journal) EntriesByDigest(ctx context.Context, d string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, seq, kind, name, line, digest
		FROM entries
		WHERE digest = ?
		ORDER BY run_id COLLATE BINARY ASC, seq ASC
	`, d)
	if err != nil {
		return nil, fmt.Errorf("query entries by digest: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Kind, &e.Name, &e.Line, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		pass       sql.NullBool
		errorsJSON string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.Description, &pass, &errorsJSON, &run.Entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if pass.Valid {
		p := pass.Bool
		run.Pass = &p
	}
	if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
		return Run{}, fmt.Errorf("unmarshal run errors: %w", err)
	}
	return run, nil
}
