package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomoris/BHMM/bayspos"
)

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	temperature REAL NOT NULL,
	exported_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS classes (
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	class_id INTEGER NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, kind, class_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS class_words (
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	class_id INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	prob REAL NOT NULL,
	PRIMARY KEY(run_id, kind, class_id, rank),
	FOREIGN KEY(run_id, kind, class_id) REFERENCES classes(run_id, kind, class_id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// ExportSQLite stores summary in the SQLite database at path, replacing an earlier export of the same run.
func ExportSQLite(ctx context.Context, path string, summary *bayspos.Summary) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %v: %w", path, err)
	}
	defer db.Close()
	// the foreign_keys pragma is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("open %v: %w", path, err)
	}
	if err := initSchema(ctx, db); err != nil {
		return fmt.Errorf("init schema %v: %w", path, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, summary.RunID); err != nil {
		return fmt.Errorf("delete run %v: %w", summary.RunID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id, model, iteration, temperature, exported_at) VALUES(?, ?, ?, ?, ?)`,
		summary.RunID, summary.Model, summary.Iteration, summary.Temperature, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert run %v: %w", summary.RunID, err)
	}
	classStmt, err := tx.PrepareContext(ctx, `INSERT INTO classes(run_id, kind, class_id, count) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer classStmt.Close()
	wordStmt, err := tx.PrepareContext(ctx, `INSERT INTO class_words(run_id, kind, class_id, rank, word, prob) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer wordStmt.Close()

	for _, classes := range [][]bayspos.ClassDistribution{summary.Topics, summary.States} {
		for _, class := range classes {
			if _, err := classStmt.ExecContext(ctx, summary.RunID, class.Kind, class.ID, class.Count); err != nil {
				return fmt.Errorf("insert %v %v: %w", class.Kind, class.ID, err)
			}
			for rank, wp := range class.Words {
				if _, err := wordStmt.ExecContext(ctx, summary.RunID, class.Kind, class.ID, rank+1, wp.Word, wp.Prob); err != nil {
					return fmt.Errorf("insert %v %v word %q: %w", class.Kind, class.ID, wp.Word, err)
				}
			}
		}
	}
	return tx.Commit()
}
