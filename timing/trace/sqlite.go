package trace

import (
	"database/sql"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/timing/core"
)

const defaultBatchSize = 10000

// SQLiteRecorder persists memory writes and retirements into a SQLite
// database. Every recorder tags its rows with a fresh run ID, so several
// runs can share one database.
type SQLiteRecorder struct {
	db          *sql.DB
	writeStmt   *sql.Stmt
	retireStmt  *sql.Stmt
	runID       string
	batchSize   int
	pendWrites  []WriteRecord
	pendRetires []RetireRecord
	err         error
}

// NewSQLiteRecorder opens (or creates) the database at path.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	r := &SQLiteRecorder{
		db:        db,
		runID:     xid.New().String(),
		batchSize: defaultBatchSize,
	}

	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := r.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteRecorder) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mem_writes (
			run_id TEXT NOT NULL,
			cycle  INTEGER NOT NULL,
			addr   INTEGER NOT NULL,
			value  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS retirements (
			run_id TEXT NOT NULL,
			cycle  INTEGER NOT NULL,
			pc     INTEGER NOT NULL,
			word   INTEGER NOT NULL,
			op     TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("failed to create trace table: %w", err)
		}
	}

	return nil
}

func (r *SQLiteRecorder) prepareStatements() error {
	var err error

	r.writeStmt, err = r.db.Prepare(
		`INSERT INTO mem_writes (run_id, cycle, addr, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare write statement: %w", err)
	}

	r.retireStmt, err = r.db.Prepare(
		`INSERT INTO retirements (run_id, cycle, pc, word, op) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare retire statement: %w", err)
	}

	return nil
}

// RunID returns the ID the rows of this recorder are tagged with.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

// Err returns the first error hit while flushing from a hook.
func (r *SQLiteRecorder) Err() error {
	return r.err
}

// Func implements sim.Hook. Records are buffered and written in batches.
func (r *SQLiteRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case core.HookPosMemWrite:
		r.pendWrites = append(r.pendWrites, writeRecord(ctx))
	case core.HookPosRetire:
		r.pendRetires = append(r.pendRetires, retireRecord(ctx))
	default:
		return
	}

	if len(r.pendWrites)+len(r.pendRetires) >= r.batchSize {
		if err := r.Flush(); err != nil && r.err == nil {
			r.err = err
		}
	}
}

// Flush writes all buffered records in one transaction.
func (r *SQLiteRecorder) Flush() error {
	if len(r.pendWrites) == 0 && len(r.pendRetires) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin trace transaction: %w", err)
	}

	for _, w := range r.pendWrites {
		_, err := tx.Stmt(r.writeStmt).Exec(r.runID, w.Cycle, w.Addr, w.Value)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert memory write: %w", err)
		}
	}

	for _, rt := range r.pendRetires {
		_, err := tx.Stmt(r.retireStmt).Exec(r.runID, rt.Cycle, rt.PC, rt.Word, rt.Op)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert retirement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trace transaction: %w", err)
	}

	r.pendWrites = nil
	r.pendRetires = nil

	return nil
}

// Writes reads back the memory writes of this run in cycle order.
func (r *SQLiteRecorder) Writes() ([]WriteRecord, error) {
	rows, err := r.db.Query(
		`SELECT cycle, addr, value FROM mem_writes WHERE run_id = ? ORDER BY cycle`,
		r.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory writes: %w", err)
	}
	defer rows.Close()

	var writes []WriteRecord
	for rows.Next() {
		var w WriteRecord
		if err := rows.Scan(&w.Cycle, &w.Addr, &w.Value); err != nil {
			return nil, fmt.Errorf("failed to scan memory write: %w", err)
		}
		writes = append(writes, w)
	}

	return writes, rows.Err()
}

// RetiredCount returns the number of retirements stored for this run.
func (r *SQLiteRecorder) RetiredCount() (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM retirements WHERE run_id = ?`, r.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count retirements: %w", err)
	}
	return n, nil
}

// Close flushes pending records and closes the database.
func (r *SQLiteRecorder) Close() error {
	flushErr := r.Flush()

	r.writeStmt.Close()
	r.retireStmt.Close()

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close trace database: %w", err)
	}

	return flushErr
}
