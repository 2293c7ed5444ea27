package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed DefinitionStore + ExecutionStore, grounded
// on the teacher's SQLiteStore (graph/store/sqlite.go): WAL mode, a single
// writer connection, and schema creation when the store is opened.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// migrates its schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS definitions (
			id TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			document BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			definition_id TEXT NOT NULL,
			status TEXT NOT NULL,
			initial_data TEXT NOT NULL,
			current_state TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			inserted_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_workflow ON executions(workflow_id)`,
		`CREATE TABLE IF NOT EXISTS node_executions (
			id TEXT PRIMARY KEY,
			execution_id TEXT NOT NULL,
			workflow_id TEXT NOT NULL,
			token_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			node_type TEXT NOT NULL,
			status TEXT NOT NULL,
			input_data TEXT NOT NULL,
			output_data TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_executions_execution ON node_executions(execution_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) SaveDefinition(ctx context.Context, id, format string, document []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO definitions (id, format, document, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET format=excluded.format, document=excluded.document, updated_at=excluded.updated_at
	`, id, format, document, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save definition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadDefinition(ctx context.Context, id string) (string, []byte, error) {
	var format string
	var document []byte
	err := s.db.QueryRowContext(ctx, `SELECT format, document FROM definitions WHERE id = ?`, id).Scan(&format, &document)
	if err == sql.ErrNoRows {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("store: load definition: %w", err)
	}
	return format, document, nil
}

func (s *SQLiteStore) ListDefinitionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM definitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list definitions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) SaveExecution(ctx context.Context, exec Execution) error {
	initialData, err := json.Marshal(exec.InitialData)
	if err != nil {
		return fmt.Errorf("store: marshal initial data: %w", err)
	}
	currentState, err := json.Marshal(exec.CurrentState)
	if err != nil {
		return fmt.Errorf("store: marshal current state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, definition_id, status, initial_data, current_state, error, inserted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, current_state=excluded.current_state,
			error=excluded.error, updated_at=excluded.updated_at
	`, exec.ID, exec.WorkflowID, exec.DefinitionID, string(exec.Status), initialData, currentState, exec.Error, exec.InsertedAt, exec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save execution: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadExecution(ctx context.Context, id string) (Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, definition_id, status, initial_data, current_state, error, inserted_at, updated_at
		FROM executions WHERE id = ?
	`, id)
	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return Execution{}, ErrNotFound
	}
	if err != nil {
		return Execution{}, fmt.Errorf("store: load execution: %w", err)
	}
	return exec, nil
}

func (s *SQLiteStore) ListExecutions(ctx context.Context, workflowID string) ([]Execution, error) {
	var rows *sql.Rows
	var err error
	if workflowID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, workflow_id, definition_id, status, initial_data, current_state, error, inserted_at, updated_at
			FROM executions ORDER BY inserted_at
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, workflow_id, definition_id, status, initial_data, current_state, error, inserted_at, updated_at
			FROM executions WHERE workflow_id = ? ORDER BY inserted_at
		`, workflowID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExecution(row rowScanner) (Execution, error) {
	var exec Execution
	var status string
	var initialData, currentState []byte
	if err := row.Scan(&exec.ID, &exec.WorkflowID, &exec.DefinitionID, &status, &initialData, &currentState, &exec.Error, &exec.InsertedAt, &exec.UpdatedAt); err != nil {
		return Execution{}, err
	}
	exec.Status = ExecutionStatus(status)
	if len(initialData) > 0 {
		if err := json.Unmarshal(initialData, &exec.InitialData); err != nil {
			return Execution{}, fmt.Errorf("store: unmarshal initial data: %w", err)
		}
	}
	if len(currentState) > 0 {
		if err := json.Unmarshal(currentState, &exec.CurrentState); err != nil {
			return Execution{}, fmt.Errorf("store: unmarshal current state: %w", err)
		}
	}
	return exec, nil
}

func (s *SQLiteStore) SaveNodeExecution(ctx context.Context, ne NodeExecution) error {
	inputData, err := json.Marshal(ne.InputData)
	if err != nil {
		return fmt.Errorf("store: marshal input data: %w", err)
	}
	outputData, err := json.Marshal(ne.OutputData)
	if err != nil {
		return fmt.Errorf("store: marshal output data: %w", err)
	}

	var completedAt interface{}
	if !ne.CompletedAt.IsZero() {
		completedAt = ne.CompletedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_executions (id, execution_id, workflow_id, token_id, node_id, node_type, status, input_data, output_data, error_message, started_at, completed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, output_data=excluded.output_data,
			error_message=excluded.error_message, completed_at=excluded.completed_at,
			duration_ms=excluded.duration_ms
	`, ne.ID, ne.ExecutionID, ne.WorkflowID, ne.TokenID, ne.NodeID, ne.NodeType, string(ne.Status), inputData, outputData, ne.ErrorMessage, ne.StartedAt, completedAt, ne.DurationMs)
	if err != nil {
		return fmt.Errorf("store: save node execution: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListNodeExecutions(ctx context.Context, executionID string) ([]NodeExecution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, workflow_id, token_id, node_id, node_type, status, input_data, output_data, error_message, started_at, completed_at, duration_ms
		FROM node_executions WHERE execution_id = ? ORDER BY started_at
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("store: list node executions: %w", err)
	}
	defer rows.Close()

	var out []NodeExecution
	for rows.Next() {
		var ne NodeExecution
		var status string
		var inputData, outputData []byte
		var completedAt sql.NullTime
		if err := rows.Scan(&ne.ID, &ne.ExecutionID, &ne.WorkflowID, &ne.TokenID, &ne.NodeID, &ne.NodeType, &status, &inputData, &outputData, &ne.ErrorMessage, &ne.StartedAt, &completedAt, &ne.DurationMs); err != nil {
			return nil, err
		}
		ne.Status = NodeExecutionStatus(status)
		if completedAt.Valid {
			ne.CompletedAt = completedAt.Time
		}
		if len(inputData) > 0 {
			if err := json.Unmarshal(inputData, &ne.InputData); err != nil {
				return nil, fmt.Errorf("store: unmarshal input data: %w", err)
			}
		}
		if len(outputData) > 0 {
			if err := json.Unmarshal(outputData, &ne.OutputData); err != nil {
				return nil, fmt.Errorf("store: unmarshal output data: %w", err)
			}
		}
		out = append(out, ne)
	}
	return out, rows.Err()
}
