package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed ExecutionStore, grounded on the
// teacher's MySQLStore (graph/store/mysql.go). Intended for deployments
// running multiple engine processes against one shared audit trail; each
// engine still owns its own in-memory EngineState, per §5's
// shared-resources rule that only the tracker sink and the stores are
// meant to tolerate concurrent callers.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL connection pool and migrates the schema. dsn
// follows the go-sql-driver/mysql DSN format, e.g.
// "user:pass@tcp(localhost:3306)/workflows?parseTime=true".
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id VARCHAR(36) PRIMARY KEY,
			workflow_id VARCHAR(255) NOT NULL,
			definition_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			initial_data JSON NOT NULL,
			current_state JSON NOT NULL,
			error TEXT NOT NULL,
			inserted_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			INDEX idx_executions_workflow (workflow_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS node_executions (
			id VARCHAR(36) PRIMARY KEY,
			execution_id VARCHAR(36) NOT NULL,
			workflow_id VARCHAR(255) NOT NULL,
			token_id VARCHAR(36) NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			node_type VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			input_data JSON NOT NULL,
			output_data JSON NOT NULL,
			error_message TEXT NOT NULL,
			started_at DATETIME(3) NOT NULL,
			completed_at DATETIME(3) NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			INDEX idx_node_executions_execution (execution_id)
		) ENGINE=InnoDB`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) SaveExecution(ctx context.Context, exec Execution) error {
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
		ON DUPLICATE KEY UPDATE
			status=VALUES(status), current_state=VALUES(current_state),
			error=VALUES(error), updated_at=VALUES(updated_at)
	`, exec.ID, exec.WorkflowID, exec.DefinitionID, string(exec.Status), initialData, currentState, exec.Error, exec.InsertedAt, exec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save execution: %w", err)
	}
	return nil
}

func (s *MySQLStore) LoadExecution(ctx context.Context, id string) (Execution, error) {
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

func (s *MySQLStore) ListExecutions(ctx context.Context, workflowID string) ([]Execution, error) {
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

func (s *MySQLStore) SaveNodeExecution(ctx context.Context, ne NodeExecution) error {
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
		ON DUPLICATE KEY UPDATE
			status=VALUES(status), output_data=VALUES(output_data),
			error_message=VALUES(error_message), completed_at=VALUES(completed_at),
			duration_ms=VALUES(duration_ms)
	`, ne.ID, ne.ExecutionID, ne.WorkflowID, ne.TokenID, ne.NodeID, ne.NodeType, string(ne.Status), inputData, outputData, ne.ErrorMessage, ne.StartedAt, completedAt, ne.DurationMs)
	if err != nil {
		return fmt.Errorf("store: save node execution: %w", err)
	}
	return nil
}

func (s *MySQLStore) ListNodeExecutions(ctx context.Context, executionID string) ([]NodeExecution, error) {
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
