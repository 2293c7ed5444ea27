// Package store provides persistence for workflow definitions, executions,
// and per-node execution history, grounded on the teacher's graph/store
// package. Unlike the teacher's generic checkpoint/replay store, this one
// backs the two record types named in the specification's external
// interfaces: Execution and NodeExecution.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested definition or execution id does
// not exist.
var ErrNotFound = errors.New("store: not found")

// ExecutionStatus is the fixed status vocabulary for an Execution record.
type ExecutionStatus string

const (
	ExecutionInitialized ExecutionStatus = "initialized"
	ExecutionRunning     ExecutionStatus = "running"
	ExecutionWaiting     ExecutionStatus = "waiting"
	ExecutionCompleted   ExecutionStatus = "completed"
	ExecutionFailed      ExecutionStatus = "failed"
)

// NodeExecutionStatus is the fixed status vocabulary for a NodeExecution
// record.
type NodeExecutionStatus string

const (
	NodeExecutionPending   NodeExecutionStatus = "pending"
	NodeExecutionExecuting NodeExecutionStatus = "executing"
	NodeExecutionCompleted NodeExecutionStatus = "completed"
	NodeExecutionFailed    NodeExecutionStatus = "failed"
	NodeExecutionWaiting   NodeExecutionStatus = "waiting"
	NodeExecutionSkipped   NodeExecutionStatus = "skipped"
)

// Execution is the persisted record of one workflow instance, per §6.
type Execution struct {
	ID           string
	WorkflowID   string
	DefinitionID string
	Status       ExecutionStatus
	InitialData  map[string]interface{}
	CurrentState map[string]interface{}
	Error        string
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// NodeExecution is the persisted record of one token's visit to one node,
// per §6.
type NodeExecution struct {
	ID           string
	ExecutionID  string
	WorkflowID   string
	TokenID      string
	NodeID       string
	NodeType     string
	Status       NodeExecutionStatus
	InputData    map[string]interface{}
	OutputData   map[string]interface{}
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  time.Time
	DurationMs   int64
}

// DefinitionStore persists and retrieves workflow definition documents by
// id, the raw bytes being whatever format (JSON/YAML) they were loaded
// from. The persistence schema is an external collaborator per §1; this
// interface is the only contract the core depends on.
type DefinitionStore interface {
	SaveDefinition(ctx context.Context, id string, format string, document []byte) error
	LoadDefinition(ctx context.Context, id string) (format string, document []byte, err error)
	ListDefinitionIDs(ctx context.Context) ([]string, error)
}

// ExecutionStore persists Execution and NodeExecution records. An engine's
// in-memory EngineState is the source of truth while running; ExecutionStore
// is an append-only audit, never replayed to resume an engine (§1
// Non-goals, §9 open question on crash recovery).
type ExecutionStore interface {
	SaveExecution(ctx context.Context, exec Execution) error
	LoadExecution(ctx context.Context, id string) (Execution, error)
	ListExecutions(ctx context.Context, workflowID string) ([]Execution, error)

	SaveNodeExecution(ctx context.Context, ne NodeExecution) error
	ListNodeExecutions(ctx context.Context, executionID string) ([]NodeExecution, error)
}
