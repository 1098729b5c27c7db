package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncType string

const (
	SyncTypeScheduled   SyncType = "scheduled"
	SyncTypeManual      SyncType = "manual"
	SyncTypeIncremental SyncType = "incremental"
)

type SyncStatus string

const (
	SyncStatusInProgress     SyncStatus = "in_progress"
	SyncStatusSuccess        SyncStatus = "success"
	SyncStatusPartialSuccess SyncStatus = "partial_success"
	SyncStatusFailed         SyncStatus = "failed"
)

// SyncErrorType classifies where in the pipeline an error was raised.
type SyncErrorType string

const (
	SyncErrorFetch       SyncErrorType = "fetch_error"
	SyncErrorParse       SyncErrorType = "parse_error"
	SyncErrorValidation  SyncErrorType = "validation_error"
	SyncErrorPersistence SyncErrorType = "persistence_error"
	SyncErrorTransaction SyncErrorType = "transaction_error"
	SyncErrorScheduling  SyncErrorType = "scheduling_error"
)

// SyncError is one error captured during a run. Stored as a JSONB array
// element on the sync health record.
type SyncError struct {
	Type      SyncErrorType `json:"type"`
	Message   string        `json:"message"`
	Context   string        `json:"context,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// SyncHealthRecord is the persisted audit row describing one pipeline run.
// Created at run start with status in_progress, mutated as errors occur, and
// finalized exactly once at run end; read-only afterwards.
type SyncHealthRecord struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	SyncType         SyncType       `json:"sync_type" db:"sync_type"`
	Status           SyncStatus     `json:"status" db:"status"`
	StartTime        time.Time      `json:"start_time" db:"start_time"`
	EndTime          *time.Time     `json:"end_time" db:"end_time"`
	DurationSeconds  *float64       `json:"duration_seconds" db:"duration_seconds"`
	APIURL           string         `json:"api_url" db:"api_url"`
	RequestSizeBytes int64          `json:"request_size_bytes" db:"request_size_bytes"`
	ItemsProcessed   map[string]int `json:"items_processed" db:"items_processed"`
	ErrorCount       int            `json:"error_count" db:"error_count"`
	Errors           []SyncError    `json:"errors" db:"errors"`
	MemoryUsageMB    float64        `json:"memory_usage_mb" db:"memory_usage_mb"`
}

// SyncHealthStats is the aggregate view over a date range, served by the
// health reporting endpoint.
type SyncHealthStats struct {
	TotalRuns          int      `json:"total_runs"`
	SuccessCount       int      `json:"success_count"`
	PartialCount       int      `json:"partial_success_count"`
	FailedCount        int      `json:"failed_count"`
	InProgressCount    int      `json:"in_progress_count"`
	TotalErrors        int      `json:"total_errors"`
	AvgDurationSeconds *float64 `json:"avg_duration_seconds"`
}
