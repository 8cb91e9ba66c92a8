package core

import (
	"context"
	"time"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionRowCreate  AuditAction = "row_create"
	ActionRowUpdate  AuditAction = "row_update"
	ActionCellEdit   AuditAction = "cell_edit"
	ActionRowDelete  AuditAction = "row_delete"
	ActionBulkDelete AuditAction = "bulk_delete"
	ActionImport     AuditAction = "csv_import"
	ActionUpload     AuditAction = "file_upload"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	TableKey     string         `json:"tableKey"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RowKey       string         `json:"rowKey,omitempty"`
	ColumnName   string         `json:"columnName,omitempty"`
	OldValue     string         `json:"oldValue,omitempty"`
	NewValue     string         `json:"newValue,omitempty"`
	RowData      map[string]any `json:"rowData,omitempty"`
	RowsAffected int            `json:"rowsAffected,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	TableKey     string
	IPAddress    string
	UserAgent    string
	RowKey       string
	ColumnName   string
	OldValue     string
	NewValue     string
	RowData      map[string]any
	RowsAffected int
	Reason       string
}

// DetermineSeverity returns the severity recorded for an action.
func DetermineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionBulkDelete, ActionRowDelete, ActionImport:
		return SeverityHigh
	case ActionUpload:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// AuditLogFilter contains filtering options for querying audit logs.
type AuditLogFilter struct {
	TableKey  string
	Action    AuditAction
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// DefaultAuditLimit is the page size of audit queries without a limit.
const DefaultAuditLimit = 50

// AuditLogger records audit entries.
type AuditLogger interface {
	LogAudit(ctx context.Context, params AuditLogParams) (*AuditEntry, error)
}

// AuditParamsFromContext fills the request metadata of params from ctx.
func AuditParamsFromContext(ctx context.Context, params AuditLogParams) AuditLogParams {
	meta := RequestMetaFrom(ctx)
	if params.IPAddress == "" {
		params.IPAddress = meta.IPAddress
	}
	if params.UserAgent == "" {
		params.UserAgent = meta.UserAgent
	}
	return params
}
