package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Backend and mutation failures reach users only as notifications,
// so every message here is written to be shown in a toast.
//
// Error codes are grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//	DB008 - Check constraint: A value is outside the allowed range
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date
//	VAL002 - Invalid number ("must be a number")
//	VAL003 - Invalid email address
//	VAL004 - Phone number too short
//	VAL005 - Invalid field values (one or more form fields failed)
//	VAL006 - Empty filter on a bulk operation
//
// # Row Errors (ROW001-ROW099)
//
// Orchestrator rejections of a row-level intent:
//
//	ROW001 - Row busy: another change to this row is still saving
//	ROW002 - Row not found
//	ROW003 - Column not editable
//	ROW004 - No rows selected
//	ROW005 - Feature disabled for this table
//	ROW006 - No confirmation pending
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - File too large
//	IMP002 - No file provided
//	IMP003 - Empty file
//	IMP004 - Encoding error
//	IMP005 - Import endpoint rejected the file
//	IMP006 - Too many imports in progress
//	IMP007 - Import endpoint not configured
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Storage upload failed
//	STO002 - Storage not configured
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table not found
//	TBL002 - Unknown table
//
// # Request Errors (REQ001-REQ099) and Rate Limiting (RATE001)
//
//	REQ001 - Request cancelled ("context canceled")
//	REQ002 - Request timed out ("context deadline exceeded")
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Any error not matching a pattern maps to ERR000.

import (
	"fmt"
	"strings"
)

// UserMessage is an error explained for end users.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched in order against the lowercased error text.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{"duplicate key", UserMessage{"A record with this ID already exists", "Edit the existing record instead", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Choose a different value", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Choose a different value", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Create the referenced record first", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Create the referenced record first", "DB003"}},
	{"violates check constraint", UserMessage{"A value is outside the allowed range", "Review the highlighted values", "DB008"}},

	// Database connection errors
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Validation errors
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL001"}},
	{"must be a number", UserMessage{"Invalid number format detected", "Enter a number without letters", "VAL002"}},
	{"invalid number", UserMessage{"Invalid number format detected", "Enter a number without letters", "VAL002"}},
	{"invalid email", UserMessage{"Invalid email address", "Check the email address for typos", "VAL003"}},
	{"too short", UserMessage{"Phone number is too short", "Include the area code", "VAL004"}},
	{"invalid field values", UserMessage{"Some fields have invalid values", "Correct the highlighted fields and submit again", "VAL005"}},
	{"empty filter", UserMessage{"Bulk changes need at least one filter", "Select the rows to change first", "VAL006"}},

	// Row errors
	{"mutation in progress", UserMessage{"This row is still being saved", "Wait for the current change to finish", "ROW001"}},
	{"row not found", UserMessage{"The row no longer exists", "Refresh the table", "ROW002"}},
	{"not editable", UserMessage{"This column cannot be edited", "Open the edit form to change other fields", "ROW003"}},
	{"no rows selected", UserMessage{"No rows are selected", "Select one or more rows first", "ROW004"}},
	{"feature is disabled", UserMessage{"This action is not available for this table", "Contact an administrator", "ROW005"}},
	{"no confirmation is pending", UserMessage{"Nothing is waiting for confirmation", "Start the delete again", "ROW006"}},

	// Import errors
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "IMP001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to import", "IMP002"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a CSV file with data rows", "IMP003"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save file as UTF-8 encoding", "IMP004"}},
	{"import rejected", UserMessage{"The import service rejected the file", "Check the file format and try again", "IMP005"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP006"}},
	{"import endpoint not configured", UserMessage{"CSV import is not configured", "Set IMPORT_ENDPOINT and restart", "IMP007"}},

	// Storage errors
	{"storage upload", UserMessage{"The file could not be stored", "Please try again", "STO001"}},
	{"storage not configured", UserMessage{"File storage is not configured", "Set STORAGE_BUCKET and restart", "STO002"}},

	// Table errors
	{"table not found", UserMessage{"Table not found", "Verify the table name is correct", "TBL001"}},
	{"unknown table", UserMessage{"Unknown table", "This table is not configured", "TBL002"}},

	// Request errors
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Please try again", "REQ002"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError maps a technical error to a user-facing message by pattern.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
