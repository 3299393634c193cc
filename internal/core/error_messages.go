// Package core provides the reconciliation logic for taxonomy imports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Validation Errors (VAL001-VAL099)
//
// Errors related to row validation:
//
//	VAL001 - Required field: Required field is empty
//	         Action: Every row needs an entity_type and a name
//	         Patterns: "required field"
//
//	VAL002 - Invalid entity type: Entity type is not recognized
//	         Action: Use term or node in the entity_type column
//	         Patterns: "entity type must be"
//
//	VAL003 - Invalid URN: Identifier is not a URN
//	         Action: Leave urn empty for new entries or copy it from an export
//	         Patterns: "urn must start with"
//
//	VAL004 - Missing column: Required column is missing from the file
//	         Action: Start from the import template
//	         Patterns: "missing required column", "missing columns"
//
//	VAL005 - Invalid value: Value is not in the allowed list
//	         Action: Check the allowed values for this field
//	         Patterns: "value must be one of"
//
//	VAL006 - Unusable name: Name has no letters or digits
//	         Action: Give the entry a name containing letters or digits
//	         Patterns: "no letters or digits"
//
// # File Errors (FILE001-FILE099)
//
// Errors related to file handling and parsing:
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Invalid file: File is not a valid CSV or spreadsheet
//	          Action: Ensure file is comma-separated with consistent quoting
//	          Patterns: "invalid xlsx", "invalid csv", "malformed"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 encoding
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV or XLSX file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a file with a header and data rows
//	          Patterns: "empty file"
//
//	FILE006 - No header: No header row was found
//	          Action: Start from the import template
//	          Patterns: "no header row"
//
//	FILE007 - No rows: The file has a header but no data rows
//	          Action: Add at least one row below the header
//	          Patterns: "no data rows"
//
//	FILE008 - Unsupported format: File type is not supported
//	          Action: Use .csv or .xlsx
//	          Patterns: "unsupported format"
//
// # Snapshot Errors (SNAP001-SNAP099)
//
// Errors related to loading existing entities:
//
//	SNAP001 - Snapshot not found: Existing entities could not be found
//	          Action: Check the snapshot path
//	          Patterns: "snapshot not found", "no such file"
//
//	SNAP002 - Snapshot unreadable: Existing entities could not be decoded
//	          Action: Re-export the snapshot and try again
//	          Patterns: "decode snapshot"
//
//	SNAP003 - Snapshot unavailable: Existing entities could not be loaded
//	          Action: Please try again in a few moments
//	          Patterns: "snapshot unavailable", "connection refused"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	REQ002 - Request timeout: Request timed out
//	         Action: Try a smaller file or try again later
//	         Patterns: "context deadline exceeded", "timeout"
//
//	REQ003 - Bad request body: Request body could not be read
//	         Action: Send a JSON object with a rows array
//	         Patterns: "invalid request body"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
//	RATE002 - Busy: Too many previews running at once
//	          Action: Please try again in a few moments
//	          Patterns: "too many concurrent"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

func pattern(p, message, action, code string) errorPattern {
	return errorPattern{pattern: p, msg: UserMessage{Message: message, Action: action, Code: code}}
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// Validation
	pattern("required field", "Required field is empty", "Every row needs an entity_type and a name", "VAL001"),
	pattern("entity type must be", "Entity type is not recognized", "Use term or node in the entity_type column", "VAL002"),
	pattern("urn must start with", "Identifier is not a URN", "Leave urn empty for new entries or copy it from an export", "VAL003"),
	pattern("is not a urn", "Identifier does not match the row's path", "Leave urn empty for new entries or copy it from an export", "VAL003"),
	pattern("missing required column", "Required column is missing from the file", "Start from the import template", "VAL004"),
	pattern("missing columns", "Some columns are missing from the file", "Start from the import template", "VAL004"),
	pattern("value must be one of", "Value is not in the allowed list", "Check the allowed values for this field", "VAL005"),
	pattern("no letters or digits", "Name has no letters or digits", "Give the entry a name containing letters or digits", "VAL006"),

	// File
	pattern("file too large", "File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"),
	pattern("request body too large", "File exceeds maximum size limit", "Split the file into smaller chunks", "FILE001"),
	pattern("invalid xlsx", "File is not a valid spreadsheet", "Save the workbook as .xlsx and try again", "FILE002"),
	pattern("invalid csv", "File is not a valid CSV", "Ensure file is comma-separated with consistent quoting", "FILE002"),
	pattern("malformed", "File is not a valid CSV", "Ensure file is comma-separated with consistent quoting", "FILE002"),
	pattern("encoding error", "File contains invalid characters", "Save file as UTF-8 encoding", "FILE003"),
	pattern("no file provided", "No file was selected", "Please select a CSV or XLSX file", "FILE004"),
	pattern("empty file", "The uploaded file is empty", "Please upload a file with a header and data rows", "FILE005"),
	pattern("no header row", "No header row was found", "Start from the import template", "FILE006"),
	pattern("no data rows", "The file has a header but no data rows", "Add at least one row below the header", "FILE007"),
	pattern("unsupported format", "File type is not supported", "Use .csv or .xlsx", "FILE008"),

	// Snapshot
	pattern("snapshot not found", "Existing entities could not be found", "Check the snapshot path", "SNAP001"),
	pattern("no such file", "Existing entities could not be found", "Check the snapshot path", "SNAP001"),
	pattern("decode snapshot", "Existing entities could not be decoded", "Re-export the snapshot and try again", "SNAP002"),
	pattern("snapshot unavailable", "Existing entities could not be loaded", "Please try again in a few moments", "SNAP003"),
	pattern("connection refused", "Existing entities could not be loaded", "Please try again in a few moments", "SNAP003"),

	// Request
	pattern("context canceled", "Request was cancelled", "Please try again", "REQ001"),
	pattern("context deadline exceeded", "Request timed out", "Try a smaller file or try again later", "REQ002"),
	pattern("timeout", "Request timed out", "Try a smaller file or try again later", "REQ002"),
	pattern("invalid request body", "Request body could not be read", "Send a JSON object with a rows array", "REQ003"),

	// Rate limiting
	pattern("rate limit", "Too many requests", "Please wait a moment before trying again", "RATE001"),
	pattern("too many concurrent", "The server is busy with other previews", "Please try again in a few moments", "RATE002"),
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(ErrEmptyFile)
//	// msg.Code == "FILE005"
//	// msg.Message == "The uploaded file is empty"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "The uploaded file is empty (Code: FILE005). Please upload a file with a header and data rows"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
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

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(loadErr)
//	log.Error(ue.Technical)          // Log original error
//	fmt.Println(ue.Error())           // Show "Existing entities could not be found"
//	fmt.Println(ue.User.Code)         // Show "SNAP001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
