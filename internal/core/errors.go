package core

// errors.go defines the import error taxonomy and user-friendly messages.
//
// Sentinel errors mark the conditions callers branch on. MapError turns any
// error into a UserMessage with a support code; codes are grouped by category:
//
//	FILE001-FILE099  file acquisition and input (fatal to a run)
//	ROW001-ROW099    row-level problems (the row is skipped, the run continues)
//	IMP001-IMP099    import service state
//	DB004-DB099      store connectivity
//	UPL004-UPL005    request cancellation and timeouts
//	ERR000           fallback; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFileSelected      = errors.New("no file selected")
	ErrEmptyFile           = errors.New("empty file: no header row after preamble")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrShortRow            = errors.New("short row")
	ErrMissingTitle        = errors.New("missing required title")
	ErrRunNotFound         = errors.New("import run not found")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum import size",
			Action:  "Split the export into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only CSV exports can be imported",
			Action:  "Export your tasks as CSV and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file exists and is readable",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file selected",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV export to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Make sure this is an unmodified task export",
			Code:    "FILE005",
		},
	},

	// Row errors
	{
		pattern: "short row",
		msg: UserMessage{
			Message: "Row has fewer columns than the header",
			Action:  "Check the row for a missing or unbalanced quote",
			Code:    "ROW001",
		},
	},
	{
		pattern: "missing required title",
		msg: UserMessage{
			Message: "Row has no title",
			Action:  "Add a title or remove the row",
			Code:    "ROW002",
		},
	},

	// Import service errors
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait for it to finish and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import run not found",
		msg: UserMessage{
			Message: "Import run not found",
			Action:  "The run may have expired from history",
			Code:    "IMP002",
		},
	},
	{
		pattern: "import cancelled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Entities created before cancellation were kept; re-run to finish",
			Code:    "IMP003",
		},
	},

	// Store connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the task store",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Task store connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Task store is busy",
			Action:  "Close other programs using the store and try again",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Task store was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Request lifecycle
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller export or raise IMPORT_TIMEOUT",
			Code:    "UPL005",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
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

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
