package errors

import (
	"fmt"
)

// Code represents an error code with its default message
type Code struct {
	Code    int    // Business error code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternal         = 1000
	ErrInvalidParams    = 1001
	ErrNotFound         = 1002
	ErrNotAuthenticated = 1003
	ErrForbidden        = 1004
	ErrConflict         = 1005
	ErrRemoteUnavail    = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidCredentials = 2000
	ErrAuthEmailExists        = 2001
	ErrAuthSessionExpired     = 2002
	ErrAuthLogoutFailed       = 2003

	// Project errors (3000-3999)
	ErrProjectNotFound     = 3000
	ErrProjectCreateFailed = 3001
	ErrDuplicateProject    = 3002
	ErrProjectRenameFailed = 3003

	// Conversation errors (4000-4999)
	ErrEmptyMessage   = 4000
	ErrStreamFailed   = 4001
	ErrStreamClosed   = 4002
	ErrFrameMalformed = 4003
	ErrNamingFailed   = 4004
	ErrHistoryFailed  = 4005

	// Prompt and file errors (5000-5999)
	ErrPromptNotFound   = 5000
	ErrPromptRunFailed  = 5001
	ErrFileUploadFailed = 5002
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, "Success"},

	// Common errors
	ErrInternal:         {ErrInternal, "Internal error"},
	ErrInvalidParams:    {ErrInvalidParams, "Invalid parameters"},
	ErrNotFound:         {ErrNotFound, "Resource not found"},
	ErrNotAuthenticated: {ErrNotAuthenticated, "Not authenticated"},
	ErrForbidden:        {ErrForbidden, "Forbidden"},
	ErrConflict:         {ErrConflict, "Resource conflict"},
	ErrRemoteUnavail:    {ErrRemoteUnavail, "Backend unavailable"},

	// Auth errors
	ErrAuthInvalidCredentials: {ErrAuthInvalidCredentials, "Invalid email or password"},
	ErrAuthEmailExists:        {ErrAuthEmailExists, "Email already registered"},
	ErrAuthSessionExpired:     {ErrAuthSessionExpired, "Session expired"},
	ErrAuthLogoutFailed:       {ErrAuthLogoutFailed, "Remote logout failed"},

	// Project errors
	ErrProjectNotFound:     {ErrProjectNotFound, "Project not found"},
	ErrProjectCreateFailed: {ErrProjectCreateFailed, "Failed to create project"},
	ErrDuplicateProject:    {ErrDuplicateProject, "Project already exists"},
	ErrProjectRenameFailed: {ErrProjectRenameFailed, "Failed to rename project"},

	// Conversation errors
	ErrEmptyMessage:   {ErrEmptyMessage, "Message is empty"},
	ErrStreamFailed:   {ErrStreamFailed, "Response stream failed"},
	ErrStreamClosed:   {ErrStreamClosed, "Response stream closed"},
	ErrFrameMalformed: {ErrFrameMalformed, "Malformed stream frame"},
	ErrNamingFailed:   {ErrNamingFailed, "Failed to generate conversation name"},
	ErrHistoryFailed:  {ErrHistoryFailed, "Failed to load conversation history"},

	// Prompt and file errors
	ErrPromptNotFound:   {ErrPromptNotFound, "Prompt not found"},
	ErrPromptRunFailed:  {ErrPromptRunFailed, "Failed to run prompt"},
	ErrFileUploadFailed: {ErrFileUploadFailed, "Failed to upload file"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternal]
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
