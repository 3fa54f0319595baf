package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrInvalidInput is returned for malformed or missing request parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a cached file cannot be found.
	ErrNotFound = errors.New("file not found")

	// ErrFetchTimeout is returned when the external tool exceeds its deadline.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrOutputMissing is returned when the external tool exits successfully
	// but no output file can be located.
	ErrOutputMissing = errors.New("fetch produced no output file")

	// ErrCorruptFile is returned when a cached file is implausibly small.
	ErrCorruptFile = errors.New("cached file is corrupt")

	// ErrRangeNotSatisfiable is returned when a byte range starts past the
	// end of the file.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")

	// ErrUnsafeFilename is returned when a requested filename contains path
	// traversal characters.
	ErrUnsafeFilename = errors.New("unsafe filename")
)

// MaxStderrLen bounds the diagnostic snippet carried in a ToolError.
const MaxStderrLen = 500

// ToolError reports a non-zero exit from the external extraction tool.
type ToolError struct {
	Identifier string
	ExitCode   int
	Stderr     string
	Err        error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("yt-dlp exited %d [%s]: %s", e.ExitCode, e.Identifier, e.Stderr)
	}
	return fmt.Sprintf("yt-dlp exited %d [%s]", e.ExitCode, e.Identifier)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError creates a ToolError with the stderr snippet truncated.
func NewToolError(identifier string, exitCode int, stderr string, err error) *ToolError {
	return &ToolError{
		Identifier: identifier,
		ExitCode:   exitCode,
		Stderr:     Truncate(stderr, MaxStderrLen),
		Err:        err,
	}
}

// Truncate shortens a diagnostic string to at most maxLen bytes.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
