package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the check ran and failed, e.g. a permission is not granted
	ExitCommandError = 2 // bad arguments, unreachable database
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data as JSON, or calls text in text mode.
func (f *OutputFormatter) Success(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// Error reports a failure in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message}})
	}
	_, err := fmt.Fprintf(f.Writer, "error [%s]: %s\n", code, message)
	return err
}

// VerboseLog writes a diagnostic line to ErrWriter when verbose is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) writeJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
