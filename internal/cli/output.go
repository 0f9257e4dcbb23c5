package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/relpath/internal/query"
	"github.com/roach88/relpath/internal/queryir"
	"github.com/roach88/relpath/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // success
	ExitFailure      = 1 // invalid schema, unresolvable path, non-portable plan
	ExitCommandError = 2 // schema or database missing, unreadable input, write failure
)

// Error codes reported in CLIError.Code and text output.
const (
	ErrCodeGeneric       = "E001"
	ErrCodeScanError     = "E002" // schema directory scan
	ErrCodeNoFiles       = "E003" // no .cue or .yaml files
	ErrCodeLoadFailed    = "E004" // CUE or YAML load
	ErrCodeNotFound      = "E005" // schema, database or records file missing
	ErrCodeBuildFailed   = "E006" // CUE build
	ErrCodeWriteFailed   = "E007"
	ErrCodeSchemaInvalid = "E008" // validation or registration
	ErrCodeDatabase      = "E009" // open or introspect

	ErrCodeUnknownModel    = "E010"
	ErrCodeInvalidPath     = "E011"
	ErrCodeUnknownField    = "E012"
	ErrCodeUnresolved      = "E013" // neither field nor relationship
	ErrCodeAmbiguous       = "E014"
	ErrCodeDeprecatedOp    = "E015" // eql or in requested explicitly
	ErrCodeInvalidQuery    = "E016"
	ErrCodeInvalidArgument = "E017" // malformed --where or --order entry
	ErrCodeNotPortable     = "E018" // --strict with warnings
)

// ErrorCode maps a schema, path or query error to its CLI error code.
// Errors from outside those packages map to ErrCodeGeneric.
func ErrorCode(err error) string {
	var argErr *argError
	switch {
	case errors.As(err, &argErr):
		return ErrCodeInvalidArgument
	case errors.Is(err, schema.ErrUnknownModel):
		return ErrCodeUnknownModel
	case errors.Is(err, query.ErrInvalidPath):
		return ErrCodeInvalidPath
	case errors.Is(err, query.ErrUnknownField):
		return ErrCodeUnknownField
	case errors.Is(err, query.ErrUnresolvedMember):
		return ErrCodeUnresolved
	case errors.Is(err, query.ErrAmbiguousTraversal):
		return ErrCodeAmbiguous
	case errors.Is(err, query.ErrDeprecatedOperator):
		return ErrCodeDeprecatedOp
	case errors.Is(err, queryir.ErrInvalidQuery):
		return ErrCodeInvalidQuery
	default:
		return ErrCodeGeneric
	}
}

// ExitError carries the process exit code out of a command.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code. errors.Is and errors.As see
// through the result.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command writes.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. Text output prints data with fmt's default format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an error report. Details are printed in text mode only
// when Verbose is set.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line to the error writer when Verbose
// is set, so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports an error and returns the ExitError the command should
// return.
func (f *OutputFormatter) Fail(exitCode int, code, message string, details any) error {
	_ = f.Error(code, message, details)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// FailWith reports err under the code ErrorCode picks for it. The
// returned ExitError wraps err.
func (f *OutputFormatter) FailWith(exitCode int, err error) error {
	code := ErrorCode(err)
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exitCode, code, err)
}
