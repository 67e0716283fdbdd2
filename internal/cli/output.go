package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
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

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code carried by err, ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope written in json format.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Output writes command results as text or JSON.
type Output struct {
	Format string
	Writer io.Writer
}

// JSON reports whether results are written as JSON.
func (o *Output) JSON() bool { return o.Format == "json" }

// Success writes data. Text output prints slices one element per line.
func (o *Output) Success(data any) error {
	if o.JSON() {
		return json.NewEncoder(o.Writer).Encode(Response{Status: "ok", Data: data})
	}
	switch v := data.(type) {
	case []string:
		for _, s := range v {
			fmt.Fprintln(o.Writer, s)
		}
	default:
		fmt.Fprintln(o.Writer, data)
	}
	return nil
}

// Failure writes err in JSON format. Text output leaves errors to main.
func (o *Output) Failure(err error) error {
	if !o.JSON() {
		return nil
	}
	return json.NewEncoder(o.Writer).Encode(Response{Status: "error", Error: err.Error()})
}

var (
	createColor = color.New(color.FgGreen)
	dropColor   = color.New(color.FgRed)
	alterColor  = color.New(color.FgYellow)
)

// Statement prints one DDL statement colored by what it does.
func (o *Output) Statement(sql string) {
	c := alterColor
	switch {
	case strings.HasPrefix(sql, "CREATE"):
		c = createColor
	case strings.HasPrefix(sql, "DROP"), strings.Contains(sql, "DROP COLUMN"):
		c = dropColor
	}
	c.Fprintln(o.Writer, sql)
}
