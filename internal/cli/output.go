package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// OutputFormatter writes command results as text or as a JSON CLIResponse.
//
// In JSON mode exactly one envelope is written per command; Textf lines are
// dropped and verbose lines go to ErrWriter so stdout stays parseable.
type OutputFormatter struct {
	Format    string // "text" or "json"
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; Writer when nil
	Verbose   bool
}

// CLIResponse is the JSON envelope.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" | "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Line markers. color turns itself off when stdout is not a terminal.
var (
	markOK   = color.GreenString("✓")
	markFail = color.RedString("✗")
	markWarn = color.YellowString("!")
	markSkip = color.New(color.Faint).Sprint("-")
)

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success writes data: the envelope in JSON mode, its default formatting
// otherwise.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error envelope, or an "Error [code]" line followed by the
// details when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "%s Error [%s]: %s\n", markFail, code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Result writes the JSON envelope for a command that also prints its own
// text. cliErr marks the envelope as an error but keeps data. A no-op in
// text mode.
func (f *OutputFormatter) Result(data any, cliErr *CLIError, runID string) error {
	if !f.isJSON() {
		return nil
	}
	resp := CLIResponse{Status: "ok", Data: data, RunID: runID}
	if cliErr != nil {
		resp.Status, resp.Error = "error", cliErr
	}
	return f.encode(resp)
}

// Textf prints one line in text mode.
func (f *OutputFormatter) Textf(format string, args ...any) {
	if !f.isJSON() {
		fmt.Fprintf(f.Writer, format+"\n", args...)
	}
}

// VerboseLog prints one line to GetErrWriter when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
