package cli

import "errors"

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // composition, validation or scenario failure
	ExitCommandError = 2 // bad arguments, missing paths, unusable database
)

// Codes reported in CLIError.Code. Workspace load failures use the loader's
// codes (E002, E005 to E010).
const (
	ErrCodeGeneric        = "E001"
	ErrCodeStoreOpen      = "E003"
	ErrCodeViewNotFound   = "E004"
	ErrCodeComposeFailed  = "E011"
	ErrCodeBatchFailed    = "E012" // failures in a batch, or an interrupted batch
	ErrCodeInvalidArg     = "E013"
	ErrCodeScenarioFailed = "E014"
)

// ExitError carries the process exit code out of a command's RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain, or
// ExitFailure when there is none.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
