package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized driver errors.
var (
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrBusy         = errors.New("BUSY")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInternal     = errors.New("INTERNAL")
)

// DriverTokens maps substrings of driver error messages to normalized codes.
// Unknown messages map to ErrInternal.
var DriverTokens = struct {
	Range       []string
	Busy        []string
	Unavailable []string
}{
	Range: []string{
		"OUT_OF_RANGE",
		"INVALID_RANGE",
		"INVALID_PARAMETER",
		"INVALID_VELOCITY",
		"DUTY CYCLE",
	},
	Busy: []string{
		"BUSY",
		"IN_PROGRESS",
		"TOO_MANY_REQUESTS",
	},
	Unavailable: []string{
		"UNAVAILABLE",
		"NOT_CONFIGURED",
		"OFFLINE",
		"TIMEOUT",
		"CONNECTION REFUSED",
		"NO SUCH DEVICE",
	},
}

// DriverError wraps a backend failure together with its normalized code.
type DriverError struct {
	Code     error       // Normalized code
	Op       string      // Operation that failed
	Original error       // Backend error
	Details  interface{} // Backend payload (opaque)
}

func (e *DriverError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v (driver: %v)", e.Op, e.Code, e.Original)
	}
	return fmt.Sprintf("%v (driver: %v)", e.Code, e.Original)
}

func (e *DriverError) Unwrap() error {
	return e.Code
}

// Normalize wraps a backend error in a DriverError. Errors that already carry a
// normalized code are returned unchanged.
func Normalize(op string, err error) error {
	if err == nil {
		return nil
	}

	var de *DriverError
	if errors.As(err, &de) {
		return err
	}

	for _, code := range []error{ErrInvalidRange, ErrBusy, ErrUnavailable, ErrInternal} {
		if errors.Is(err, code) {
			return &DriverError{Code: code, Op: op, Original: err}
		}
	}

	return &DriverError{
		Code:     codeFromMessage(err.Error()),
		Op:       op,
		Original: err,
	}
}

// codeFromMessage maps a backend message to a normalized code.
func codeFromMessage(msg string) error {
	upper := strings.ToUpper(msg)

	for _, token := range DriverTokens.Range {
		if strings.Contains(upper, token) {
			return ErrInvalidRange
		}
	}
	for _, token := range DriverTokens.Busy {
		if strings.Contains(upper, token) {
			return ErrBusy
		}
	}
	for _, token := range DriverTokens.Unavailable {
		if strings.Contains(upper, token) {
			return ErrUnavailable
		}
	}

	return ErrInternal
}
