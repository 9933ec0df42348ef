package transport

import "fmt"

// TransportError codes, mirroring the step at which a budgeted retry loop
// gave up or the class of USB failure encountered.
const (
	ErrCodeNotFound = 1
	ErrCodeTimeout  = 2
	ErrCodeIO       = 3
)

// TransportError is a structured error carrying the step a timeout occurred
// at, so callers can decide whether the failure aborts the whole sync
// (discovery, pairing, count) or only skips one session (size, body).
type TransportError struct {
	Code    int
	Step    string
	Message string
}

func (e *TransportError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("transport: [%d] %s: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("transport: [%d] %s", e.Code, e.Message)
}

func errNotFound() error {
	return &TransportError{Code: ErrCodeNotFound, Message: "DataLink dongle not found"}
}

func errTimeout(step string) error {
	return &TransportError{Code: ErrCodeTimeout, Step: step, Message: "attempt budget exhausted"}
}

func errIO(step string, cause error) error {
	return &TransportError{Code: ErrCodeIO, Step: step, Message: cause.Error()}
}
