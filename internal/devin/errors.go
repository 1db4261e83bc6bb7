package devin

import (
	"fmt"
	"time"
)

// APIError is a non-2xx response from the Devin API. It always carries the
// HTTP status and raw response body for the operator.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("devin: %s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// ProtocolError is a 2xx response whose body violates the documented
// contract (for example an attachment upload response that is neither a
// bare URL string nor an object with a url field). Fatal, never retried.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("devin: %s protocol error: %s", e.Op, e.Detail)
}

// TimeoutError means polling exceeded its wall-clock budget. It carries the
// session ID so an operator can resume manually.
type TimeoutError struct {
	SessionID string
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("devin: session %s polling timed out after %s", e.SessionID, e.Elapsed.Round(time.Second))
}
