package sam3d

import (
	"errors"
	"fmt"
	"strings"
)

// Error reports a failed call to the remote service: a transport failure or a
// non-2xx status with its textual body.
type Error struct {
	Op     string // segment, generate3d, list3d
	Status int    // 0 for transport failures
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s failed: %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, body)
}

func (e *Error) Unwrap() error { return e.Err }

// contractError signals a 2xx response that lacks required fields.
type contractError struct {
	op  string
	msg string
}

func (e contractError) Error() string { return e.op + " response " + e.msg }

// IsContractViolation reports whether err is a success-status response with a
// missing or malformed payload.
func IsContractViolation(err error) bool {
	var ce contractError
	return errors.As(err, &ce)
}

// StatusOf returns the remote HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
