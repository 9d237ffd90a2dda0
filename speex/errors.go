package speex

import (
	"errors"
	"fmt"
)

var (
	ErrFormat      = errors.New("invalid format")
	ErrChecksum    = errors.New("checksum mismatch")
	ErrUnsupported = errors.New("unsupported format")
	ErrSampleSize  = fmt.Errorf("%w: unsupported sample size", ErrFormat)
	ErrNoCodec     = errors.New("no frame codec registered")
)

// Error attaches the failing component and the byte offset of the offending
// structure to one of the sentinel errors above.
type Error struct {
	Component string
	Offset    int64
	Err       error
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("%s: offset %d: %v", e.Component, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf wraps kind with a formatted detail. Use an offset of -1 when the
// position is unknown.
func Errorf(component string, offset int64, kind error, format string, args ...interface{}) error {
	return &Error{
		Component: component,
		Offset:    offset,
		Err:       fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...),
	}
}
