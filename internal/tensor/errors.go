package tensor

import "fmt"

// ShapeMismatchError reports tensor dimensions inconsistent with each other or
// with the declared feature universe.
type ShapeMismatchError struct {
	What string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s", e.What)
}

// ErrBadHeader reports an unparseable safetensors header.
type ErrBadHeader struct {
	Reason string
}

func (e ErrBadHeader) Error() string {
	return fmt.Sprintf("invalid safetensors header: %s", e.Reason)
}

// ErrUnsupportedDType reports a tensor stored with a dtype this loader does not
// handle. Everything in this toolkit is F32.
type ErrUnsupportedDType struct {
	Name  string
	DType string
}

func (e ErrUnsupportedDType) Error() string {
	return fmt.Sprintf("tensor %q has unsupported dtype %s (want F32)", e.Name, e.DType)
}
