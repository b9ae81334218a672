package transfer

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecstream/model"
)

// ErrInvalidArgument is returned by VectorsPerTransfer for non-positive inputs.
var ErrInvalidArgument = errors.New("transfer: invalid argument")

// ErrDimensionMismatch is returned when a vector's length differs from the
// dimension captured from the first vector of the stream.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	DocID    model.DocID
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("transfer: dimension mismatch at doc %d: expected %d, got %d", e.DocID, e.Expected, e.Actual)
}

// TransferError wraps a failed native transfer call.
//
// Handle is the last handle returned by a successful transfer. It is
// model.NoHandle if the first transfer failed; otherwise the caller owns the
// partially filled buffer and must release it.
type TransferError struct {
	Batch   int
	Vectors int
	Handle  model.Handle
	cause   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer: batch %d (%d vectors) failed: %v", e.Batch, e.Vectors, e.cause)
}

func (e *TransferError) Unwrap() error { return e.cause }

// BuildError wraps a failed index build. The buffer identified by Handle is
// left to the caller.
type BuildError struct {
	Handle model.Handle
	Docs   int
	cause  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("transfer: index build over %d docs failed: %v", e.Docs, e.cause)
}

func (e *BuildError) Unwrap() error { return e.cause }

// SourceError wraps a failure reported by the vector source.
type SourceError struct {
	cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("transfer: source: %v", e.cause)
}

func (e *SourceError) Unwrap() error { return e.cause }
