package transfer

import (
	"errors"

	"github.com/hupe1980/vecstream/model"
)

// ErrInconsistentResult is returned by Result.Validate when exactly one of
// the handle and the doc id sequence is empty.
var ErrInconsistentResult = errors.New("transfer: handle and doc ids disagree on emptiness")

// Result is the outcome of streaming one source into a native buffer.
type Result struct {
	// DocIDs lists every transferred document in source order.
	DocIDs []model.DocID
	// Handle identifies the native buffer, or model.NoHandle if nothing was
	// transferred.
	Handle model.Handle
	// Dimension is the vector width, 0 for an empty stream.
	Dimension int
	// Mode describes how vectors were encoded for transfer.
	Mode model.SerializationMode

	// Batches is the number of transfer calls made.
	Batches int
	// VectorsPerTransfer is the batch size chosen at sizing time.
	VectorsPerTransfer int64
}

// Empty reports whether nothing was transferred.
func (r *Result) Empty() bool {
	return r == nil || (r.Handle.IsZero() && len(r.DocIDs) == 0)
}

// Validate checks that the handle is set if and only if doc ids are present.
func (r *Result) Validate() error {
	if r.Handle.IsZero() != (len(r.DocIDs) == 0) {
		return ErrInconsistentResult
	}
	return nil
}
