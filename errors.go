package vecstream

import (
	"errors"

	"github.com/hupe1980/vecstream/internal/transfer"
	"github.com/hupe1980/vecstream/model"
)

var (
	// ErrInvalidArgument is returned for invalid batch sizing inputs, such as
	// a negative live document count or a non-positive memory budget.
	ErrInvalidArgument = transfer.ErrInvalidArgument

	// ErrClosed is returned when using a closed Indexer.
	ErrClosed = errors.New("vecstream: indexer closed")
)

type (
	// ErrDimensionMismatch indicates that a vector's length differs from the
	// dimension of the first vector of the stream.
	ErrDimensionMismatch = transfer.ErrDimensionMismatch

	// TransferError indicates a failed native transfer. Handle is the last
	// good handle, which the caller must release unless it is model.NoHandle.
	TransferError = transfer.TransferError

	// BuildError indicates a failed index build. The native buffer is left to
	// the caller.
	BuildError = transfer.BuildError

	// SourceError wraps a failure reported by the vector source.
	SourceError = transfer.SourceError
)

// IsTransferFailure reports whether err is, or wraps, a TransferError.
func IsTransferFailure(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}

// IsBuildFailure reports whether err is, or wraps, a BuildError.
func IsBuildFailure(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// OrphanedHandle returns the native buffer a failed stream left behind, or
// model.NoHandle if there is none.
func OrphanedHandle(err error) model.Handle {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Handle
	}
	var be *BuildError
	if errors.As(err, &be) {
		return be.Handle
	}
	return model.NoHandle
}
