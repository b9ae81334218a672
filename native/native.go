package native

import (
	"context"

	"github.com/hupe1980/vecstream/distance"
	"github.com/hupe1980/vecstream/model"
)

// Transferer stores batches of vectors in native-owned buffers.
type Transferer interface {
	// StoreVectorData copies vectors into the buffer identified by h and
	// returns the handle to use for the next call.
	//
	// With h == model.NoHandle a new buffer is allocated; otherwise vectors
	// are appended to the existing buffer. totalElementsHint is the expected
	// number of float32 values of the finished buffer and may be used to size
	// the first allocation.
	StoreVectorData(ctx context.Context, h model.Handle, vectors [][]float32, totalElementsHint int64) (model.Handle, error)
}

// TransfererFunc adapts a function to the Transferer interface.
type TransfererFunc func(ctx context.Context, h model.Handle, vectors [][]float32, totalElementsHint int64) (model.Handle, error)

// StoreVectorData implements Transferer.
func (f TransfererFunc) StoreVectorData(ctx context.Context, h model.Handle, vectors [][]float32, totalElementsHint int64) (model.Handle, error) {
	return f(ctx, h, vectors, totalElementsHint)
}

// BuildContext describes the index being built.
type BuildContext struct {
	// Segment is the name of the segment the index belongs to.
	Segment string
	// Field is the vector field within the segment.
	Field string
	// Metric is the distance metric the index is searched with.
	Metric distance.Metric
	// Parameters carries builder-specific settings.
	Parameters map[string]string
}

// IndexBuilder builds an index from a fully transferred native buffer.
type IndexBuilder interface {
	// BuildIndex builds the index for bc from the vectors in h. docIDs holds
	// the document id of every row of h, in row order.
	BuildIndex(ctx context.Context, bc BuildContext, h model.Handle, docIDs []model.DocID, dim int) error
}

// IndexBuilderFunc adapts a function to the IndexBuilder interface.
type IndexBuilderFunc func(ctx context.Context, bc BuildContext, h model.Handle, docIDs []model.DocID, dim int) error

// BuildIndex implements IndexBuilder.
func (f IndexBuilderFunc) BuildIndex(ctx context.Context, bc BuildContext, h model.Handle, docIDs []model.DocID, dim int) error {
	return f(ctx, bc, h, docIDs, dim)
}
