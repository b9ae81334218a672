package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/vecstream/blobstore"
	"github.com/hupe1980/vecstream/catalog"
	"github.com/hupe1980/vecstream/internal/compress"
	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/native"
	"github.com/hupe1980/vecstream/resource"
)

// ErrRowMismatch is returned when the native buffer does not hold one row
// per document id.
var ErrRowMismatch = errors.New("segment: native buffer does not match doc ids")

// Viewer exposes native buffers to the builder. native.Memory implements it.
type Viewer interface {
	View(h model.Handle) (native.View, error)
	Release(h model.Handle) error
}

var _ Viewer = (*native.Memory)(nil)

// NameFunc returns the blob name of the segment built for bc.
type NameFunc func(bc native.BuildContext) string

// DefaultName places segments at "segments/<segment>/<field>.vseg".
func DefaultName(bc native.BuildContext) string {
	return path.Join("segments", bc.Segment, bc.Field+".vseg")
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCatalog registers every built segment in c.
func WithCatalog(c catalog.Catalog) BuilderOption {
	return func(b *Builder) { b.catalog = c }
}

// WithResourceController bounds concurrent builds and throttles uploads.
func WithResourceController(rc *resource.Controller) BuilderOption {
	return func(b *Builder) { b.rc = rc }
}

// WithCompression sets the block compression. Default: LZ4.
func WithCompression(t compress.Type) BuilderOption {
	return func(b *Builder) { b.compression = t }
}

// WithVectorsPerBlock sets the number of vectors per block.
func WithVectorsPerBlock(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.vectorsPerBlock = n
		}
	}
}

// WithNameFunc overrides the segment naming scheme.
func WithNameFunc(fn NameFunc) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.name = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder builds flat segments from native buffers and uploads them to a
// blob store. It implements native.IndexBuilder.
//
// A successful build releases the native buffer. On failure the buffer is
// left to the caller.
type Builder struct {
	viewer          Viewer
	store           blobstore.BlobStore
	catalog         catalog.Catalog
	rc              *resource.Controller
	compression     compress.Type
	vectorsPerBlock int
	name            NameFunc
	logger          *slog.Logger
	now             func() time.Time
}

var _ native.IndexBuilder = (*Builder)(nil)

// NewBuilder returns a Builder reading from viewer and writing to store.
func NewBuilder(viewer Viewer, store blobstore.BlobStore, opts ...BuilderOption) *Builder {
	b := &Builder{
		viewer:          viewer,
		store:           store,
		compression:     compress.LZ4,
		vectorsPerBlock: DefaultVectorsPerBlock,
		name:            DefaultName,
		logger:          slog.New(slog.DiscardHandler),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildIndex writes the segment for bc and registers it.
func (b *Builder) BuildIndex(ctx context.Context, bc native.BuildContext, h model.Handle, docIDs []model.DocID, dim int) error {
	if err := b.rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer b.rc.ReleaseBackground()

	view, err := b.viewer.View(h)
	if err != nil {
		return err
	}
	if view.Dim != dim || view.Rows != len(docIDs) {
		return fmt.Errorf("%w: buffer %d x %d, expected %d x %d", ErrRowMismatch, view.Rows, view.Dim, len(docIDs), dim)
	}

	start := b.now()
	name := b.name(bc)

	wb, err := b.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("segment: create %s: %w", name, err)
	}

	stats, err := Write(ctx, resource.NewRateLimitedWriter(ctx, wb, b.rc), docIDs, view.Data[:view.Rows*view.Dim], dim, WriterOptions{
		Compression:     b.compression,
		Metric:          bc.Metric,
		VectorsPerBlock: b.vectorsPerBlock,
	})
	if err != nil {
		_ = wb.Abort()
		return fmt.Errorf("segment: write %s: %w", name, err)
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("segment: publish %s: %w", name, err)
	}

	if b.catalog != nil {
		entry := catalog.Entry{
			Segment:     bc.Segment,
			Field:       bc.Field,
			Blob:        name,
			Metric:      bc.Metric.String(),
			Dimension:   dim,
			Count:       len(docIDs),
			Compression: b.compression.String(),
			Bytes:       stats.Bytes,
			Checksum:    stats.Checksum,
			CreatedAt:   b.now().UTC(),
		}
		if err := b.catalog.Register(ctx, entry); err != nil {
			return fmt.Errorf("segment: register %s: %w", entry.Key(), err)
		}
	}

	if err := b.viewer.Release(h); err != nil {
		b.logger.WarnContext(ctx, "failed to release native buffer", "handle", uint64(h), "error", err)
	}

	b.logger.InfoContext(ctx, "segment built",
		"segment", bc.Segment,
		"field", bc.Field,
		"blob", name,
		"vectors", len(docIDs),
		"dimension", dim,
		"size", humanize.IBytes(uint64(stats.Bytes)), //nolint:gosec // non-negative
		"raw", humanize.IBytes(uint64(stats.RawBytes)), //nolint:gosec // non-negative
		"duration", b.now().Sub(start),
	)
	return nil
}
