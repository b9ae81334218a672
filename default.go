package vecstream

import (
	"fmt"

	"github.com/hupe1980/vecstream/blobstore"
	"github.com/hupe1980/vecstream/config"
	"github.com/hupe1980/vecstream/internal/compress"
	"github.com/hupe1980/vecstream/native"
	"github.com/hupe1980/vecstream/resource"
	"github.com/hupe1980/vecstream/segment"
)

// Default returns an Indexer that streams into native.Memory and builds flat
// segments into store, configured from config.Current. Close releases the
// native memory.
//
//	store := blobstore.NewLocalStore("./indexes")
//	idx, err := vecstream.Default(store, vecstream.WithCatalog(catalog.NewMemoryCatalog()))
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//	rep, err := idx.CreateIndex(ctx, src, native.BuildContext{Segment: "s0", Field: "embedding"})
func Default(store blobstore.BlobStore, optFns ...Option) (*Indexer, error) {
	settings := config.Current()

	level, err := ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("vecstream: %w", err)
	}
	ct, err := compress.ParseType(settings.Compression)
	if err != nil {
		return nil, fmt.Errorf("vecstream: %w", err)
	}

	// User options come last so they override the settings-derived logger.
	opts := applyOptions(append([]Option{WithLogLevel(level)}, optFns...))

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     settings.NativeMemoryLimit.Int64(),
		MaxBackgroundWorkers: int64(settings.MaxConcurrentBuilds),
		IOLimitBytesPerSec:   settings.IOLimitPerSec.Int64(),
	})

	mem := native.NewMemory(
		native.WithResourceController(rc),
		native.WithLogger(opts.logger.Logger),
	)

	builderOpts := []segment.BuilderOption{
		segment.WithResourceController(rc),
		segment.WithCompression(ct),
		segment.WithVectorsPerBlock(settings.VectorsPerBlock),
		segment.WithLogger(opts.logger.Logger),
	}
	if opts.catalog != nil {
		builderOpts = append(builderOpts, segment.WithCatalog(opts.catalog))
	}
	builder := segment.NewBuilder(mem, store, builderOpts...)

	idx := New(mem, builder, optFns...)
	idx.logger = opts.logger
	idx.closers = append(idx.closers, mem.Close)
	return idx, nil
}
