// Package vecstream streams the vectors of a segment into native memory in
// budget-sized batches and triggers index creation over the result.
//
// A source reports its live document count up front and yields vectors in
// ascending document order. The first vector fixes the dimension; the batch
// size is then derived once from the streaming memory budget:
//
//	vectorsPerTransfer = floor(dimension * 4 * totalLiveDocs / budget)
//
// with 0 meaning "everything in one batch". Every full batch is handed to the
// native layer immediately together with the handle returned by the previous
// call, so at most one batch of copied vectors is held at a time.
//
// # Quick Start
//
//	ctx := context.Background()
//	store := blobstore.NewLocalStore("./indexes")
//	idx, err := vecstream.Default(store)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	src := source.NewMemory()
//	// ... src.Add(vec) ...
//	rep, err := idx.CreateIndex(ctx, src, native.BuildContext{
//	    Segment: "segment-0",
//	    Field:   "embedding",
//	    Metric:  distance.MetricCosine,
//	})
//
// An empty source is not an error: no transfer happens, the report's Outcome
// is OutcomeSkipped and "skipping index creation, no vectors in segment" is
// logged.
//
// # Custom native layers
//
// New accepts any native.Transferer and native.IndexBuilder:
//
//	idx := vecstream.New(myTransferer, myBuilder,
//	    vecstream.WithMemoryBudget(64<<20),
//	    vecstream.WithLogger(vecstream.NewJSONLogger(slog.LevelInfo)),
//	)
//
// Failures are never retried. A TransferError or BuildError carries the
// native handle that was left behind; see OrphanedHandle and Indexer.Release.
//
// # Configuration
//
// The process-wide streaming budget lives in package config and defaults to
// 1% of physical memory. It can be loaded from YAML or set through
// VECSTREAM_* environment variables.
package vecstream
