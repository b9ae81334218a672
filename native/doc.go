// Package native is the boundary between the streaming pipeline and the
// native indexing layer.
//
// Transferer moves batches of vectors into buffers owned by the native layer,
// identified by opaque model.Handle values. IndexBuilder turns a fully
// transferred buffer into a searchable index.
//
// Memory is the in-process native layer: a registry of off-heap (anonymous
// mmap) vector buffers accounted against a resource.Controller.
//
//	mem := native.NewMemory(native.WithResourceController(rc))
//	h, err := mem.StoreVectorData(ctx, model.NoHandle, batch, total*dim)  // allocate
//	h, err = mem.StoreVectorData(ctx, h, nextBatch, total*dim)             // append
//	view, err := mem.View(h)
//	defer mem.Release(h)
package native
