// Package transfer streams vectors from a source.Source into a native buffer
// in budget-sized batches and hands the finished buffer to an index builder.
//
// The pipeline is single-goroutine and synchronous. Every vector retained
// between iterator steps is copied, batches are transferred in source order,
// and the native buffer handle is threaded by value through every transfer
// call, starting from model.NoHandle.
package transfer
