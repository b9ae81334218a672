// Package resource provides process-wide governance for native memory,
// index builds and background IO.
//
//   - Memory: native vector buffers reserve their bytes here before mapping them.
//     TryAcquireMemory fails fast with ErrMemoryLimitExceeded, AcquireMemory waits.
//   - Builds: MaxBackgroundWorkers bounds how many index builds run at once.
//   - IO: a token bucket throttles segment uploads so index builds do not
//     starve foreground traffic.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   4 << 30,
//	    IOLimitBytesPerSec: 200 << 20,
//	})
//
//	if !rc.TryAcquireMemory(n) {
//	    return resource.ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(n)
//
// All methods are safe for concurrent use, and a nil *Controller is valid:
// every method becomes a no-op that grants the request.
package resource
