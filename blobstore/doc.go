// Package blobstore stores immutable artifacts such as built segment files.
//
// Implementations:
//   - MemoryStore: in-process, for tests and ephemeral builds
//   - LocalStore: a directory on the local file system, read through mmap
//   - s3.Store: Amazon S3 (package blobstore/s3)
//   - minio.Store: MinIO or any S3-compatible endpoint (package blobstore/minio)
//
// Writes are all-or-nothing: a WritableBlob becomes visible on Close and is
// discarded on Abort.
package blobstore
