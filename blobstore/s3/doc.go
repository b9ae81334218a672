// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("segments/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	idx, err := vecstream.Default(store)
//
// # Features
//
//   - Range reads for partial fetches
//   - Streaming multipart uploads through the s3 manager, aborted on failure
//   - CRC32C integrity checks on uploads
//   - Automatic pagination for listing
package s3
