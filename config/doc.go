// Package config holds the process-wide settings of vecstream.
//
// Settings are loaded from a YAML file, overridden by VECSTREAM_* environment
// variables, and published with Set. The streaming pipeline reads the memory
// budget from Current exactly once per stream, when it sizes the first batch.
//
// Byte sizes accept plain integers ("1048576"), human-readable sizes ("64MiB",
// "1.5 GB") or a percentage of available memory ("1%"). Percentages resolve
// against GOMEMLIMIT when it is set, and against physical memory otherwise.
//
//	vector_streaming_memory_limit: 1%
//	native_memory_limit: 8GiB
//	io_limit_per_sec: 200MiB
//	max_concurrent_builds: 2
//	compression: zstd
//	vectors_per_block: 4096
//	log_level: info
package config
