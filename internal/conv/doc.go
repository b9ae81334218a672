// Package conv provides checked integer conversions for values read from or
// written to persisted headers (counts, dimensions, offsets).
//
// For conversions that are provably safe by construction (loop indices,
// bounded counters), use a direct cast instead.
package conv
