// Package distance provides the vector distance functions used to verify and
// query built segments.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (default, lower is closer)
//   - MetricCosine: Cosine similarity on normalized vectors (higher is closer)
//   - MetricDot: Dot product (higher is closer)
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	sim := distance.Dot(a, b)
package distance
