package segment

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecstream/distance"
	"github.com/hupe1980/vecstream/internal/compress"
	"github.com/hupe1980/vecstream/internal/conv"
	"github.com/hupe1980/vecstream/internal/hash"
	"github.com/hupe1980/vecstream/model"
)

// WriterOptions configures Write.
type WriterOptions struct {
	Compression     compress.Type
	Metric          distance.Metric
	VectorsPerBlock int
	// Parallelism bounds concurrent block compression. Default: GOMAXPROCS.
	Parallelism int
}

// WriteStats summarizes a written segment.
type WriteStats struct {
	Bytes    int64
	RawBytes int64
	Blocks   int
	Checksum uint32
}

// Write encodes a segment holding docIDs and the row-major vectors in data
// to w. Blocks are compressed concurrently and written in order. With
// distance.MetricCosine the stored vectors are L2-normalized.
func Write(ctx context.Context, w io.Writer, docIDs []model.DocID, data []float32, dim int, opts WriterOptions) (WriteStats, error) {
	if dim <= 0 {
		return WriteStats{}, fmt.Errorf("segment: invalid dimension %d", dim)
	}
	if len(data) != len(docIDs)*dim {
		return WriteStats{}, fmt.Errorf("segment: %d floats do not hold %d vectors of dimension %d", len(data), len(docIDs), dim)
	}
	if _, err := conv.IntToUint32(len(docIDs)); err != nil {
		return WriteStats{}, fmt.Errorf("segment: vector count: %w", err)
	}
	if _, err := conv.IntToUint32(dim); err != nil {
		return WriteStats{}, fmt.Errorf("segment: dimension: %w", err)
	}
	if opts.VectorsPerBlock <= 0 {
		opts.VectorsPerBlock = DefaultVectorsPerBlock
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}

	h := Header{
		Version:         Version,
		Compression:     opts.Compression,
		Metric:          opts.Metric,
		Dim:             dim,
		Count:           len(docIDs),
		VectorsPerBlock: opts.VectorsPerBlock,
		Blocks:          blockCount(len(docIDs), opts.VectorsPerBlock),
	}

	cw := hash.NewWriter(w)
	stats := WriteStats{Blocks: h.Blocks, RawBytes: int64(len(data)) * model.BytesPerFloat32}

	if _, err := cw.Write(h.encode()); err != nil {
		return stats, err
	}

	ids := make([]byte, 0, len(docIDs)*4)
	for _, id := range docIDs {
		ids = binary.LittleEndian.AppendUint32(ids, uint32(id))
	}
	framed, err := compress.Block(ids, opts.Compression)
	if err != nil {
		return stats, err
	}
	if _, err := cw.Write(framed); err != nil {
		return stats, err
	}

	offsets := make([]uint64, 0, h.Blocks)
	perBlock := opts.VectorsPerBlock * dim

	// Compress one window of blocks at a time so memory stays bounded.
	for first := 0; first < h.Blocks; first += opts.Parallelism {
		window := make([][]byte, min(opts.Parallelism, h.Blocks-first))

		g, gctx := errgroup.WithContext(ctx)
		for i := range window {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := (first + i) * perBlock
				end := min(start+perBlock, len(data))
				raw := encodeVectors(data[start:end], dim, opts.Metric == distance.MetricCosine)

				b, err := compress.Block(raw, opts.Compression)
				if err != nil {
					return fmt.Errorf("segment: compress block %d: %w", first+i, err)
				}
				window[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		for _, b := range window {
			offsets = append(offsets, uint64(cw.Written())) //nolint:gosec // non-negative
			if _, err := cw.Write(b); err != nil {
				return stats, err
			}
		}
	}

	tableOffset := uint64(cw.Written()) //nolint:gosec // non-negative
	table := make([]byte, 0, len(offsets)*8+8)
	for _, off := range offsets {
		table = binary.LittleEndian.AppendUint64(table, off)
	}
	table = binary.LittleEndian.AppendUint64(table, tableOffset)
	if _, err := cw.Write(table); err != nil {
		return stats, err
	}

	stats.Checksum = cw.Sum32()
	tail := binary.LittleEndian.AppendUint32(nil, stats.Checksum)
	tail = append(tail, Magic...)
	if _, err := cw.Write(tail); err != nil {
		return stats, err
	}

	stats.Bytes = cw.Written()
	return stats, nil
}

func encodeVectors(vecs []float32, dim int, normalize bool) []byte {
	out := make([]byte, 0, len(vecs)*4)
	if !normalize {
		for _, f := range vecs {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		return out
	}

	for i := 0; i < len(vecs); i += dim {
		v, ok := distance.NormalizeL2Copy(vecs[i : i+dim])
		if !ok {
			v = vecs[i : i+dim]
		}
		for _, f := range v {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out
}
