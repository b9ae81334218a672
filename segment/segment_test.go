package segment

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstream/blobstore"
	"github.com/hupe1980/vecstream/catalog"
	"github.com/hupe1980/vecstream/distance"
	"github.com/hupe1980/vecstream/internal/compress"
	"github.com/hupe1980/vecstream/internal/hash"
	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/native"
	"github.com/hupe1980/vecstream/resource"
)

func testData(n, dim int) ([]model.DocID, []float32) {
	ids := make([]model.DocID, n)
	data := make([]float32, n*dim)
	for i := range ids {
		ids[i] = model.DocID(i * 3)
		for j := 0; j < dim; j++ {
			data[i*dim+j] = float32(i) + float32(j)*0.25
		}
	}
	return ids, data
}

func TestWriteDecode(t *testing.T) {
	for _, ct := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
		t.Run(ct.String(), func(t *testing.T) {
			ids, data := testData(100, 8)

			var buf bytes.Buffer
			stats, err := Write(context.Background(), &buf, ids, data, 8, WriterOptions{
				Compression:     ct,
				Metric:          distance.MetricL2,
				VectorsPerBlock: 16,
				Parallelism:     3,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), stats.Bytes)
			assert.Equal(t, int64(100*8*4), stats.RawBytes)
			assert.Equal(t, 7, stats.Blocks)

			r, err := Decode(buf.Bytes())
			require.NoError(t, err)
			h := r.Header()
			assert.Equal(t, 8, h.Dim)
			assert.Equal(t, 100, h.Count)
			assert.Equal(t, 7, h.Blocks)
			assert.Equal(t, ct, h.Compression)
			assert.Equal(t, stats.Checksum, r.Checksum())
			assert.Equal(t, ids, r.DocIDs())
			for i := 0; i < 100; i++ {
				assert.Equal(t, data[i*8:(i+1)*8], r.Vector(i))
			}
		})
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, nil, nil, 4, WriterOptions{})
	require.NoError(t, err)

	r, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	hits, err := r.Search([]float32{1, 2, 3, 4}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestWrite_InvalidInput(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, []model.DocID{1}, []float32{1, 2}, 3, WriterOptions{})
	require.Error(t, err)

	_, err = Write(context.Background(), &buf, nil, nil, 0, WriterOptions{})
	require.Error(t, err)
}

func TestDecode_DetectsCorruption(t *testing.T) {
	ids, data := testData(10, 4)
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, ids, data, 4, WriterOptions{Compression: compress.LZ4})
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		b := bytes.Clone(buf.Bytes())
		b[headerSize+3] ^= 0xff
		_, err := Decode(b)
		require.ErrorIs(t, err, ErrChecksum)
	})

	t.Run("bad magic", func(t *testing.T) {
		b := bytes.Clone(buf.Bytes())
		copy(b[len(b)-4:], "XXXX")
		_, err := Decode(b)
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decode(buf.Bytes()[:20])
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad version", func(t *testing.T) {
		b := bytes.Clone(buf.Bytes())
		binary.LittleEndian.PutUint16(b[4:], 9)
		// Recompute the checksum so only the version is wrong.
		sum := hash.CRC32C(b[:len(b)-8])
		binary.LittleEndian.PutUint32(b[len(b)-8:], sum)
		_, err := Decode(b)
		require.ErrorIs(t, err, ErrInvalidVersion)
	})
}

func TestSearch(t *testing.T) {
	ids := []model.DocID{10, 20, 30, 40}
	data := []float32{
		0, 0,
		1, 0,
		0, 2,
		3, 3,
	}

	tests := []struct {
		metric distance.Metric
		query  []float32
		want   []model.DocID
	}{
		{distance.MetricL2, []float32{0.9, 0}, []model.DocID{20, 10}},
		{distance.MetricDot, []float32{1, 1}, []model.DocID{40, 30}},
		{distance.MetricCosine, []float32{0, 5}, []model.DocID{30, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			var buf bytes.Buffer
			_, err := Write(context.Background(), &buf, ids, data, 2, WriterOptions{Metric: tt.metric, VectorsPerBlock: 3})
			require.NoError(t, err)

			r, err := Decode(buf.Bytes())
			require.NoError(t, err)

			hits, err := r.Search(tt.query, 2)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, tt.want, []model.DocID{hits[0].DocID, hits[1].DocID})
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	ids, data := testData(3, 4)
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, ids, data, 4, WriterOptions{})
	require.NoError(t, err)
	r, err := Decode(buf.Bytes())
	require.NoError(t, err)

	_, err = r.Search([]float32{1}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = r.Search([]float32{1, 2, 3, 4}, 0)
	require.ErrorIs(t, err, ErrInvalidK)
}

func TestWrite_CosineStoresNormalized(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(context.Background(), &buf, []model.DocID{1, 2}, []float32{3, 4, 0, 0}, 2, WriterOptions{Metric: distance.MetricCosine})
	require.NoError(t, err)

	r, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, r.Vector(0), 1e-6)
	assert.Equal(t, []float32{0, 0}, r.Vector(1))
}

func fill(t *testing.T, m *native.Memory, n, dim int) (model.Handle, []model.DocID) {
	t.Helper()
	ids, data := testData(n, dim)
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = data[i*dim : (i+1)*dim]
	}
	h, err := m.StoreVectorData(context.Background(), model.NoHandle, vecs, int64(n*dim))
	require.NoError(t, err)
	return h, ids
}

func TestBuilder_BuildsAndRegisters(t *testing.T) {
	ctx := context.Background()
	mem := native.NewMemory(native.WithHeapBuffers())
	defer mem.Close()

	store := blobstore.NewMemoryStore()
	cat := catalog.NewMemoryCatalog()
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 1})

	h, ids := fill(t, mem, 50, 8)

	b := NewBuilder(mem, store,
		WithCatalog(cat),
		WithResourceController(rc),
		WithCompression(compress.ZSTD),
		WithVectorsPerBlock(16),
	)
	bc := native.BuildContext{Segment: "seg-1", Field: "embedding", Metric: distance.MetricL2}
	require.NoError(t, b.BuildIndex(ctx, bc, h, ids, 8))

	// The builder owns the buffer after a successful build.
	_, err := mem.View(h)
	require.ErrorIs(t, err, native.ErrUnknownHandle)

	r, err := Open(ctx, store, "segments/seg-1/embedding.vseg")
	require.NoError(t, err)
	assert.Equal(t, ids, r.DocIDs())

	hits, err := r.Search(r.Vector(7), 1)
	require.NoError(t, err)
	assert.Equal(t, ids[7], hits[0].DocID)

	e, err := cat.Get(ctx, "seg-1", "embedding")
	require.NoError(t, err)
	assert.Equal(t, "segments/seg-1/embedding.vseg", e.Blob)
	assert.Equal(t, 50, e.Count)
	assert.Equal(t, 8, e.Dimension)
	assert.Equal(t, "zstd", e.Compression)
	assert.Equal(t, "L2", e.Metric)
	assert.Equal(t, r.Size(), e.Bytes)
	assert.Equal(t, r.Checksum(), e.Checksum)
}

func TestBuilder_RowMismatchKeepsBuffer(t *testing.T) {
	mem := native.NewMemory(native.WithHeapBuffers())
	defer mem.Close()

	h, ids := fill(t, mem, 5, 4)
	b := NewBuilder(mem, blobstore.NewMemoryStore())

	err := b.BuildIndex(context.Background(), native.BuildContext{Segment: "s", Field: "f"}, h, ids[:4], 4)
	require.ErrorIs(t, err, ErrRowMismatch)

	_, err = mem.View(h)
	require.NoError(t, err)
}

func TestBuilder_UnknownHandle(t *testing.T) {
	mem := native.NewMemory(native.WithHeapBuffers())
	defer mem.Close()

	b := NewBuilder(mem, blobstore.NewMemoryStore())
	err := b.BuildIndex(context.Background(), native.BuildContext{Segment: "s", Field: "f"}, 42, []model.DocID{1}, 4)
	require.ErrorIs(t, err, native.ErrUnknownHandle)
}

func TestBuilder_DuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	mem := native.NewMemory(native.WithHeapBuffers())
	defer mem.Close()

	cat := catalog.NewMemoryCatalog()
	b := NewBuilder(mem, blobstore.NewMemoryStore(), WithCatalog(cat))
	bc := native.BuildContext{Segment: "s", Field: "f"}

	h1, ids := fill(t, mem, 3, 2)
	require.NoError(t, b.BuildIndex(ctx, bc, h1, ids, 2))

	h2, ids := fill(t, mem, 3, 2)
	err := b.BuildIndex(ctx, bc, h2, ids, 2)
	require.ErrorIs(t, err, catalog.ErrAlreadyExists)

	_, err = mem.View(h2)
	require.NoError(t, err)
}

type failingStore struct {
	blobstore.BlobStore
	aborted bool
}

func (s *failingStore) Create(context.Context, string) (blobstore.WritableBlob, error) {
	return &failingBlob{store: s}, nil
}

type failingBlob struct {
	store *failingStore
}

func (b *failingBlob) Write([]byte) (int, error) { return 0, errors.New("disk full") }
func (b *failingBlob) Close() error              { return fmt.Errorf("unexpected close") }
func (b *failingBlob) Abort() error {
	b.store.aborted = true
	return nil
}

func TestBuilder_WriteFailureAborts(t *testing.T) {
	mem := native.NewMemory(native.WithHeapBuffers())
	defer mem.Close()

	store := &failingStore{BlobStore: blobstore.NewMemoryStore()}
	b := NewBuilder(mem, store, WithNameFunc(func(bc native.BuildContext) string { return bc.Field }))

	h, ids := fill(t, mem, 3, 2)
	err := b.BuildIndex(context.Background(), native.BuildContext{Segment: "s", Field: "f"}, h, ids, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, store.aborted)

	_, err = mem.View(h)
	require.NoError(t, err)
}

func TestOpen_LocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	ids, data := testData(20, 4)
	var buf bytes.Buffer
	_, err := Write(ctx, &buf, ids, data, 4, WriterOptions{Compression: compress.LZ4})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "a.vseg", buf.Bytes()))

	r, err := Open(ctx, store, "a.vseg")
	require.NoError(t, err)
	assert.Equal(t, ids, r.DocIDs())

	_, err = Open(ctx, store, "missing.vseg")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
