package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstream/blobstore"
)

// fakeClient is an in-memory S3 implementing the Client subset.
type fakeClient struct {
	mu       sync.Mutex
	objects  map[string][]byte
	uploads  map[string]map[int32][]byte
	pageSize int
	puts     int
	aborted  int
	nextID   int
	checksum []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		objects:  make(map[string][]byte),
		uploads:  make(map[string]map[int32][]byte),
		pageSize: 2,
	}
}

func (f *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if in.Range != nil {
		var start, end int
		if _, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		data = data[start : end+1]
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.puts++
	if in.ChecksumCRC32C != nil {
		f.checksum = append(f.checksum, *in.ChecksumCRC32C)
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeClient) CreateMultipartUpload(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.uploads[id] = make(map[int32][]byte)
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeClient) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	parts, ok := f.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, errors.New("no such upload")
	}
	n := aws.ToInt32(in.PartNumber)
	parts[n] = data
	return &s3.UploadPartOutput{ETag: aws.String(strconv.Itoa(int(n)))}, nil
}

func (f *fakeClient) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.UploadId)
	parts := f.uploads[id]

	numbers := make([]int32, 0, len(parts))
	for n := range parts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var buf bytes.Buffer
	for _, n := range numbers {
		buf.Write(parts[n])
	}
	f.objects[aws.ToString(in.Key)] = buf.Bytes()
	delete(f.uploads, id)
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeClient) AbortMultipartUpload(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, aws.ToString(in.UploadId))
	f.aborted++
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestStore_PutOpenRead(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "/segments/")

	require.NoError(t, store.Put(ctx, "s0.vseg", []byte("hello world")))
	assert.Contains(t, client.objects, "segments/s0.vseg")
	require.Len(t, client.checksum, 1)
	assert.Equal(t, crc32cBase64([]byte("hello world")), client.checksum[0])

	b, err := store.Open(ctx, "s0.vseg")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(11), b.Size())

	p := make([]byte, 5)
	n, err := b.ReadAt(ctx, p, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(p[:n]))

	n, err = b.ReadAt(ctx, make([]byte, 8), 6)
	assert.Equal(t, 5, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = b.ReadAt(ctx, p, 11)
	assert.ErrorIs(t, err, io.EOF)

	rc, err := b.ReadRange(ctx, 2, 3)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "llo", string(got))

	data, err := blobstore.Get(ctx, store, "s0.vseg")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestStore_OpenNotFound(t *testing.T) {
	store := NewStore(newFakeClient(), "bucket", "")
	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_ListPaginates(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "root")

	for _, name := range []string{"a/1", "a/2", "b/1", "a/3", "c"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}
	client.objects["other/x"] = []byte("x")

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2", "a/3", "b/1", "c"}, names)

	names, err = store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, names)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeClient(), "bucket", "")
	require.NoError(t, store.Put(ctx, "x", []byte("1")))
	require.NoError(t, store.Delete(ctx, "x"))
	require.NoError(t, store.Delete(ctx, "x"))
	_, err := store.Open(ctx, "x")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_CreateSinglePart(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "p")

	w, err := store.Create(ctx, "small")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed "))
	require.NoError(t, err)
	_, err = w.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "streamed content", string(client.objects["p/small"]))
	assert.ErrorIs(t, w.Close(), blobstore.ErrClosed)
	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, blobstore.ErrClosed)
}

func TestStore_CreateMultipart(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "", WithUploadConfig(UploadConfig{PartSize: 5 << 20, Concurrency: 2}))

	data := make([]byte, 11<<20)
	for i := range data {
		data[i] = byte(i % 251)
	}

	w, err := store.Create(ctx, "large")
	require.NoError(t, err)
	for off := 0; off < len(data); off += 1 << 20 {
		_, err := w.Write(data[off:min(off+1<<20, len(data))])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	require.Len(t, client.objects["large"], len(data))
	assert.True(t, bytes.Equal(data, client.objects["large"]))
	assert.Zero(t, client.puts)
}

func TestStore_CreateAbort(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "")

	w, err := store.Create(ctx, "partial")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial data"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	require.NoError(t, w.Abort())

	assert.NotContains(t, client.objects, "partial")
}

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket, WithPrefix(fmt.Sprintf("test-vecstream-%d/", time.Now().UnixNano())))
	require.NoError(t, err)

	w, err := store.Create(ctx, "blob")
	require.NoError(t, err)
	_, err = w.Write([]byte("integration"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := blobstore.Get(ctx, store, "blob")
	require.NoError(t, err)
	assert.Equal(t, "integration", string(data))
	require.NoError(t, store.Delete(ctx, "blob"))
}
