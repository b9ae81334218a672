package dynamodb

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstream/catalog"
)

// fakeClient is an in-memory DynamoDB table keyed by (segment, field).
type fakeClient struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	failPut  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func s(item map[string]types.AttributeValue, name string) string {
	return item[name].(*types.AttributeValueMemberS).Value
}

func itemKey(item map[string]types.AttributeValue) string {
	return s(item, attrSegment) + "\x00" + s(item, attrField)
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPut != nil {
		return nil, f.failPut
	}
	k := itemKey(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(#f)" {
		if _, ok := f.items[k]; ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeClient) page(match func(map[string]types.AttributeValue) bool, start map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	var keys []string
	for k, item := range f.items {
		if match(item) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	i := 0
	if start != nil {
		after := itemKey(start)
		for i < len(keys) && keys[i] <= after {
			i++
		}
	}
	end := min(i+f.pageSize, len(keys))

	var items []map[string]types.AttributeValue
	for _, k := range keys[i:end] {
		items = append(items, f.items[k])
	}
	var last map[string]types.AttributeValue
	if end < len(keys) {
		item := f.items[keys[end-1]]
		last = map[string]types.AttributeValue{attrSegment: item[attrSegment], attrField: item[attrField]}
	}
	return items, last
}

func (f *fakeClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	segment := in.ExpressionAttributeValues[":s"].(*types.AttributeValueMemberS).Value
	items, last := f.page(func(item map[string]types.AttributeValue) bool { return s(item, attrSegment) == segment }, in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeClient) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, last := f.page(func(map[string]types.AttributeValue) bool { return true }, in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: last}, nil
}

func TestCatalog_RegisterGet(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(newFakeClient(), "catalog")

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := catalog.Entry{
		Segment:     "seg-1",
		Field:       "embedding",
		Blob:        "segments/seg-1/embedding.vseg",
		Metric:      "cosine",
		Dimension:   768,
		Count:       100000,
		Compression: "zstd",
		Bytes:       307200000,
		Checksum:    0xDEADBEEF,
		CreatedAt:   created,
	}
	require.NoError(t, c.Register(ctx, want))

	got, err := c.Get(ctx, "seg-1", "embedding")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = c.Get(ctx, "seg-1", "other")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCatalog_RegisterOnce(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(newFakeClient(), "catalog")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Register(ctx, catalog.Entry{Segment: "s", Field: "f"})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, catalog.ErrAlreadyExists)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCatalog_RegisterSetsCreatedAt(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(newFakeClient(), "catalog")
	require.NoError(t, c.Register(ctx, catalog.Entry{Segment: "s", Field: "f"}))

	e, err := c.Get(ctx, "s", "f")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Minute)
}

func TestCatalog_RegisterErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	c := NewCatalog(client, "catalog")

	assert.ErrorIs(t, c.Register(ctx, catalog.Entry{Segment: "s"}), catalog.ErrInvalidEntry)

	boom := errors.New("throttled")
	client.failPut = boom
	err := c.Register(ctx, catalog.Entry{Segment: "s", Field: "f"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, catalog.ErrAlreadyExists)
}

func TestCatalog_ListPaginates(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(newFakeClient(), "catalog")

	for _, k := range [][2]string{{"b", "x"}, {"a", "z"}, {"a", "y"}, {"b", "w"}, {"a", "x"}} {
		require.NoError(t, c.Register(ctx, catalog.Entry{Segment: k[0], Field: k[1]}))
	}

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	var keys []string
	for _, e := range all {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []string{"a/x", "a/y", "a/z", "b/w", "b/x"}, keys)

	a, err := c.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, a, 3)

	none, err := c.List(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalog_Integration(t *testing.T) {
	table := os.Getenv("DYNAMODB_TABLE")
	if table == "" {
		t.Skip("Skipping DynamoDB integration test: DYNAMODB_TABLE not set")
	}

	ctx := context.Background()
	c, err := New(ctx, table)
	require.NoError(t, err)

	seg := "it-" + time.Now().Format("20060102150405.000000000")
	require.NoError(t, c.Register(ctx, catalog.Entry{Segment: seg, Field: "vec", Dimension: 3}))
	assert.ErrorIs(t, c.Register(ctx, catalog.Entry{Segment: seg, Field: "vec"}), catalog.ErrAlreadyExists)

	e, err := c.Get(ctx, seg, "vec")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Dimension)
}
