package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/vecstream/catalog"
)

const (
	attrSegment     = "segment"
	attrField       = "field"
	attrBlob        = "blob"
	attrMetric      = "metric"
	attrDimension   = "dimension"
	attrCount       = "count"
	attrCompression = "compression"
	attrBytes       = "bytes"
	attrChecksum    = "checksum"
	attrCreatedAt   = "created_at"
)

// Client is the subset of the DynamoDB API used by Catalog.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Catalog stores catalog entries in a DynamoDB table.
type Catalog struct {
	client Client
	table  string
}

var _ catalog.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog on table.
func NewCatalog(client Client, table string) *Catalog {
	return &Catalog{client: client, table: table}
}

// New creates a catalog using the default AWS configuration chain.
func New(ctx context.Context, table string, optFns ...func(*config.LoadOptions) error) (*Catalog, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}
	return NewCatalog(dynamodb.NewFromConfig(cfg), table), nil
}

// Register implements catalog.Catalog.
func (c *Catalog) Register(ctx context.Context, e catalog.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                marshal(e),
		ConditionExpression: aws.String("attribute_not_exists(#f)"),
		ExpressionAttributeNames: map[string]string{
			"#f": attrField,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s", catalog.ErrAlreadyExists, e.Key())
		}
		return fmt.Errorf("dynamodb: register %s: %w", e.Key(), err)
	}
	return nil
}

// Get implements catalog.Catalog.
func (c *Catalog) Get(ctx context.Context, segment, field string) (catalog.Entry, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			attrSegment: &types.AttributeValueMemberS{Value: segment},
			attrField:   &types.AttributeValueMemberS{Value: field},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("dynamodb: get %s/%s: %w", segment, field, err)
	}
	if len(out.Item) == 0 {
		return catalog.Entry{}, fmt.Errorf("%w: %s/%s", catalog.ErrNotFound, segment, field)
	}
	return unmarshal(out.Item)
}

// List implements catalog.Catalog. An empty segment scans the whole table.
func (c *Catalog) List(ctx context.Context, segment string) ([]catalog.Entry, error) {
	var (
		entries []catalog.Entry
		start   map[string]types.AttributeValue
	)

	for {
		var (
			items []map[string]types.AttributeValue
			last  map[string]types.AttributeValue
		)

		if segment == "" {
			out, err := c.client.Scan(ctx, &dynamodb.ScanInput{
				TableName:         aws.String(c.table),
				ExclusiveStartKey: start,
				ConsistentRead:    aws.Bool(true),
			})
			if err != nil {
				return nil, fmt.Errorf("dynamodb: scan: %w", err)
			}
			items, last = out.Items, out.LastEvaluatedKey
		} else {
			out, err := c.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(c.table),
				KeyConditionExpression: aws.String("#s = :s"),
				ExpressionAttributeNames: map[string]string{
					"#s": attrSegment,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":s": &types.AttributeValueMemberS{Value: segment},
				},
				ExclusiveStartKey: start,
				ConsistentRead:    aws.Bool(true),
			})
			if err != nil {
				return nil, fmt.Errorf("dynamodb: query %s: %w", segment, err)
			}
			items, last = out.Items, out.LastEvaluatedKey
		}

		for _, item := range items {
			e, err := unmarshal(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}

		if len(last) == 0 {
			break
		}
		start = last
	}

	catalog.Sort(entries)
	return entries, nil
}

func marshal(e catalog.Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrSegment:     &types.AttributeValueMemberS{Value: e.Segment},
		attrField:       &types.AttributeValueMemberS{Value: e.Field},
		attrBlob:        &types.AttributeValueMemberS{Value: e.Blob},
		attrMetric:      &types.AttributeValueMemberS{Value: e.Metric},
		attrDimension:   &types.AttributeValueMemberN{Value: strconv.Itoa(e.Dimension)},
		attrCount:       &types.AttributeValueMemberN{Value: strconv.Itoa(e.Count)},
		attrCompression: &types.AttributeValueMemberS{Value: e.Compression},
		attrBytes:       &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Bytes, 10)},
		attrChecksum:    &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(e.Checksum), 10)},
		attrCreatedAt:   &types.AttributeValueMemberS{Value: e.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
}

func unmarshal(item map[string]types.AttributeValue) (catalog.Entry, error) {
	var (
		e   catalog.Entry
		err error
	)

	str := func(name string) string {
		if v, ok := item[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	num := func(name string) int64 {
		v, ok := item[name].(*types.AttributeValueMemberN)
		if !ok || err != nil {
			return 0
		}
		n, perr := strconv.ParseInt(v.Value, 10, 64)
		if perr != nil {
			err = fmt.Errorf("dynamodb: attribute %s: %w", name, perr)
		}
		return n
	}

	e.Segment = str(attrSegment)
	e.Field = str(attrField)
	e.Blob = str(attrBlob)
	e.Metric = str(attrMetric)
	e.Compression = str(attrCompression)
	e.Dimension = int(num(attrDimension))
	e.Count = int(num(attrCount))
	e.Bytes = num(attrBytes)
	e.Checksum = uint32(num(attrChecksum)) //nolint:gosec // written from a uint32
	if ts := str(attrCreatedAt); ts != "" && err == nil {
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, ts)
	}
	if err != nil {
		return catalog.Entry{}, err
	}
	return e, nil
}
