// Package dynamodb implements catalog.Catalog on an Amazon DynamoDB table.
//
// Registration uses a conditional put, so an index is recorded at most once
// even when several builders race on the same segment field.
//
// Table schema:
//   - Partition key: segment (string)
//   - Sort key: field (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecstream-catalog \
//	  --attribute-definitions AttributeName=segment,AttributeType=S AttributeName=field,AttributeType=S \
//	  --key-schema AttributeName=segment,KeyType=HASH AttributeName=field,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb
