// Package catalog records the indexes built for each segment field.
//
// An index is registered at most once: a second Register for the same
// segment and field fails with ErrAlreadyExists, which makes concurrent
// builders of the same field safe. MemoryCatalog serves a single process;
// package catalog/dynamodb shares the registry through a DynamoDB table.
package catalog
