// Package store provides a single-table DynamoDB data access layer for the
// rental catalogue.
//
// All entity kinds (delegations, cars, bookings, users) share one table and
// are distinguished by composite keys and an item type tag. Keys follow the
// pattern:
//
//	pk = "KIND#<id>"
//	sk = "METADATA#<id>"
//	itemType = "<kind>"
//
// Key derivation is a pure function of the entity kind and identifier; see
// [Kind.Key] and [DecodeKey]. Identifiers are generated with [NewID] when the
// caller does not supply one.
//
// # Operations
//
// [Store] exposes the five primitives the catalogue is built on:
//
//   - [Store.Put] - idempotent upsert of a single item
//   - [Store.Get] / [Store.GetByKey] - point read, [ErrNotFound] on absence
//   - [Store.QueryPartition] - all items sharing a partition key
//   - [Store.QueryPartitionPrefix] - partition items whose sort key begins
//     with a prefix
//   - [Store.Scan] - full-table enumeration with an equality filter
//   - [Store.Delete] / [Store.DeleteByKey] - idempotent single-item delete
//
// QueryPartition never asks the backend for server-side ordering; callers
// that need ordered results must sort in memory. Scan is O(table size) and is
// meant for administrative listings, never for hot paths.
//
// # Reverse lookups
//
// [ReverseLookup] answers "items whose attribute equals X" either through a
// global secondary index or through a filtered scan, selected per attribute
// by [Config]. The two strategies return the same result sets; only latency
// differs.
//
// # Errors
//
// The package defines sentinel errors checked with errors.Is:
//
//   - [ErrNotFound] - item doesn't exist
//   - [ErrInvalidKey] - empty partition or sort key, rejected before I/O
//   - [ErrInvalidIdentifier] - empty identifier after generation
//   - [ErrKindMismatch] - stored type tag disagrees with the requested kind
//   - [ErrUnavailable] - backend failure, never retried internally
package store
