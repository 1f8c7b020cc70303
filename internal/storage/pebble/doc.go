// Package pebblestore wraps Pebble with the durability policy and small
// helpers the local engine's log store needs. It keeps Pebble types at the
// edges (batches, iterators) and owns WAL fsync behavior centrally.
package pebblestore
