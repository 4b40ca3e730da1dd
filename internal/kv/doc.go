// Package kv provides the key-value storage that stands in for a device's
// local storage.
//
// The scene persists exactly one JSON document under a fixed key, so the
// Storage interface is deliberately small: Get, Set, Remove and Close.
//
// Drivers:
//   - memory: process-local map (tests, throwaway runs)
//   - file: one file per key, written atomically (temp file + rename + dir sync)
//   - sqlite: a kv table in a WAL-mode SQLite database
//   - s3: one object per key in an S3-compatible bucket
//   - postgres: a kv table in Postgres via the pgx database/sql driver
//
// Guard wraps any driver and turns the first platform path fault (missing or
// read-only directory, permission denied, disk full) into a permanent,
// logged-once shutdown of storage for the rest of the process.
package kv
