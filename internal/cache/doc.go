// Package cache is the local SQLite store backing the client: connected
// accounts, card definitions, per-account sync cursors, and cached card
// snapshots that let the UI paint instantly before fresh data arrives.
//
// The store is embedded (modernc.org/sqlite, no cgo) and serialized behind a
// single mutex. Callers never share transactions; every exported method is a
// complete unit of work.
package cache
