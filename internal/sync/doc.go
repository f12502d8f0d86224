// Package sync runs incremental mailbox synchronization from a persisted
// history cursor. With no cursor stored, a run establishes a fresh cursor and
// tells the caller to do a full listing; with a cursor, it drains the history
// feed and returns exactly the threads that changed.
package sync
