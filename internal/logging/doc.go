// Package logging provides slog attribute helpers shared across the codebase.
//
// Log lines carry a small, fixed vocabulary of attribute keys (operation,
// service, account, thread_id, card_id, status, error) so that entries from
// the sync pipeline, the command surface, and the loopback server can be
// correlated. Account emails never appear in logs directly; use UserHash or
// Domain instead.
package logging
