// Package commands is the operation surface the desktop shell calls. A
// Service owns the local store, the remote card mirror, the keychain and the
// per-account API clients, and exposes one method per user-visible action.
// The HTTP layer in internal/server is a thin JSON dispatcher over this
// package.
package commands
