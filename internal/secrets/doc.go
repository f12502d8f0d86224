// Package secrets stores OAuth refresh tokens in the OS keychain, with an
// encrypted file backend as the fallback on systems without one. Tokens are
// keyed by account email so reconnecting an account overwrites its old token.
package secrets
