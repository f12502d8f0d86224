// Package google holds the OAuth plumbing shared by every Google API client
// in the app: the OAuth2 config, per-account token sources refreshed from the
// keychain, and authenticated HTTP clients.
package google
