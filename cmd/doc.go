// Package cmd implements the command-line interface for posta.
//
// This package provides the following commands:
//   - serve: Start the loopback backend server the desktop shell talks to
//   - sync: Run one incremental mail sync for an account
//   - accounts: Connect, list, and remove Google accounts
//   - version: Display version information
//
// Configuration is read from $XDG_CONFIG_HOME/posta/config.yaml and from
// POSTA_* environment variables; flags override both.
package cmd
