// Package model defines the data types shared between the sync pipeline,
// the local cache, and the command surface consumed by the UI shell.
//
// Threads are replaceable values: every fetch constructs them fresh from the
// wire representation, and a cached thread is simply overwritten by a newer
// one with the same remote ID. Cards are the only mutable aggregates; they
// are owned by the local cache and mirrored opportunistically to a remote
// key-value store.
package model
