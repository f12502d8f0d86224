// Package mirror replicates card definitions to a remote key-value store so
// that a user's card layout follows them across machines. The store holds two
// documents: the full card list and a mapping from account IDs to account
// email addresses. The mapping is what makes cards portable; account IDs are
// machine-local, emails are not.
//
// Pushes are best effort and happen after every local card mutation. Pulls
// reconcile remote cards into the local store with remote winning on
// conflicts.
package mirror
