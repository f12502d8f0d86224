// Package people backs the composer's address autocomplete with the People
// API, merging saved contacts and interaction-derived "other contacts" into
// one deduplicated list.
package people
