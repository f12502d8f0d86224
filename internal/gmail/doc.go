// Package gmail implements the Gmail REST client and the thread pipeline
// built on top of it.
//
// The package is organized as a stack of stages, leaves first:
//
//   - body.go and attachments.go turn a message's nested part tree into a
//     plain-text body and attachment descriptors
//   - reduce.go folds a raw thread (ordered message list) into the Thread
//     value the UI consumes, including inline-image prefetch and the
//     first-match calendar invite
//   - multipart.go is the batch codec: it builds multipart/mixed request
//     bodies and parses multipart responses, isolated from networking so the
//     text splitting is unit-testable
//   - batch.go is the fetch engine: chunked batch requests with per-chunk
//     sequential fallback and silent drop of unfetchable IDs
//   - history.go drains the history endpoint from a stored cursor and
//     distinguishes cursor expiry from other failures
//   - bucket.go groups reduced threads into the five fixed recency buckets
//
// The client speaks the REST surface directly over an OAuth2-authorized
// http.Client rather than going through the generated service bindings: the
// batch endpoint and the field-limited projections are not expressible
// through them. The generated types from google.golang.org/api/gmail/v1 are
// reused for JSON decoding, since they mirror the wire format exactly.
package gmail
