package gmail

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// maxBatchSize is the batch endpoint's sub-request ceiling.
const maxBatchSize = 50

// newBatchBoundary generates a boundary token for a batch request body.
func newBatchBoundary() string {
	return "batch_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// buildThreadBatchBody assembles a multipart/mixed body with one sub-request
// per thread ID. Each sub-request is a raw HTTP GET for the thread detail
// endpoint, carrying the same projection the single-thread fetch uses.
// basePath is the API path prefix of the thread endpoint, e.g.
// "/gmail/v1/users/me".
func buildThreadBatchBody(threadIDs []string, basePath, boundary string) []byte {
	var b bytes.Buffer

	params := url.Values{}
	params.Set("format", "full")
	params.Set("fields", threadFields)
	query := params.Encode()

	for i, id := range threadIDs {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: application/http\r\n")
		b.WriteString("Content-ID: <item" + strconv.Itoa(i+1) + ">\r\n")
		b.WriteString("\r\n")
		b.WriteString("GET " + basePath + "/threads/" + url.PathEscape(id) + "?" + query + " HTTP/1.1\r\n")
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")

	return b.Bytes()
}

// BatchPart is one sub-response of a multipart batch response.
type BatchPart struct {
	StatusCode int
	Body       []byte
}

// boundaryFromContentType extracts the multipart boundary from a response's
// Content-Type header.
func boundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parsing content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("unexpected content type %q", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("content type %q carries no boundary", contentType)
	}
	return boundary, nil
}

// parseBatchResponse splits a multipart batch response on its boundary and
// extracts each sub-response's status code and JSON payload. Parts without a
// JSON payload are returned with a nil Body so callers can account for them.
// The splitting tolerates both CRLF and bare LF framing.
func parseBatchResponse(body []byte, boundary string) ([]BatchPart, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty batch response")
	}

	sections := bytes.Split(body, []byte("--"+boundary))
	if len(sections) < 2 {
		return nil, fmt.Errorf("boundary %q not found in batch response", boundary)
	}

	var parts []BatchPart
	for _, section := range sections {
		section = bytes.TrimSpace(section)
		if len(section) == 0 || bytes.Equal(section, []byte("--")) {
			continue
		}

		parts = append(parts, BatchPart{
			StatusCode: partStatusCode(section),
			Body:       partJSONPayload(section),
		})
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("batch response contained no parts")
	}
	return parts, nil
}

// partStatusCode finds the embedded HTTP status line of a sub-response.
// Parts without a recognizable status line default to 200: the payload
// search decides whether the part is usable.
func partStatusCode(section []byte) int {
	idx := bytes.Index(section, []byte("HTTP/1.1 "))
	if idx < 0 {
		return 200
	}
	rest := section[idx+len("HTTP/1.1 "):]
	if len(rest) < 3 {
		return 200
	}
	code, err := strconv.Atoi(string(rest[:3]))
	if err != nil {
		return 200
	}
	return code
}

// partJSONPayload locates the JSON body of a sub-response: the first blank
// line followed by an opening brace, through the last closing brace.
func partJSONPayload(section []byte) []byte {
	start := -1
	for _, sep := range []string{"\r\n\r\n{", "\n\n{"} {
		if idx := bytes.Index(section, []byte(sep)); idx >= 0 {
			start = idx + len(sep) - 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := bytes.LastIndexByte(section, '}')
	if end < start {
		return nil
	}
	return section[start : end+1]
}
