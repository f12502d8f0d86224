package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"
)

// decodeWireBase64 decodes body payloads from the wire. The API uses the
// URL-safe base64 alphabet, usually without padding; older responses have
// been seen with the standard alphabet. Normalize to the standard alphabet,
// restore padding, and decode.
func decodeWireBase64(data string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("empty payload")
	}

	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(data)
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 payload: %w", err)
	}
	return decoded, nil
}

// decodeTextPart decodes a part's body data into a UTF-8 string. A decode
// failure or invalid UTF-8 yields ok=false rather than an error; body
// extraction is best effort.
func decodeTextPart(data string) (string, bool) {
	decoded, err := decodeWireBase64(data)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}

// ExtractPlainTextBody returns the best-effort text/plain body of a message.
// It checks the top-level payload, then the immediate parts, then descends
// one level into multipart/* parts. Deeper nesting is not searched. The
// second return value is false when no decodable text/plain part exists.
func ExtractPlainTextBody(msg *gmail.Message) (string, bool) {
	if msg == nil || msg.Payload == nil {
		return "", false
	}
	payload := msg.Payload

	if payload.MimeType == "text/plain" && payload.Body != nil {
		return decodeTextPart(payload.Body.Data)
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil {
			return decodeTextPart(part.Body.Data)
		}
	}

	for _, part := range payload.Parts {
		if !strings.HasPrefix(part.MimeType, "multipart/") {
			continue
		}
		for _, sub := range part.Parts {
			if sub.MimeType == "text/plain" && sub.Body != nil {
				return decodeTextPart(sub.Body.Data)
			}
		}
	}

	return "", false
}
