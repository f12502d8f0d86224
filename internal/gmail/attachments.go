package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/postamail/posta/internal/model"
)

const (
	// MaxInlineImageSize is the size ceiling for inline image prefetch.
	MaxInlineImageSize = 100_000
	// MaxInlineImages is how many image attachments per thread are
	// prefetched for immediate display.
	MaxInlineImages = 3
)

// ExtractAttachments walks a message's part tree, no depth limit, and
// returns one descriptor per part that has both a positive body size and an
// attachment ID. Parts failing either check contribute nothing, but their
// children are still visited.
func ExtractAttachments(messageID string, payload *gmail.MessagePart) []model.Attachment {
	var attachments []model.Attachment
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Size <= 0 || part.Body.AttachmentId == "" {
			return
		}

		contentID := contentIDHeader(part)
		attachments = append(attachments, model.Attachment{
			MessageID:    messageID,
			AttachmentID: part.Body.AttachmentId,
			Filename:     attachmentFilename(part, contentID),
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
			ContentID:    contentID,
		})
	})
	return attachments
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// attachmentFilename returns the part's declared filename, or synthesizes
// one from the Content-ID or a generic stem plus the MIME subtype.
func attachmentFilename(part *gmail.MessagePart, contentID string) string {
	if part.Filename != "" {
		return part.Filename
	}

	subtype := "bin"
	if _, after, found := strings.Cut(part.MimeType, "/"); found && after != "" {
		subtype = after
	}

	if contentID != "" {
		return contentID + "." + subtype
	}
	return "attachment." + subtype
}

// contentIDHeader returns the part's Content-ID header without the
// surrounding angle brackets.
func contentIDHeader(part *gmail.MessagePart) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, "Content-ID") {
			return strings.Trim(h.Value, "<>")
		}
	}
	return ""
}

// headerValue returns the first header with the given name, case-insensitive.
func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	// Remove path separators and other potentially dangerous characters
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
