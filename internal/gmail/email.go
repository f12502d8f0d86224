package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
	gmail "google.golang.org/api/gmail/v1"
)

// EmailMessage describes an outbound email. From must be the account's own
// address; the server rewrites it if it does not match an allowed alias.
type EmailMessage struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// SendEmail sends msg and returns the new message ID.
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (string, error) {
	raw, err := buildRFC2822(msg, nil)
	if err != nil {
		return "", err
	}
	return c.sendRaw(ctx, raw, "")
}

// ReplyToEmail sends msg as a reply within threadID. origMessageID is the
// RFC 2822 Message-ID of the message being replied to; it becomes the
// In-Reply-To and References headers so clients keep the conversation
// threaded. The subject is prefixed with "Re:" if it is not already.
func (c *Client) ReplyToEmail(ctx context.Context, threadID, origMessageID string, msg *EmailMessage) (string, error) {
	reply := *msg
	if !strings.HasPrefix(strings.ToLower(reply.Subject), "re:") {
		reply.Subject = "Re: " + reply.Subject
	}

	headers := map[string]string{}
	if origMessageID != "" {
		headers["In-Reply-To"] = origMessageID
		headers["References"] = origMessageID
	}

	raw, err := buildRFC2822(&reply, headers)
	if err != nil {
		return "", err
	}
	return c.sendRaw(ctx, raw, threadID)
}

// CreateDraft stores msg as a draft and returns the draft ID.
func (c *Client) CreateDraft(ctx context.Context, msg *EmailMessage) (string, error) {
	raw, err := buildRFC2822(msg, nil)
	if err != nil {
		return "", err
	}

	req := map[string]any{
		"message": map[string]any{
			"raw": base64.RawURLEncoding.EncodeToString(raw),
		},
	}
	var draft gmail.Draft
	if err := c.postJSON(ctx, "create_draft", c.baseURL+"/drafts", req, &draft); err != nil {
		return "", fmt.Errorf("creating draft: %w", err)
	}
	return draft.Id, nil
}

// sendRaw submits an RFC 2822 message through messages/send. threadID, when
// non-empty, attaches the message to an existing thread.
func (c *Client) sendRaw(ctx context.Context, raw []byte, threadID string) (string, error) {
	req := map[string]any{
		"raw": base64.RawURLEncoding.EncodeToString(raw),
	}
	if threadID != "" {
		req["threadId"] = threadID
	}

	var sent gmail.Message
	if err := c.postJSON(ctx, "send", c.baseURL+"/messages/send", req, &sent); err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	return sent.Id, nil
}

// buildRFC2822 renders msg into wire format with the enmime builder.
func buildRFC2822(msg *EmailMessage, extraHeaders map[string]string) ([]byte, error) {
	if msg.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	builder := enmime.Builder().
		From("", msg.From).
		ToAddrs(toAddresses(msg.To)).
		Subject(msg.Subject)

	if len(msg.Cc) > 0 {
		builder = builder.CCAddrs(toAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		builder = builder.BCCAddrs(toAddresses(msg.Bcc))
	}

	if msg.IsHTML {
		builder = builder.HTML([]byte(msg.Body))
	} else {
		builder = builder.Text([]byte(msg.Body))
	}

	for name, value := range extraHeaders {
		builder = builder.Header(name, value)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building MIME message: %w", err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encoding MIME message: %w", err)
	}
	return buf.Bytes(), nil
}

func toAddresses(addrs []string) []mail.Address {
	out := make([]mail.Address, len(addrs))
	for i, a := range addrs {
		out[i] = mail.Address{Address: a}
	}
	return out
}

// ModifyThreadLabels adds and removes label IDs on a thread.
func (c *Client) ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error {
	req := &gmail.ModifyThreadRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	u := c.baseURL + "/threads/" + threadID + "/modify"
	if err := c.postJSON(ctx, "modify", u, req, nil); err != nil {
		return fmt.Errorf("modifying thread %s: %w", threadID, err)
	}
	return nil
}

// MarkThreadRead removes the UNREAD label from every message in the thread.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	return c.ModifyThreadLabels(ctx, threadID, nil, []string{"UNREAD"})
}

// MarkThreadUnread adds the UNREAD label to the thread.
func (c *Client) MarkThreadUnread(ctx context.Context, threadID string) error {
	return c.ModifyThreadLabels(ctx, threadID, []string{"UNREAD"}, nil)
}

// ArchiveThread archives a thread by removing the INBOX label.
func (c *Client) ArchiveThread(ctx context.Context, threadID string) error {
	return c.ModifyThreadLabels(ctx, threadID, nil, []string{"INBOX"})
}

// TrashThread moves a thread to the trash.
func (c *Client) TrashThread(ctx context.Context, threadID string) error {
	u := c.baseURL + "/threads/" + threadID + "/trash"
	if err := c.postJSON(ctx, "trash", u, struct{}{}, nil); err != nil {
		return fmt.Errorf("trashing thread %s: %w", threadID, err)
	}
	return nil
}

// GetMessagePlainText fetches one message and extracts its plain-text body.
// The boolean is false when the message has no decodable text/plain part.
func (c *Client) GetMessagePlainText(ctx context.Context, messageID string) (string, bool, error) {
	var msg gmail.Message
	u := c.baseURL + "/messages/" + messageID + "?format=full"
	if err := c.getJSON(ctx, "get", u, &msg); err != nil {
		return "", false, fmt.Errorf("getting message %s: %w", messageID, err)
	}
	body, ok := ExtractPlainTextBody(&msg)
	return body, ok, nil
}
