package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	nmail "net/mail"
	"strings"

	ggmail "google.golang.org/api/gmail/v1"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/infrastructure/sources/mail"
)

// apiMailboxReader is the real Gmail API behind MailboxReader
type apiMailboxReader struct {
	svc *ggmail.Service

	labelID string
}

// ListMessageIDs resolves the label once, then pages through the message
// list until max or the last page
func (r *apiMailboxReader) ListMessageIDs(ctx context.Context, label, query string, max int64) ([]string, error) {
	labelID, err := r.resolveLabel(ctx, label)
	if err != nil {
		return nil, err
	}

	var ids []string
	pageToken := ""
	for int64(len(ids)) < max {
		call := r.svc.Users.Messages.List("me").
			Context(ctx).
			LabelIds(labelID).
			MaxResults(min64(100, max-int64(len(ids))))
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, ref := range resp.Messages {
			ids = append(ids, ref.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Messages) == 0 {
			break
		}
	}
	return ids, nil
}

// GetMessage fetches one full message and flattens its MIME tree
func (r *apiMailboxReader) GetMessage(ctx context.Context, id string) (mail.Message, error) {
	raw, err := r.svc.Users.Messages.Get("me", id).Context(ctx).Format("full").Do()
	if err != nil {
		return mail.Message{}, err
	}

	headers := map[string]string{}
	if raw.Payload != nil {
		for _, h := range raw.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	msg := mail.Message{
		ID:       raw.Id,
		ThreadID: raw.ThreadId,
		Subject:  headers["subject"],
		From:     headers["from"],
		To:       headers["to"],
		Labels:   raw.LabelIds,
	}
	if d, err := nmail.ParseDate(headers["date"]); err == nil {
		msg.Date = d
	}
	if raw.Payload != nil {
		collectParts(raw.Payload, &msg)
	}
	return msg, nil
}

func (r *apiMailboxReader) resolveLabel(ctx context.Context, label string) (string, error) {
	if r.labelID != "" {
		return r.labelID, nil
	}
	resp, err := r.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	for _, l := range resp.Labels {
		if strings.EqualFold(l.Name, label) {
			r.labelID = l.Id
			return r.labelID, nil
		}
	}
	return "", fmt.Errorf("%w: label %q not found in mailbox", ingestion.ErrSourceFormat, label)
}

// collectParts walks the MIME tree and keeps the first text/plain and
// text/html bodies. Attachments are ignored; order data rides in bodies.
func collectParts(part *ggmail.MessagePart, msg *mail.Message) {
	if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
		// the API emits unpadded base64url
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "="))
		if err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/html") && msg.BodyHTML == "":
				msg.BodyHTML = string(decoded)
			case strings.HasPrefix(part.MimeType, "text/plain") && msg.BodyText == "":
				msg.BodyText = string(decoded)
			}
		}
	}
	for _, child := range part.Parts {
		collectParts(child, msg)
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
