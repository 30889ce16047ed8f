package mbox

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	nmail "net/mail"
	"strings"

	"github.com/mezze/backend/internal/infrastructure/sources/mail"
)

var headerDecoder = &mime.WordDecoder{}

// parseMessage reads one RFC 5322 message into the shared mail shape.
// Takeout exports carry the original Gmail labels in X-Gmail-Labels.
func parseMessage(r io.Reader, index int) (mail.Message, error) {
	parsed, err := nmail.ReadMessage(r)
	if err != nil {
		return mail.Message{}, err
	}
	header := parsed.Header

	msg := mail.Message{
		ID:      mail.CleanMessageID(header.Get("Message-Id"), index),
		Subject: decodeHeader(header.Get("Subject")),
		From:    decodeHeader(header.Get("From")),
		To:      decodeHeader(header.Get("To")),
	}
	if replyTo := header.Get("In-Reply-To"); replyTo != "" {
		msg.ThreadID = mail.CleanMessageID(replyTo, index)
	} else {
		msg.ThreadID = msg.ID
	}
	if d, err := header.Date(); err == nil {
		msg.Date = d
	}
	if labels := header.Get("X-Gmail-Labels"); labels != "" {
		for _, l := range strings.Split(labels, ",") {
			if l = strings.TrimSpace(l); l != "" {
				msg.Labels = append(msg.Labels, l)
			}
		}
	}

	collectBody(parsed.Body, header.Get("Content-Type"), header.Get("Content-Transfer-Encoding"), "", &msg)
	return msg, nil
}

// collectBody walks the MIME tree, keeping the first text/plain and
// text/html parts and skipping attachments. Order data rides in bodies.
func collectBody(r io.Reader, contentType, encoding, disposition string, msg *mail.Message) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			collectBody(part,
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				part.Header.Get("Content-Disposition"),
				msg)
		}
	}

	if strings.Contains(strings.ToLower(disposition), "attachment") {
		return
	}

	switch {
	case mediaType == "text/html" && msg.BodyHTML == "":
		if content, err := decodeContent(r, encoding); err == nil {
			msg.BodyHTML = content
		}
	case mediaType == "text/plain" && msg.BodyText == "":
		if content, err := decodeContent(r, encoding); err == nil {
			msg.BodyText = content
		}
	}
}

func decodeContent(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeHeader(value string) string {
	if decoded, err := headerDecoder.DecodeHeader(value); err == nil {
		return decoded
	}
	return value
}
