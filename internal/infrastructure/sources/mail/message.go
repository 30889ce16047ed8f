// Package mail turns order and invoice email into raw records. The gmail
// and mbox drivers fetch messages through different transports but hand
// the same Message shape to one extractor, so a Takeout archive replays
// exactly like the live mailbox.
package mail

import (
	"fmt"
	"strings"
	"time"
)

// Message is one fetched email, transport-independent
type Message struct {
	// ID is the cleaned message identity, stable across re-fetches
	ID string
	// ThreadID groups replies; falls back to ID
	ThreadID string
	Subject  string
	From     string
	To       string
	Date     time.Time
	BodyText string
	BodyHTML string
	Labels   []string
}

// CleanMessageID normalizes an RFC 5322 Message-ID into a source ref:
// angle brackets dropped, "@" replaced so the ref stays path- and
// query-safe. An absent ID falls back to the message's position.
func CleanMessageID(raw string, index int) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.ReplaceAll(id, "@", "_at_")
	if id == "" {
		return fmt.Sprintf("mbox-%d", index)
	}
	return id
}

// SenderName extracts the display name from a From header, falling back
// to the bare address when the header carries none.
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.LastIndex(from, "<"); i > 0 {
		name := strings.TrimSpace(from[:i])
		name = strings.Trim(name, `"`)
		if name != "" {
			return name
		}
	}
	return strings.Trim(from, "<>")
}
