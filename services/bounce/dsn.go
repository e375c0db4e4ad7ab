package bounce

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
)

// deliveryStatusText walks a raw RFC 3464 multipart/report message
// looking for its message/delivery-status part, returning that part's
// body text when present. Mirrors the detection shape of
// ProcessDeliveryStatusNotification in evgeniySeleznev-email_sender's DSN
// handling: check each top-level part's content type for
// "delivery-status" before falling back to scanning the whole body.
func deliveryStatusText(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	m, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}

	mediaType, _, err := m.Header.ContentType()
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return "", false
	}

	mr := m.MultipartReader()
	if mr == nil {
		return "", false
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			return "", false
		}

		partType, _, err := part.Header.ContentType()
		if err != nil {
			continue
		}
		if !strings.Contains(partType, "delivery-status") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return "", false
		}
		return string(body), true
	}
}
