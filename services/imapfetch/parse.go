package imapfetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/inboxforge/syncengine/internal/utils"
)

// parseMessage turns one fetched IMAP message into a RawMessage, preferring
// enmime's parse of the full RFC822 body (which gives clean text/HTML parts
// and a complete header map) and falling back to the envelope alone if the
// body section wasn't fetched or enmime can't parse it.
func parseMessage(msg *imap.Message) (*RawMessage, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, fmt.Errorf("imapfetch: message missing envelope")
	}

	rm := &RawMessage{
		UID:         msg.Uid,
		MessageID:   strings.Trim(msg.Envelope.MessageId, "<>"),
		Subject:     msg.Envelope.Subject,
		ToAddresses: addressList(msg.Envelope.To),
		CcAddresses: addressList(msg.Envelope.Cc),
		BccAddresses: addressList(msg.Envelope.Bcc),
		ReceivedAt:  utils.TimeOrNowFromPtr(&msg.Envelope.Date),
		SizeBytes:   int64(msg.Size),
	}

	if len(msg.Envelope.From) > 0 {
		rm.FromName = msg.Envelope.From[0].PersonalName
		rm.FromAddress = strings.ToLower(msg.Envelope.From[0].Address())
	}

	rm.InReplyTo, rm.References = parseReferences(msg.Envelope.InReplyTo)

	body := fullBody(msg)
	rm.RawBytes = body
	if len(body) == 0 {
		rm.Headers = map[string][]string{}
		return rm, nil
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(body))
	if err != nil {
		rm.Headers = map[string][]string{}
		return rm, nil
	}

	rm.BodyText = envelope.Text
	rm.BodyHTML = envelope.HTML
	rm.Headers = make(map[string][]string, len(envelope.GetHeaderKeys()))
	for _, key := range envelope.GetHeaderKeys() {
		rm.Headers[key] = envelope.GetHeaderValues(key)
	}

	// enmime's References header, when present, is a more complete
	// ancestor chain than the envelope's bare In-Reply-To.
	if refs, ok := rm.Headers["References"]; ok && len(refs) > 0 {
		rm.References = utils.ParseMessageIDList(strings.Join(refs, " "))
	}

	return rm, nil
}

func fullBody(msg *imap.Message) []byte {
	for _, literal := range msg.Body {
		if literal == nil {
			continue
		}
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(literal); err == nil {
			return buf.Bytes()
		}
	}
	return nil
}

func parseReferences(inReplyTo string) (string, []string) {
	refs := utils.ParseMessageIDList(inReplyTo)
	if len(refs) == 0 {
		return "", nil
	}
	return refs[0], refs
}

func addressList(addrs []*imap.Address) []string {
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.MailboxName == "" || a.HostName == "" {
			continue
		}
		result = append(result, strings.ToLower(a.Address()))
	}
	return result
}
