package bounce

import (
	"testing"

	"github.com/inboxforge/syncengine/internal/enum"
	"github.com/inboxforge/syncengine/services/imapfetch"
)

func TestParseRFC3464StyleBounce(t *testing.T) {
	body := `
This is the mail system at host example.com.

I'm sorry to have to inform you that your message could not be
delivered to one or more recipients.

Final-Recipient: rfc822; jane.doe@example.com
Action: failed
Status: 5.1.1 (bad destination mailbox address)
Diagnostic-Code: smtp; 550 5.1.1 The email account that you tried to reach does not exist
`
	msg := &imapfetch.RawMessage{Subject: "Undelivered Mail Returned to Sender", BodyText: body}

	got := Parse(msg, true)
	if got == nil {
		t.Fatalf("Parse() = nil, want a Result")
	}
	if got.FailedRecipient != "jane.doe@example.com" {
		t.Errorf("FailedRecipient = %q, want %q", got.FailedRecipient, "jane.doe@example.com")
	}
	if got.ErrorCode != "550" {
		t.Errorf("ErrorCode = %q, want %q", got.ErrorCode, "550")
	}
	if got.Type != enum.BounceHard {
		t.Errorf("Type = %v, want %v", got.Type, enum.BounceHard)
	}
	if got.Diagnostic == noDiagnosticPlaceholder {
		t.Errorf("Diagnostic fell back to placeholder, want extracted text")
	}
}

func TestParseSoftBounceMailboxFull(t *testing.T) {
	body := `
Undeliverable: mailbox full
Original-Recipient: rfc822;john@example.com
Your message could not be delivered because the recipient's mailbox is full.
452 4.2.2 Mailbox full
`
	msg := &imapfetch.RawMessage{Subject: "Delivery delayed", BodyText: body}

	got := Parse(msg, true)
	if got == nil {
		t.Fatalf("Parse() = nil, want a Result")
	}
	if got.FailedRecipient != "john@example.com" {
		t.Errorf("FailedRecipient = %q, want %q", got.FailedRecipient, "john@example.com")
	}
	if got.Type != enum.BounceSoft {
		t.Errorf("Type = %v, want %v", got.Type, enum.BounceSoft)
	}
}

func TestParseNoRecipientReturnsNil(t *testing.T) {
	msg := &imapfetch.RawMessage{Subject: "hello", BodyText: "just a normal message with no addresses at all"}
	if got := Parse(msg, true); got != nil {
		t.Errorf("Parse() = %+v, want nil", got)
	}
}

func TestParseRejectsSystemAndMXAddresses(t *testing.T) {
	msg := &imapfetch.RawMessage{
		Subject:  "bounce",
		BodyText: "Failed to deliver to mailer-daemon@example.com and mx.google.com relay at relay@mx.google.com",
	}
	if got := Parse(msg, true); got != nil {
		t.Errorf("Parse() = %+v, want nil (only excluded addresses present)", got)
	}
}

func TestParseUnknownCodeFallsBackToBodyHeuristic(t *testing.T) {
	msg := &imapfetch.RawMessage{
		Subject:  "bounce",
		BodyText: "Delivery to jane@example.com failed: user not found on this server",
	}
	got := Parse(msg, true)
	if got == nil {
		t.Fatalf("Parse() = nil, want a Result")
	}
	if got.ErrorCode != "UNKNOWN" {
		t.Errorf("ErrorCode = %q, want UNKNOWN", got.ErrorCode)
	}
	if got.Type != enum.BounceHard {
		t.Errorf("Type = %v, want %v (user not found heuristic)", got.Type, enum.BounceHard)
	}
}

func TestValidAddressRejectsMessageIDShapedLocal(t *testing.T) {
	if validAddress("a1b2c3d4e5f6a7b8@example.com") {
		t.Errorf("validAddress() accepted a message-id-shaped local part")
	}
}

func TestValidAddressRejectsUUIDLocal(t *testing.T) {
	if validAddress("550e8400-e29b-41d4-a716-446655440000@example.com") {
		t.Errorf("validAddress() accepted a UUID-shaped local part")
	}
}

func TestValidAddressRejectsBinaryExtension(t *testing.T) {
	if validAddress("report@example.pdf") {
		t.Errorf("validAddress() accepted an address ending in a binary extension")
	}
}

func TestValidAddressAcceptsOrdinaryAddress(t *testing.T) {
	if !validAddress("jane.doe@example.com") {
		t.Errorf("validAddress() rejected an ordinary address")
	}
}
