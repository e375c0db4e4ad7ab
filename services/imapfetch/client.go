// Package imapfetch is the IMAP Fetcher (spec §4.1): it connects to one
// mailbox's IMAP server, authenticates, selects the inbox, searches for
// messages since the checkpoint, and returns them as RawMessage values.
package imapfetch

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/internal/errs"
	"github.com/inboxforge/syncengine/internal/models"
	"github.com/inboxforge/syncengine/internal/tracing"
)

// Connect dials and authenticates against a mailbox's IMAP server, using
// the timeouts from SyncConfig (spec §6.2). TLS is always used: spec §3's
// Mailbox model carries only host/port/username/password, no separate TLS
// toggle, so port 143 plaintext is never attempted.
func Connect(mailbox *models.Mailbox, password string, cfg *config.SyncConfig) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", mailbox.ImapHost, mailbox.ImapPort)

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	tlsConfig := &tls.Config{ServerName: mailbox.ImapHost}

	c, err := client.DialWithDialerTLS(dialer, addr, tlsConfig)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("connecting to %s: %w", addr, err))
	}

	c.Timeout = cfg.GreetingTimeout
	if _, err := c.Capability(); err != nil {
		c.Logout()
		return nil, errs.Transient(fmt.Errorf("reading capabilities: %w", err))
	}

	c.Timeout = cfg.ConnectTimeout
	if err := c.Login(mailbox.ImapUsername, password); err != nil {
		c.Logout()
		return nil, errs.Fatal(mailbox.ID, fmt.Errorf("logging in as %s: %w", mailbox.ImapUsername, err))
	}

	c.Timeout = cfg.SocketTimeout
	return c, nil
}

// Disconnect logs the client out, bounding the wait so a hung server
// never blocks a sync cycle indefinitely.
func Disconnect(c *client.Client) {
	if c == nil {
		return
	}

	done := make(chan error, 1)
	go func() { done <- c.Logout() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func startSpan(mailboxID, op string) (opentracing.Span, func()) {
	span := opentracing.StartSpan(op)
	tracing.TagComponentFetcher(span)
	tracing.TagMailboxID(span, mailboxID)
	return span, span.Finish
}
