package imapfetch

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/inboxforge/syncengine/config"
	"github.com/inboxforge/syncengine/internal/errs"
	"github.com/inboxforge/syncengine/internal/utils"
)

// Fetch selects INBOX, searches for messages with UID greater than
// lastSyncedUID and INTERNALDATE after sinceDays, and returns up to
// batchSize of them in UID-ascending order (spec §4.1, §6.2).
func Fetch(c *client.Client, mailboxID string, lastSyncedUID uint32, cfg *config.SyncConfig) ([]*RawMessage, error) {
	span, finish := startSpan(mailboxID, "imapfetch.Fetch")
	defer finish()

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, errs.Fatal(mailboxID, fmt.Errorf("selecting INBOX: %w", err))
	}

	criteria := imap.NewSearchCriteria()
	uidRange := new(imap.SeqSet)
	uidRange.AddRange(lastSyncedUID+1, 0)
	criteria.Uid = uidRange
	criteria.Since = utils.Now().AddDate(0, 0, -cfg.SinceDays)

	c.Timeout = cfg.SocketTimeout
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("searching messages: %w", err))
	}
	span.SetTag("candidates", len(uids))

	if len(uids) == 0 {
		return nil, nil
	}

	// UID SEARCH's response order isn't guaranteed ascending (RFC 3501);
	// sort before truncating to batchSize so a batch boundary always falls
	// on the lowest UIDs, never an arbitrary server-ordered subset.
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	if len(uids) > cfg.BatchSize {
		uids = uids[:cfg.BatchSize]
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchRFC822Size, "BODY.PEEK[]"}
	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	go func() { done <- c.UidFetch(seqSet, items, messages) }()

	raw := make([]*RawMessage, 0, len(uids))
	for msg := range messages {
		rm, err := parseMessage(msg)
		if err != nil {
			continue
		}
		raw = append(raw, rm)
	}

	if err := <-done; err != nil {
		return nil, errs.Transient(fmt.Errorf("fetching messages: %w", err))
	}

	sortByUID(raw)
	span.SetTag("fetched", len(raw))
	return raw, nil
}

func sortByUID(messages []*RawMessage) {
	for i := 1; i < len(messages); i++ {
		for j := i; j > 0 && messages[j-1].UID > messages[j].UID; j-- {
			messages[j-1], messages[j] = messages[j], messages[j-1]
		}
	}
}
