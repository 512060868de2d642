package maildir

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
)

// Outlook's Thread-Index starts with a 22 byte header block shared by every
// message of a conversation.
const threadIndexHeaderLen = 22

// item is the parsed form shared by inbox messages and sent items.
type item struct {
	entryID    string
	convID     string
	class      int
	subject    string
	body       string
	from       string
	fromName   string
	replyTo    []string
	to         []string
	date       time.Time
	vote       string
	references []string
}

func (it item) message() mailbox.Message {
	m := mailbox.Message{
		EntryID:         it.entryID,
		ConvID:          it.convID,
		Class:           it.class,
		Subject:         it.subject,
		Body:            it.body,
		Sender:          it.from,
		SenderName:      it.fromName,
		ReplyRecipients: it.replyTo,
		Received:        it.date,
		VotingResponse:  it.vote,
	}
	if len(it.replyTo) > 0 {
		m.ReplyTo = it.replyTo[0]
	}
	return m
}

func (it item) sentItem() mailbox.SentItem {
	return mailbox.SentItem{
		EntryID: it.entryID,
		ConvID:  it.convID,
		Class:   it.class,
		Subject: it.subject,
		Body:    it.body,
		To:      strings.Join(it.to, ";"),
		Sent:    it.date,
	}
}

// parseItem reads one .eml file. Parts in a charset that cannot be decoded
// make the whole message unreadable.
func parseItem(raw []byte, fallbackID string) (item, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return item{}, fmt.Errorf("parse message: %w", err)
	}
	for _, perr := range env.Errors {
		if perr.Severe || perr.Name == enmime.ErrorCharsetConversion {
			return item{}, fmt.Errorf("parse message %s: %s", fallbackID, perr.Error())
		}
	}

	it := item{
		entryID:    trimAngles(env.GetHeader("Message-ID")),
		class:      messageClass(env.GetHeader("X-Message-Class")),
		subject:    env.GetHeader("Subject"),
		vote:       strings.TrimSpace(env.GetHeader("X-Voting-Response")),
		references: messageIDs(env.GetHeader("References")),
	}
	if it.entryID == "" {
		it.entryID = fallbackID
	}
	if d, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		it.date = d.UTC()
	}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		it.from = strings.ToLower(from[0].Address)
		it.fromName = from[0].Name
	} else {
		it.from = strings.ToLower(strings.TrimSpace(env.GetHeader("From")))
	}
	it.replyTo = addressList(env, "Reply-To")
	it.to = addressList(env, "To")
	it.convID = conversationID(env, it.references, it.entryID)
	it.body = strings.TrimRight(strings.ReplaceAll(env.Text, "\r\n", "\n"), "\n")
	return it, nil
}

// conversationID prefers the Thread-Index header block, then the thread root
// from References, then In-Reply-To, then the message's own id.
func conversationID(env *enmime.Envelope, refs []string, own string) string {
	if ti := strings.TrimSpace(env.GetHeader("Thread-Index")); ti != "" {
		if raw, err := base64.StdEncoding.DecodeString(ti); err == nil && len(raw) >= threadIndexHeaderLen {
			return strings.ToUpper(hex.EncodeToString(raw[:threadIndexHeaderLen]))
		}
	}
	if len(refs) > 0 {
		return refs[0]
	}
	if ids := messageIDs(env.GetHeader("In-Reply-To")); len(ids) > 0 {
		return ids[0]
	}
	return own
}

func messageClass(v string) int {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(strings.ToUpper(v), "IPM.NOTE") {
		return mailbox.ClassMail
	}
	return 0
}

func addressList(env *enmime.Envelope, key string) []string {
	list, err := env.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

func messageIDs(v string) []string {
	var ids []string
	for _, f := range strings.Fields(v) {
		if id := trimAngles(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func trimAngles(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "<>"))
}
