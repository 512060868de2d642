package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomerEmail(t *testing.T) {
	internal := []string{"naos.com", "ru.naos.com"}

	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "external sender wins",
			msg:  Message{Sender: "Client@Shop.RU", Body: "From: other@x.org"},
			want: "client@shop.ru",
		},
		{
			name: "forwarded header in body",
			msg: Message{
				Sender: "agent@ru.naos.com",
				Body:   "see below\n\nFrom: Ivan <ivan@customer.org>\nSent: today",
			},
			want: "ivan@customer.org",
		},
		{
			name: "russian header prefix",
			msg:  Message{Sender: "agent@naos.com", Body: "От: olga@client.ru"},
			want: "olga@client.ru",
		},
		{
			name: "header with internal address falls through to any external address",
			msg: Message{
				Sender: "agent@naos.com",
				Body:   "From: boss@naos.com\ncontact me at buyer@market.com please",
			},
			want: "buyer@market.com",
		},
		{
			name: "reply-to after body",
			msg:  Message{Sender: "agent@naos.com", Body: "nothing here", ReplyTo: "Helpdesk@Client.org"},
			want: "helpdesk@client.org",
		},
		{
			name: "reply recipients last",
			msg: Message{
				Sender:          "agent@naos.com",
				ReplyTo:         "x@naos.com",
				ReplyRecipients: []string{"y@ru.naos.com", "z@partner.de"},
			},
			want: "z@partner.de",
		},
		{
			name: "all internal",
			msg:  Message{Sender: "agent@naos.com", Body: "From: a@naos.com"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CustomerEmail(tt.msg, internal))
		})
	}
}

func TestCustomerEmail_OnlyTopLinesScanned(t *testing.T) {
	body := ""
	for i := 0; i < 90; i++ {
		body += "line\n"
	}
	body += "From: late@customer.org\n"

	got := CustomerEmail(Message{Sender: "agent@naos.com", Body: body}, []string{"naos.com"})
	assert.Equal(t, "", got)
}

func TestIsInternal(t *testing.T) {
	domains := []string{" Naos.com "}
	assert.True(t, IsInternal("a@naos.com", domains))
	assert.True(t, IsInternal("a@ru.naos.com", domains))
	assert.False(t, IsInternal("a@notnaos.com", domains))
	assert.False(t, IsInternal("", domains))
}
