package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderFilter_Passes(t *testing.T) {
	tests := []struct {
		name   string
		filter SenderFilter
		sender string
		want   bool
	}{
		{"off passes all", SenderFilter{Mode: "off", Value: "x"}, "a@b.com", true},
		{"empty value passes all", SenderFilter{Mode: "equals"}, "a@b.com", true},
		{"contains", SenderFilter{Mode: "contains", Value: "Naos"}, "ivan@ru.naos.com", true},
		{"contains miss", SenderFilter{Mode: "contains", Value: "acme"}, "ivan@ru.naos.com", false},
		{"equals case insensitive", SenderFilter{Mode: "equals", Value: "Ivan@Naos.com"}, "ivan@naos.com", true},
		{"equals miss", SenderFilter{Mode: "equals", Value: "ivan@naos.com"}, "ivan@naos.com.ru", false},
		{"domain exact", SenderFilter{Mode: "domain", Value: "@naos.com"}, "x@naos.com", true},
		{"domain subdomain", SenderFilter{Mode: "domain", Value: "naos.com"}, "x@ru.naos.com", true},
		{"domain lookalike", SenderFilter{Mode: "domain", Value: "naos.com"}, "x@evilnaos.com", false},
		{"unknown mode passes", SenderFilter{Mode: "regex", Value: "x"}, "a@b.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Passes(tt.sender))
		})
	}
}

func TestSentItem_FirstRecipient(t *testing.T) {
	assert.Equal(t, "a@x.com", SentItem{To: " a@x.com ; b@x.com"}.FirstRecipient())
	assert.Equal(t, "", SentItem{}.FirstRecipient())
}
