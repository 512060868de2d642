package ticket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Re: Fwd: RE:  Order 42", "Order 42"},
		{"FW: hello", "hello"},
		{"  plain ", "plain"},
		{"Report re: status", "Report re: status"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubject(tt.input))
		})
	}
}

func TestClassifySubject(t *testing.T) {
	assert.Equal(t, SubjectReply, ClassifySubject("RE: x"))
	assert.Equal(t, SubjectForward, ClassifySubject("Fw: x"))
	assert.Equal(t, SubjectForward, ClassifySubject("fwd: x"))
	assert.Equal(t, SubjectOriginal, ClassifySubject("x"))
}

func TestThreadKey(t *testing.T) {
	assert.Equal(t, "abc123", ThreadKey("ABC123", "Re: whatever"))
	assert.Equal(t, "order 42", ThreadKey("", "RE: Order 42"))
}

func TestComputeStableID(t *testing.T) {
	received := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	base := ComputeStableID("c1", received, "A@X.COM", "Re: Hello", "body")

	assert.Len(t, base, 64)
	assert.Equal(t, base, ComputeStableID("c1", received, "a@x.com", "hello", "body"),
		"sender case and subject prefixes do not change the fingerprint")
	assert.NotEqual(t, base, ComputeStableID("c2", received, "a@x.com", "hello", "body"))

	long := strings.Repeat("я", 300)
	assert.Equal(t,
		ComputeStableID("c1", received, "a@x.com", "hello", long),
		ComputeStableID("c1", received, "a@x.com", "hello", long[:len(strings.Repeat("я", 200))]+"tail"),
		"only the first 200 runes of the body count")
}

func TestCleanBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "drops quoted and header lines",
			input: "Hello\r\n> quoted\r\nFrom: someone\r\nWorld",
			want:  "Hello\nWorld",
		},
		{
			name:  "stops at rule",
			input: "Line one\n-----\nold thread",
			want:  "Line one",
		},
		{
			name:  "stops at signature",
			input: "Please help\n\nС уважением,\nИван",
			want:  "Please help",
		},
		{
			name:  "trims blank edges",
			input: "\n\n  text  \n\n",
			want:  "text",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanBody(tt.input))
		})
	}
}
