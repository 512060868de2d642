package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Normalize(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{"new", StatusNew},
		{"  Assigned ", StatusAssigned},
		{"IN_TABLE", StatusTable},
		{"in_table", StatusTable},
		{"mystery", Status("mystery")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.input))
		})
	}
}

func TestStatus_LabelRoundTrip(t *testing.T) {
	for _, s := range AllStatuses {
		t.Run(string(s), func(t *testing.T) {
			got, ok := ParseStatusText(s.Label())
			assert.True(t, ok)
			assert.Equal(t, s, got)
		})
	}
}

func TestStatusLabel_Unknown(t *testing.T) {
	assert.Equal(t, "weird", StatusLabel("weird"))
	assert.Equal(t, "Требует данных/таблица", StatusLabel("in_table"))
}

func TestParseStatusText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Status
		wantOK bool
	}{
		{"synonym ru", "в работе", StatusAssigned, true},
		{"synonym case insensitive", "ЗАКРЫТО", StatusResolved, true},
		{"vote ok", "OK", StatusResponded, true},
		{"vote need more time", "Нужно время", StatusWaitingCustomer, true},
		{"vote not ours", "Не наш", StatusNotInteresting, true},
		{"canonical code", "otip", StatusOTIP, true},
		{"alias", "in_table", StatusTable, true},
		{"punctuation stripped", "закрыто!!!", StatusResolved, true},
		{"spaces become underscores", "not interesting", StatusNotInteresting, true},
		{"yo variant", "Ждём клиента", StatusWaitingCustomer, true},
		{"empty", "   ", "", false},
		{"unknown", "что-то другое", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatusText(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRaise(t *testing.T) {
	tests := []struct {
		name               string
		current, candidate Status
		want               Status
	}{
		{"higher candidate wins", StatusAssigned, StatusOverdue, StatusOverdue},
		{"lower candidate ignored", StatusResolved, StatusOverdue, StatusResolved},
		{"equal rank keeps current", StatusAssigned, StatusWaitingCustomer, StatusAssigned},
		{"unknown current", Status("x"), StatusNew, StatusNew},
		{"alias ranks as table", StatusNew, StatusInTable, StatusInTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Raise(tt.current, tt.candidate))
		})
	}
}

func TestDeriveBaseStatus(t *testing.T) {
	tests := []struct {
		name                                    string
		forward, reply, table, uninteresting bool
		want                                    Status
	}{
		{"nothing defaults to assigned", false, false, false, false, StatusAssigned},
		{"forward only", true, false, false, false, StatusAssigned},
		{"reply beats forward", true, true, false, false, StatusResponded},
		{"table beats reply", true, true, true, false, StatusTable},
		{"uninteresting beats all", true, true, true, true, StatusNotInteresting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBaseStatus(tt.forward, tt.reply, tt.table, tt.uninteresting))
		})
	}
}

func TestStatus_Sets(t *testing.T) {
	for _, s := range []Status{StatusResolved, StatusTable, StatusInTable, StatusNotInteresting} {
		assert.True(t, s.IsTerminal(), s)
		assert.True(t, s.ExcludedFromRecalc(), s)
	}
	for _, s := range []Status{StatusNew, StatusAssigned, StatusOverdue, StatusWaitingCustomer, StatusOTIP, StatusResponded} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestLegacyStatusMigrations_EndWithAliasFold(t *testing.T) {
	last := LegacyStatusMigrations[len(LegacyStatusMigrations)-1]
	assert.Equal(t, string(StatusInTable), last.From)
	assert.Equal(t, StatusTable, last.To)
}
