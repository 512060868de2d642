package models

import "gorm.io/datatypes"

// TicketModel stores timestamps as Unix milliseconds in UTC.
type TicketModel struct {
	ID                uint     `gorm:"primaryKey"`
	StableID          *string  `gorm:"column:stable_id;uniqueIndex:idx_tickets_stable_id"`
	ConvID            string   `gorm:"column:conv_id;not null;default:'';uniqueIndex:idx_tickets_conv_thread,priority:1"`
	ThreadKey         string   `gorm:"column:thread_key;not null;uniqueIndex:idx_tickets_conv_thread,priority:2;index"`
	EntryID           string   `gorm:"column:entry_id"`
	FirstReceivedUTC  int64    `gorm:"column:first_received_utc;not null;index"`
	Sender            string   `gorm:"column:sender;not null"`
	Subject           string   `gorm:"column:subject;not null"`
	Body              string   `gorm:"column:body;type:text"`
	FirstForwardUTC   *int64   `gorm:"column:first_forward_utc"`
	FirstForwardTo    string   `gorm:"column:first_forward_to"`
	FirstReplyUTC     *int64   `gorm:"column:first_reply_utc"`
	FirstReplyBody    string   `gorm:"column:first_reply_body;type:text"`
	Responsible       string   `gorm:"column:responsible"`
	Status            string   `gorm:"column:status;not null;index"`
	LastStatusUTC     int64    `gorm:"column:last_status_utc;not null"`
	DaysWithoutUpdate int      `gorm:"column:days_without_update;not null;default:0"`
	Overdue           bool     `gorm:"column:overdue;not null;default:false"`
	NotInteresting    bool     `gorm:"column:not_interesting;not null;default:false"`
	CustomerEmail     string   `gorm:"column:customer_email"`
	IsRepeat          bool     `gorm:"column:is_repeat;not null;default:false"`
	RepeatHint        string   `gorm:"column:repeat_hint"`
	RecommendedAnswer string   `gorm:"column:recommended_answer;type:text"`
	MatchScore        *float64 `gorm:"column:match_score"`
	Topic             string   `gorm:"column:topic"`
	LastReminderUTC   *int64   `gorm:"column:last_reminder_utc"`
	Priority          string   `gorm:"column:priority"`
	LastUpdatedAt     *int64   `gorm:"column:last_updated_at"`
	LastUpdatedBy     string   `gorm:"column:last_updated_by"`
	DataSource        string   `gorm:"column:data_source"`
	Comment           string   `gorm:"column:comment;type:text"`
	RowVersion        int      `gorm:"column:row_version;not null;default:1"`
}

func (TicketModel) TableName() string {
	return "tickets"
}

// EventModel is the append-only audit log. item_entry_id is unique so the
// same external item is recorded at most once.
type EventModel struct {
	ID           uint           `gorm:"primaryKey"`
	TicketID     uint           `gorm:"column:ticket_id;not null;index"`
	EventType    string         `gorm:"column:event_type;not null"`
	StatusBefore string         `gorm:"column:status_before"`
	StatusAfter  string         `gorm:"column:status_after"`
	Source       string         `gorm:"column:source"`
	EventAtUTC   int64          `gorm:"column:event_dt_utc;not null"`
	RawResponse  string         `gorm:"column:raw_response;type:text"`
	ItemEntryID  *string        `gorm:"column:item_entry_id;uniqueIndex:idx_events_item_entry_id"`
	Details      datatypes.JSON `gorm:"column:details"`

	// Note: No foreign key constraints or associations.
	// All relationships are managed by application business logic.
}

func (EventModel) TableName() string {
	return "events"
}

type AnswerModel struct {
	ID       uint   `gorm:"primaryKey"`
	TicketID *uint  `gorm:"column:ticket_id"`
	Question string `gorm:"column:question;not null"`
	Answer   string `gorm:"column:answer;not null"`
}

func (AnswerModel) TableName() string {
	return "answers"
}
