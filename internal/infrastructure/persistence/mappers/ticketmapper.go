package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/models"
)

// TicketMapper handles the conversion between domain entities and persistence models.
type TicketMapper interface {
	ToModel(t *ticket.Ticket) *models.TicketModel
	ToDomain(model *models.TicketModel) *ticket.Ticket
	EventToModel(e *ticket.Event) (*models.EventModel, error)
	EventToDomain(model *models.EventModel) (*ticket.Event, error)
}

// TicketMapperImpl is the concrete implementation of TicketMapper.
type TicketMapperImpl struct{}

// NewTicketMapper creates a new TicketMapper.
func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) *models.TicketModel {
	return &models.TicketModel{
		ID:                t.ID,
		StableID:          t.StableID,
		ConvID:            t.ConvID,
		ThreadKey:         t.ThreadKey,
		EntryID:           t.EntryID,
		FirstReceivedUTC:  toMillis(t.FirstReceived),
		Sender:            t.Sender,
		Subject:           t.Subject,
		Body:              t.Body,
		FirstForwardUTC:   toMillisPtr(t.FirstForward),
		FirstForwardTo:    t.FirstForwardTo,
		FirstReplyUTC:     toMillisPtr(t.FirstReply),
		FirstReplyBody:    t.FirstReplyBody,
		Responsible:       t.Responsible,
		Status:            t.Status.Normalize().String(),
		LastStatusUTC:     toMillis(t.LastStatusChange),
		DaysWithoutUpdate: t.DaysWithoutUpdate,
		Overdue:           t.Overdue,
		NotInteresting:    t.NotInteresting,
		CustomerEmail:     t.CustomerEmail,
		IsRepeat:          t.IsRepeat,
		RepeatHint:        t.RepeatHint,
		RecommendedAnswer: t.RecommendedAnswer,
		MatchScore:        t.MatchScore,
		Topic:             t.Topic,
		LastReminderUTC:   toMillisPtr(t.LastReminder),
		Priority:          t.Priority.String(),
		LastUpdatedAt:     toMillisPtr(t.LastUpdatedAt),
		LastUpdatedBy:     t.LastUpdatedBy,
		DataSource:        t.DataSource,
		Comment:           t.Comment,
		RowVersion:        t.RowVersion,
	}
}

// ToDomain normalizes the stored status so aliases never leak past the store.
func (m *TicketMapperImpl) ToDomain(model *models.TicketModel) *ticket.Ticket {
	return &ticket.Ticket{
		ID:                model.ID,
		StableID:          model.StableID,
		ConvID:            model.ConvID,
		ThreadKey:         model.ThreadKey,
		EntryID:           model.EntryID,
		FirstReceived:     fromMillis(model.FirstReceivedUTC),
		Sender:            model.Sender,
		Subject:           model.Subject,
		Body:              model.Body,
		FirstForward:      fromMillisPtr(model.FirstForwardUTC),
		FirstForwardTo:    model.FirstForwardTo,
		FirstReply:        fromMillisPtr(model.FirstReplyUTC),
		FirstReplyBody:    model.FirstReplyBody,
		Responsible:       model.Responsible,
		Status:            vo.NormalizeStatus(model.Status),
		LastStatusChange:  fromMillis(model.LastStatusUTC),
		DaysWithoutUpdate: model.DaysWithoutUpdate,
		Overdue:           model.Overdue,
		NotInteresting:    model.NotInteresting,
		CustomerEmail:     model.CustomerEmail,
		IsRepeat:          model.IsRepeat,
		RepeatHint:        model.RepeatHint,
		RecommendedAnswer: model.RecommendedAnswer,
		MatchScore:        model.MatchScore,
		Topic:             model.Topic,
		LastReminder:      fromMillisPtr(model.LastReminderUTC),
		Priority:          vo.Priority(model.Priority),
		LastUpdatedAt:     fromMillisPtr(model.LastUpdatedAt),
		LastUpdatedBy:     model.LastUpdatedBy,
		DataSource:        model.DataSource,
		Comment:           model.Comment,
		RowVersion:        model.RowVersion,
	}
}

func (m *TicketMapperImpl) EventToModel(e *ticket.Event) (*models.EventModel, error) {
	model := &models.EventModel{
		ID:           e.ID,
		TicketID:     e.TicketID,
		EventType:    string(e.Type),
		StatusBefore: e.StatusBefore.String(),
		StatusAfter:  e.StatusAfter.String(),
		Source:       e.Source,
		EventAtUTC:   toMillis(e.CreatedAt),
		RawResponse:  e.RawResponse,
		ItemEntryID:  e.ItemEntryID,
	}
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event details (ticket=%d): %w", e.TicketID, err)
		}
		model.Details = datatypes.JSON(raw)
	}
	return model, nil
}

func (m *TicketMapperImpl) EventToDomain(model *models.EventModel) (*ticket.Event, error) {
	e := &ticket.Event{
		ID:           model.ID,
		TicketID:     model.TicketID,
		Type:         ticket.EventType(model.EventType),
		StatusBefore: vo.Status(model.StatusBefore),
		StatusAfter:  vo.Status(model.StatusAfter),
		Source:       model.Source,
		CreatedAt:    fromMillis(model.EventAtUTC),
		RawResponse:  model.RawResponse,
		ItemEntryID:  model.ItemEntryID,
	}
	if len(model.Details) > 0 {
		if err := json.Unmarshal(model.Details, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event details (id=%d): %w", model.ID, err)
		}
	}
	return e, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UTC().UnixMilli()
	return &ms
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
