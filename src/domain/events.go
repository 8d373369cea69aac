package domain

import (
	"time"

	"github.com/google/uuid"

	"nodegraph/src/domain/entities"
)

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent é publicado a cada escrita bem sucedida no adapter.
type ChangeEvent struct {
	EventID    string            `json:"event_id"`
	Type       ChangeType        `json:"type"`
	Metadata   entities.Metadata `json:"metadata"`
	Props      entities.Props    `json:"props,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewChangeEvent(changeType ChangeType, rec entities.Record) ChangeEvent {
	event := ChangeEvent{
		EventID:    uuid.NewString(),
		Type:       changeType,
		Metadata:   rec.Metadata,
		OccurredAt: time.Now().UTC(),
	}
	if rec.Props != nil {
		event.Props = rec.Props.Clone()
	}
	return event
}
