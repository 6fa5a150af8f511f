package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type MessageType string

const (
	// EntrySync asks the worker to push the local entry to the remote API.
	EntrySync MessageType = "entry.sync"
	// EntryDelete asks the worker to delete the entry on the remote API.
	EntryDelete MessageType = "entry.delete"
)

// SyncMessage is a lightweight pointer to a local entry. The worker loads
// the full row from the database.
type SyncMessage struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Version   int64       `json:"version"`
	RemoteID  string      `json:"remoteId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEntrySyncMessage(id string, version int64) *SyncMessage {
	return &SyncMessage{
		Type:      EntrySync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewEntryDeleteMessage(id, remoteID string, version int64) *SyncMessage {
	return &SyncMessage{
		Type:      EntryDelete,
		ID:        id,
		Version:   version,
		RemoteID:  remoteID,
		Timestamp: time.Now(),
	}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes and checks a message body.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EntrySync, EntryDelete:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.ID == "" {
		return nil, errors.New("message without entry id")
	}
	return &msg, nil
}
