package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	EventTransactionAdded EventKind = "transaction_added"
	EventLogCleared       EventKind = "log_cleared"
)

// LogEvent announces a change to the transaction log. It carries no
// transaction payload; consumers reload the log from storage.
type LogEvent struct {
	Kind          EventKind `json:"kind"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionAddedEvent(id string, count int) *LogEvent {
	return &LogEvent{
		Kind:          EventTransactionAdded,
		TransactionID: id,
		Count:         count,
		Timestamp:     time.Now(),
	}
}

func NewLogClearedEvent(reason string) *LogEvent {
	return &LogEvent{
		Kind:      EventLogCleared,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (e *LogEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LogEventFromJSON decodes an event and rejects unknown kinds.
func LogEventFromJSON(data []byte) (*LogEvent, error) {
	var e LogEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case EventTransactionAdded, EventLogCleared:
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}
