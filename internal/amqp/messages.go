package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the mirror queue.
const (
	KindRecordSync   = "record.sync"
	KindRecordDelete = "record.delete"
)

// RecordEvent is a lightweight message about a lesson record. Sync events
// carry only the record ID; the worker fetches the full record from storage
// so the mirror always reflects the stored row, not the message payload.
// Delete events carry the denormalized fields because the row is already gone.
type RecordEvent struct {
	Kind       string    `json:"kind"`
	RecordID   string    `json:"recordId"`
	CourseName string    `json:"courseName,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	Date       time.Time `json:"date,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRecordSyncEvent announces that a record was created or changed.
func NewRecordSyncEvent(recordID string) *RecordEvent {
	return &RecordEvent{
		Kind:      KindRecordSync,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// NewRecordDeleteEvent announces that a record was removed.
func NewRecordDeleteEvent(recordID, courseName, grade string, date time.Time) *RecordEvent {
	return &RecordEvent{
		Kind:       KindRecordDelete,
		RecordID:   recordID,
		CourseName: courseName,
		Grade:      grade,
		Date:       date,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON parses an event from JSON bytes.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
