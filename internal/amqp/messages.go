package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportSyncMessage asks the worker to export a stored report's monthly
// totals. Only the id travels; the worker reads the rest from the database.
type ReportSyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSyncMessage(id int64) *ReportSyncMessage {
	return &ReportSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportSyncMessageFromJSON decodes a message and rejects ids that cannot
// refer to a stored report.
func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid report id %d", msg.ID)
	}
	return &msg, nil
}
