package amqp

import (
	"encoding/json"
	"time"
)

// CleanupMessage asks the worker to remove an attachment blob. It carries the
// storage coordinates rather than the attachment ID because the database row
// is already gone when the message is published.
type CleanupMessage struct {
	AttachmentID string    `json:"attachmentId"`
	StorageType  string    `json:"storageType"`
	StorageRef   string    `json:"storageRef"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCleanupMessage creates a cleanup message for one attachment blob
func NewCleanupMessage(attachmentID, storageType, storageRef string) *CleanupMessage {
	return &CleanupMessage{
		AttachmentID: attachmentID,
		StorageType:  storageType,
		StorageRef:   storageRef,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CleanupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CleanupMessageFromJSON creates a message from JSON bytes
func CleanupMessageFromJSON(data []byte) (*CleanupMessage, error) {
	var msg CleanupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
