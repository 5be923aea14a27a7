package models

import "time"

// Event is the envelope for everything that crosses Kafka. For the vault the
// interesting types are "batch-request" and "batch-reply".
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
