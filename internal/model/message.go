package model

import "encoding/json"

// Record is one message in a conversation, inbound or outbound. Field
// names are the wire format served by the fetch endpoints; Raw carries
// the provider's original payload fragment untouched.
type Record struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Body      string          `json:"body"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}
