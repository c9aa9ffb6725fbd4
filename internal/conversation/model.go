package conversation

import "time"

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AudioResult is the outcome of one voice interaction. An empty
// Transcript means the recognizer heard no usable speech; Reply and
// AudioName are only set when a transcript was dispatched.
type AudioResult struct {
	Transcript string
	Reply      string
	AudioName  string
}
