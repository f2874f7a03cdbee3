package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Message types
const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
	MessageError     = "error"
)

// Timestamp is a message timestamp in the form the backend sent it: either
// an ISO-8601 string or a number. The JSON type is kept, so a timestamp is
// written back exactly as it was read.
type Timestamp struct {
	text    string
	numeric bool
}

// TextTimestamp returns a timestamp encoded as a JSON string.
func TextTimestamp(s string) Timestamp {
	return Timestamp{text: s}
}

// NumericTimestamp returns a timestamp encoded as a JSON number.
func NumericTimestamp(s string) (Timestamp, error) {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %s", s)
	}
	return Timestamp{text: s, numeric: true}, nil
}

// String returns the timestamp text without JSON quoting.
func (t Timestamp) String() string { return t.text }

func (t Timestamp) IsZero() bool { return t.text == "" }

// IsNumeric reports whether the timestamp travels as a JSON number.
func (t Timestamp) IsNumeric() bool { return t.numeric }

// UnmarshalJSON accepts JSON strings and numbers.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*t = Timestamp{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*t = TextTimestamp(str)
		return nil
	}
	ts, err := NumericTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.numeric {
		return []byte(t.text), nil
	}
	return json.Marshal(t.text)
}

// Message is one record of the server-persisted chat log.
type Message struct {
	MessageType string          `json:"message_type"`
	Content     json.RawMessage `json:"content"`
	Timestamp   Timestamp       `json:"timestamp"`
}

// ChatHistoryResponse is returned by GET /*-chat/chat-history
type ChatHistoryResponse struct {
	Success bool      `json:"success"`
	History []Message `json:"history"`
	Error   string    `json:"error,omitempty"`
}

// SendMessageRequest is the body of POST /*-chat/send-message
type SendMessageRequest struct {
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Region    string    `json:"region,omitempty"`
	Province  string    `json:"province,omitempty"`
}

// DeleteConversationRequest deletes every message of a user between two
// timestamps, both inclusive.
type DeleteConversationRequest struct {
	UserID         string    `json:"user_id"`
	StartTimestamp Timestamp `json:"start_timestamp"`
	EndTimestamp   Timestamp `json:"end_timestamp"`
}

// DeleteConversationResponse acknowledges a ranged delete
type DeleteConversationResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int    `json:"deleted_count"`
	Error        string `json:"error,omitempty"`
}

// Content is the normalised body of a chat entry: TextContent,
// StructuredResult or UnparseableContent.
type Content interface {
	// Display renders the content as plain text.
	Display() string
	isContent()
}

// TextContent is plain text, used for user turns and fallback messages.
type TextContent struct {
	Text string
}

// StructuredResult is a decoded assistant recommendation object.
type StructuredResult struct {
	Fields map[string]any
}

// UnparseableContent keeps assistant content that could not be decoded.
type UnparseableContent struct {
	Raw string
}

func (TextContent) isContent()        {}
func (StructuredResult) isContent()   {}
func (UnparseableContent) isContent() {}

func (c TextContent) Display() string        { return c.Text }
func (c UnparseableContent) Display() string { return c.Raw }

// Display renders the result as indented JSON with sorted keys.
func (c StructuredResult) Display() string {
	data, err := json.MarshalIndent(c.Fields, "", "  ")
	if err != nil {
		return fmt.Sprint(c.Fields)
	}
	return string(data)
}

// Has reports whether any of the given keys is present.
func (c StructuredResult) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c.Fields[k]; ok {
			return true
		}
	}
	return false
}

// Keys returns the result keys in sorted order.
func (c StructuredResult) Keys() []string {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChatEntry is a chat message after content normalisation.
type ChatEntry struct {
	Type      string
	Content   Content
	Timestamp Timestamp
}

// Conversation is a client-side grouping of chat entries that starts with a
// user turn.
type Conversation struct {
	ID      string
	Title   string
	Entries []ChatEntry
}

// StartTimestamp returns the timestamp of the first entry.
func (c *Conversation) StartTimestamp() Timestamp {
	if len(c.Entries) == 0 {
		return Timestamp{}
	}
	return c.Entries[0].Timestamp
}

// EndTimestamp returns the timestamp of the last entry.
func (c *Conversation) EndTimestamp() Timestamp {
	if len(c.Entries) == 0 {
		return Timestamp{}
	}
	return c.Entries[len(c.Entries)-1].Timestamp
}
