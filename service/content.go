package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

// NormalizeContent turns the raw content of a chat message into a
// model.Content. User and error turns are text. Assistant turns are decoded
// into a StructuredResult whether the server sent an object or a JSON-encoded
// string; a string that looks like JSON but does not parse gets one repair
// attempt before it is kept verbatim as UnparseableContent.
func NormalizeContent(messageType string, raw json.RawMessage) model.Content {
	raw = bytes.TrimSpace(raw)

	if messageType != model.MessageAssistant {
		return model.TextContent{Text: rawText(raw)}
	}

	if len(raw) > 0 && raw[0] == '{' {
		if fields, ok := decodeObject(string(raw)); ok {
			return model.StructuredResult{Fields: fields}
		}
		return unparseable(string(raw))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return unparseable(string(raw))
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return model.TextContent{Text: s}
	}
	if fields, ok := decodeObject(trimmed); ok {
		return model.StructuredResult{Fields: fields}
	}
	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
		if fields, ok := decodeObject(repaired); ok {
			logger.Debug(context.Background(), "assistant content repaired")
			return model.StructuredResult{Fields: fields}
		}
	}
	return unparseable(s)
}

// NormalizeMessage converts a wire message into a chat entry.
func NormalizeMessage(m model.Message) model.ChatEntry {
	return model.ChatEntry{
		Type:      m.MessageType,
		Content:   NormalizeContent(m.MessageType, m.Content),
		Timestamp: m.Timestamp,
	}
}

func decodeObject(s string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func unparseable(raw string) model.Content {
	logger.Warn(context.Background(), "assistant content could not be parsed", "content", truncate(raw, 200))
	return model.UnparseableContent{Raw: raw}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
