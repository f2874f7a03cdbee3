package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nrenier/ICorNet-sub000/model"
)

// ChatLog keeps one append-only message log per chat and user.
type ChatLog struct {
	mu   sync.RWMutex
	logs map[string][]model.Message
}

func NewChatLog() *ChatLog {
	return &ChatLog{logs: make(map[string][]model.Message)}
}

func logKey(chat, userID string) string {
	return chat + "/" + userID
}

// Append records a message whose content is marshalled as JSON.
func (l *ChatLog) Append(chat, userID, messageType string, content any, ts model.Timestamp) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := logKey(chat, userID)
	l.logs[key] = append(l.logs[key], model.Message{MessageType: messageType, Content: raw, Timestamp: ts})
	return nil
}

// History returns the log of a user in insertion order.
func (l *ChatLog) History(chat, userID string) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Message{}, l.logs[logKey(chat, userID)]...)
}

// DeleteRange removes every message of the user whose timestamp lies between
// start and end, both inclusive, and returns how many were removed.
func (l *ChatLog) DeleteRange(chat, userID string, start, end model.Timestamp) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := logKey(chat, userID)
	kept := l.logs[key][:0:0]
	removed := 0
	for _, m := range l.logs[key] {
		if CompareTimestamps(m.Timestamp, start) >= 0 && CompareTimestamps(m.Timestamp, end) <= 0 {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	l.logs[key] = kept
	return removed
}

// CompareTimestamps orders two timestamps numerically when both are numbers,
// chronologically when both are RFC 3339 and lexically otherwise.
func CompareTimestamps(a, b model.Timestamp) int {
	if fa, errA := strconv.ParseFloat(a.String(), 64); errA == nil {
		if fb, errB := strconv.ParseFloat(b.String(), 64); errB == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, errA := time.Parse(time.RFC3339Nano, a.String()); errA == nil {
		if tb, errB := time.Parse(time.RFC3339Nano, b.String()); errB == nil {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(a.String(), b.String())
}

// Recommend builds the structured reply of a chat from the fixtures: every
// company sharing a word with the message is suggested.
func Recommend(f *Fixtures, ds Dataset, message string) map[string]any {
	words := strings.Fields(strings.ToLower(message))
	var names []string
	for _, e := range f.List(ds) {
		if entityMentions(e, words) {
			names = append(names, e.Name())
		}
	}
	if names == nil {
		names = []string{}
	}

	analysis := fmt.Sprintf("Trovate %d aziende pertinenti per la richiesta.", len(names))
	if ds == DatasetStartup {
		return map[string]any{
			"startup_consigliate": names,
			"raccomandazioni":     []string{"Contattare le startup con maturità tecnologica più alta"},
			"analisi":             analysis,
		}
	}

	half := (len(names) + 1) / 2
	return map[string]any{
		"potenziali_fornitori": names[:half],
		"potenziali_clienti":   names[half:],
		"analisi":              analysis,
	}
}

func entityMentions(e model.Entity, words []string) bool {
	var haystack []string
	for k := range e {
		haystack = append(haystack, e.Strings(k)...)
	}
	for _, h := range haystack {
		h = strings.ToLower(h)
		for _, w := range words {
			if len(w) > 2 && strings.Contains(h, w) {
				return true
			}
		}
	}
	return false
}
