package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

const (
	// RestoredConversation stands in for a user turn the log no longer has.
	RestoredConversation = "Conversazione ripristinata"

	titleLength = 50
)

// ConversationTitle returns the first 50 characters of text, with "..."
// appended when it had to be cut.
func ConversationTitle(text string) string {
	r := []rune(text)
	if len(r) <= titleLength {
		return text
	}
	return string(r[:titleLength]) + "..."
}

// GroupConversations splits a chronological chat log into conversations,
// most recent first. Each user entry opens a conversation that collects the
// following non-user entries; non-user entries before the first user entry
// are dropped. A log without any user entry yields one restored conversation
// per assistant entry.
func GroupConversations(entries []model.ChatEntry) []model.Conversation {
	hasUser, hasAssistant := false, false
	for _, e := range entries {
		switch e.Type {
		case model.MessageUser:
			hasUser = true
		case model.MessageAssistant:
			hasAssistant = true
		}
	}

	var convs []model.Conversation
	if !hasUser && hasAssistant {
		for _, e := range entries {
			if e.Type != model.MessageAssistant {
				continue
			}
			convs = append(convs, model.Conversation{
				ID:    uuid.NewString(),
				Title: RestoredConversation,
				Entries: []model.ChatEntry{
					{Type: model.MessageUser, Content: model.TextContent{Text: RestoredConversation}, Timestamp: e.Timestamp},
					e,
				},
			})
		}
	} else {
		var current *model.Conversation
		for _, e := range entries {
			if e.Type == model.MessageUser {
				if current != nil {
					convs = append(convs, *current)
				}
				current = &model.Conversation{
					ID:      uuid.NewString(),
					Title:   ConversationTitle(e.Content.Display()),
					Entries: []model.ChatEntry{e},
				}
				continue
			}
			if current == nil {
				continue
			}
			current.Entries = append(current.Entries, e)
		}
		if current != nil {
			convs = append(convs, *current)
		}
	}

	for i, j := 0, len(convs)-1; i < j; i, j = i+1, j-1 {
		convs[i], convs[j] = convs[j], convs[i]
	}
	return convs
}

// ChatOptions tunes a ChatSession.
type ChatOptions struct {
	ReloadDelay time.Duration
	Region      string
	Province    string
}

// ChatState is a snapshot of a chat page.
type ChatState struct {
	Entries       []model.ChatEntry
	Conversations []model.Conversation
	Sending       bool
}

// ChatSession manages the message log of one chat domain for the session
// user.
type ChatSession struct {
	domain  ChatDomain
	client  *APIClient
	session *SessionContext
	notify  Notify
	scope   *Scope
	opts    ChatOptions

	mu       sync.Mutex
	entries  []model.ChatEntry
	convs    []model.Conversation
	sending  bool
	onChange func(ChatState)
}

func NewChatSession(domain ChatDomain, client *APIClient, session *SessionContext, notify Notify, scope *Scope, opts ChatOptions) *ChatSession {
	return &ChatSession{
		domain:  domain,
		client:  client,
		session: session,
		notify:  notify,
		scope:   scope,
		opts:    opts,
	}
}

func (s *ChatSession) OnChange(fn func(ChatState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *ChatSession) ctx(ctx context.Context) context.Context {
	return s.session.Context(ctx, s.domain.Tag+"-chat")
}

// Send echoes text locally, posts it and appends the assistant reply. A reply
// without any of the domain's result keys becomes an error entry carrying the
// fallback message. A history reload is scheduled afterwards either way.
func (s *ChatSession) Send(ctx context.Context, text string) (model.ChatEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		msg := "Scrivi un messaggio prima di inviare"
		s.notify.Push(NotifyError, msg)
		return model.ChatEntry{}, validationError(msg)
	}
	ctx = s.ctx(ctx)

	ts := model.TextTimestamp(time.Now().UTC().Format(time.RFC3339Nano))
	s.update(func() {
		s.entries = append(s.entries, model.ChatEntry{
			Type:      model.MessageUser,
			Content:   model.TextContent{Text: text},
			Timestamp: ts,
		})
		s.sending = true
		s.regroupLocked()
	})

	req := model.SendMessageRequest{
		Message:   text,
		Timestamp: ts,
		UserID:    s.session.ChatUserID(),
	}
	if s.domain.SendLocation {
		req.Region = s.opts.Region
		req.Province = s.opts.Province
	}

	var raw json.RawMessage
	err := s.client.Post(ctx, s.domain.SendPath(), req, &raw)

	reply := s.replyEntry(ctx, raw, err)
	s.update(func() {
		s.entries = append(s.entries, reply)
		s.sending = false
		s.regroupLocked()
	})

	s.scope.After(s.opts.ReloadDelay, func(ctx context.Context) {
		if err := s.LoadHistory(ctx); err != nil {
			logger.Warn(s.ctx(ctx), "deferred chat history reload failed", "error", err)
		}
	})

	return reply, err
}

func (s *ChatSession) replyEntry(ctx context.Context, raw json.RawMessage, err error) model.ChatEntry {
	now := model.TextTimestamp(time.Now().UTC().Format(time.RFC3339Nano))
	fallback := model.ChatEntry{
		Type:      model.MessageError,
		Content:   model.TextContent{Text: s.domain.FallbackMessage},
		Timestamp: now,
	}
	if err != nil {
		logger.Error(ctx, "chat message failed", "error", err)
		s.notify.Push(NotifyError, err.Error())
		return fallback
	}

	content := NormalizeContent(model.MessageAssistant, raw)
	result, ok := content.(model.StructuredResult)
	if !ok || !result.Has(s.domain.ResultKeys...) {
		logger.Warn(ctx, "chat response is not a recommendation", "content", truncate(string(raw), 200))
		return fallback
	}
	return model.ChatEntry{Type: model.MessageAssistant, Content: result, Timestamp: now}
}

// LoadHistory replaces the local log with the server's and regroups it.
func (s *ChatSession) LoadHistory(ctx context.Context) error {
	ctx = s.ctx(ctx)

	var resp model.ChatHistoryResponse
	query := url.Values{"user_id": {s.session.ChatUserID()}}
	if err := s.client.Get(ctx, s.domain.HistoryPath(), query, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = genericErrorMessage
		}
		return &APIError{Message: msg}
	}

	entries := make([]model.ChatEntry, 0, len(resp.History))
	for _, m := range resp.History {
		entries = append(entries, NormalizeMessage(m))
	}
	s.update(func() {
		s.entries = entries
		s.regroupLocked()
	})
	logger.Debug(ctx, "chat history loaded", "messages", len(entries))
	return nil
}

// Conversation returns the conversation with the given id.
func (s *ChatSession) Conversation(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.ID == id {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// DeleteConversation removes a conversation once the user has confirmed. It
// disappears locally first; when the domain supports it the server then
// deletes every message of the user between the conversation's first and
// last timestamps, both inclusive.
func (s *ChatSession) DeleteConversation(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return validationError("Conferma l'eliminazione della conversazione")
	}
	conv, ok := s.Conversation(id)
	if !ok {
		return validationError(fmt.Sprintf("Conversazione %s non trovata", id))
	}
	ctx = s.ctx(ctx)

	removed := make(map[string]struct{}, len(conv.Entries))
	for _, e := range conv.Entries {
		removed[entryKey(e)] = struct{}{}
	}
	s.update(func() {
		kept := s.entries[:0:0]
		for _, e := range s.entries {
			if _, gone := removed[entryKey(e)]; !gone {
				kept = append(kept, e)
			}
		}
		s.entries = kept

		convs := s.convs[:0:0]
		for _, c := range s.convs {
			if c.ID != id {
				convs = append(convs, c)
			}
		}
		s.convs = convs
	})

	if s.domain.DeletePath == "" {
		s.notify.Push(NotifySuccess, "Conversazione eliminata")
		return nil
	}

	var resp model.DeleteConversationResponse
	err := s.client.Delete(ctx, s.domain.DeletePath, model.DeleteConversationRequest{
		UserID:         s.session.ChatUserID(),
		StartTimestamp: conv.StartTimestamp(),
		EndTimestamp:   conv.EndTimestamp(),
	}, &resp)
	if err == nil && !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = genericErrorMessage
		}
		err = &APIError{Message: msg}
	}
	if err != nil {
		logger.Error(ctx, "conversation delete failed", "conversation", id, "error", err)
		s.notify.Push(NotifyError, err.Error())
		return err
	}

	logger.Info(ctx, "conversation deleted", "conversation", id, "deleted_count", resp.DeletedCount)
	s.notify.Push(NotifySuccess, "Conversazione eliminata")
	return nil
}

func entryKey(e model.ChatEntry) string {
	display := ""
	if e.Content != nil {
		display = e.Content.Display()
	}
	return e.Type + "\x00" + e.Timestamp.String() + "\x00" + display
}

func (s *ChatSession) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ChatSession) snapshotLocked() ChatState {
	return ChatState{
		Entries:       append([]model.ChatEntry(nil), s.entries...),
		Conversations: append([]model.Conversation(nil), s.convs...),
		Sending:       s.sending,
	}
}

func (s *ChatSession) regroupLocked() {
	s.convs = GroupConversations(s.entries)
}

func (s *ChatSession) update(fn func()) {
	s.mu.Lock()
	if !s.scope.Alive() {
		s.mu.Unlock()
		return
	}
	fn()
	listener, snapshot := s.onChange, s.snapshotLocked()
	s.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}
