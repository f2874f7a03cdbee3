package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
	"github.com/nrenier/ICorNet-sub000/store"
)

// ChatHandler serves one recommendation chat. Logs are keyed by the user_id
// the client sends.
type ChatHandler struct {
	chat     string
	dataset  store.Dataset
	log      *store.ChatLog
	fixtures *store.Fixtures
	now      func() time.Time
}

func NewChatHandler(chat string, ds store.Dataset, log *store.ChatLog, fixtures *store.Fixtures) *ChatHandler {
	return &ChatHandler{chat: chat, dataset: ds, log: log, fixtures: fixtures, now: time.Now}
}

// SendMessage records the user message and answers with a recommendation
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Richiesta non valida"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messaggio e user_id sono obbligatori"})
		return
	}

	ctx := logger.WithValues(c.Request.Context(), req.UserID, h.chat)
	sent := req.Timestamp
	if sent.IsZero() {
		sent = h.timestamp()
	}
	if err := h.log.Append(h.chat, req.UserID, model.MessageUser, req.Message, sent); err != nil {
		logger.Error(ctx, "failed to log user message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Errore nel salvataggio del messaggio"})
		return
	}

	reply := store.Recommend(h.fixtures, h.dataset, req.Message)
	if req.Region != "" || req.Province != "" {
		reply["filtri"] = map[string]string{"region": req.Region, "province": req.Province}
	}
	if err := h.log.Append(h.chat, req.UserID, model.MessageAssistant, reply, h.timestamp()); err != nil {
		logger.Error(ctx, "failed to log assistant reply", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Errore nel salvataggio della risposta"})
		return
	}

	logger.Debug(ctx, "chat reply sent", "message_length", len(req.Message))
	c.JSON(http.StatusOK, reply)
}

// History returns the message log of ?user_id=
func (h *ChatHandler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, model.ChatHistoryResponse{Error: "user_id è obbligatorio"})
		return
	}
	c.JSON(http.StatusOK, model.ChatHistoryResponse{
		Success: true,
		History: h.log.History(h.chat, userID),
	})
}

// DeleteConversation removes the messages of a timestamp range, both ends
// included
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	var req model.DeleteConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.StartTimestamp.IsZero() || req.EndTimestamp.IsZero() {
		c.JSON(http.StatusBadRequest, model.DeleteConversationResponse{Error: "user_id, start_timestamp ed end_timestamp sono obbligatori"})
		return
	}
	if store.CompareTimestamps(req.StartTimestamp, req.EndTimestamp) > 0 {
		req.StartTimestamp, req.EndTimestamp = req.EndTimestamp, req.StartTimestamp
	}

	n := h.log.DeleteRange(h.chat, req.UserID, req.StartTimestamp, req.EndTimestamp)
	logger.Info(logger.WithValues(c.Request.Context(), req.UserID, h.chat), "conversation deleted", "deleted", n)

	c.JSON(http.StatusOK, model.DeleteConversationResponse{Success: true, DeletedCount: n})
}

func (h *ChatHandler) timestamp() model.Timestamp {
	return model.TextTimestamp(h.now().UTC().Format(time.RFC3339Nano))
}
