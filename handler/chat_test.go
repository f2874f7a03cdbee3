package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/store"
)

func setupChatRouter(chat string, ds store.Dataset) (*gin.Engine, *store.ChatLog) {
	log := store.NewChatLog()
	handler := NewChatHandler(chat, ds, log, store.DefaultFixtures())
	handler.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC) }

	router := gin.New()
	router.POST("/send-message", handler.SendMessage)
	router.GET("/chat-history", handler.History)
	router.DELETE("/delete-conversation", handler.DeleteConversation)
	return router, log
}

func TestChatHandlerSendMessage(t *testing.T) {
	router, log := setupChatRouter("suk", store.DatasetCompanies)

	w := doJSON(t, router, http.MethodPost, "/send-message", model.SendMessageRequest{
		Message:   "cerco partner ICT",
		Timestamp: model.TextTimestamp("2024-05-01T10:00:00Z"),
		UserID:    "mario",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var reply map[string]any
	decode(t, w, &reply)
	for _, key := range []string{"potenziali_fornitori", "potenziali_clienti", "analisi"} {
		if _, ok := reply[key]; !ok {
			t.Errorf("Expected key %s in reply %v", key, reply)
		}
	}

	h := log.History("suk", "mario")
	if len(h) != 2 {
		t.Fatalf("Expected user and assistant messages, got %d", len(h))
	}
	if h[0].MessageType != model.MessageUser || h[0].Timestamp.String() != "2024-05-01T10:00:00Z" {
		t.Errorf("Unexpected user entry: %+v", h[0])
	}
	if h[1].MessageType != model.MessageAssistant || h[1].Timestamp.String() != "2024-05-01T10:00:01Z" {
		t.Errorf("Unexpected assistant entry: %+v", h[1])
	}
}

func TestChatHandlerSendMessageWithLocation(t *testing.T) {
	router, _ := setupChatRouter("startup", store.DatasetStartup)

	w := doJSON(t, router, http.MethodPost, "/send-message", model.SendMessageRequest{
		Message:  "startup di computer vision",
		UserID:   "mario",
		Region:   "Lazio",
		Province: "Roma",
	})
	var reply map[string]any
	decode(t, w, &reply)

	if names, _ := reply["startup_consigliate"].([]any); len(names) != 1 || names[0] != "NeuroLab" {
		t.Errorf("Expected NeuroLab, got %v", reply["startup_consigliate"])
	}
	filters, _ := reply["filtri"].(map[string]any)
	if filters["region"] != "Lazio" || filters["province"] != "Roma" {
		t.Errorf("Expected location filters, got %v", reply["filtri"])
	}
}

func TestChatHandlerSendMessageValidation(t *testing.T) {
	router, log := setupChatRouter("suk", store.DatasetCompanies)

	w := doJSON(t, router, http.MethodPost, "/send-message", model.SendMessageRequest{Message: "   ", UserID: "mario"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if len(log.History("suk", "mario")) != 0 {
		t.Error("Rejected message must not be logged")
	}
}

func TestChatHandlerHistory(t *testing.T) {
	router, log := setupChatRouter("suk", store.DatasetCompanies)
	_ = log.Append("suk", "mario", model.MessageUser, "ciao", model.TextTimestamp("1"))

	var response model.ChatHistoryResponse
	decode(t, doJSON(t, router, http.MethodGet, "/chat-history?user_id=mario", nil), &response)
	if !response.Success || len(response.History) != 1 {
		t.Errorf("Unexpected history: %+v", response)
	}

	w := doJSON(t, router, http.MethodGet, "/chat-history", nil)
	response = model.ChatHistoryResponse{}
	decode(t, w, &response)
	if w.Code != http.StatusBadRequest || response.Success {
		t.Errorf("Expected failure without user_id, got %d %+v", w.Code, response)
	}
}

func TestChatHandlerDeleteConversation(t *testing.T) {
	router, log := setupChatRouter("startup", store.DatasetStartup)
	for _, ts := range []string{"1", "2", "3", "4"} {
		_ = log.Append("startup", "mario", model.MessageUser, "m", model.TextTimestamp(ts))
	}

	// Reversed bounds are normalized.
	w := doJSON(t, router, http.MethodDelete, "/delete-conversation", model.DeleteConversationRequest{
		UserID: "mario", StartTimestamp: model.TextTimestamp("3"), EndTimestamp: model.TextTimestamp("2"),
	})
	var response model.DeleteConversationResponse
	decode(t, w, &response)
	if !response.Success || response.DeletedCount != 2 {
		t.Errorf("Unexpected response: %+v", response)
	}
	if len(log.History("startup", "mario")) != 2 {
		t.Errorf("Expected 2 messages left")
	}

	w = doJSON(t, router, http.MethodDelete, "/delete-conversation", model.DeleteConversationRequest{UserID: "mario"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without range, got %d", w.Code)
	}
}
