package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/middleware"
	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/store"
)

type AuthHandler struct {
	config *config.ServerConfig
	users  *store.UserStore
}

func NewAuthHandler(cfg *config.ServerConfig, users *store.UserStore) *AuthHandler {
	return &AuthHandler{config: cfg, users: users}
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username e password sono obbligatori"})
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		slog.Warn("login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenziali non valide"})
		return
	}

	h.openSession(c, user, http.StatusOK)
}

// Register creates an account and logs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Richiesta non valida"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username, email e password sono obbligatori"})
		return
	}

	user, err := h.users.Register(req)
	if errors.Is(err, store.ErrUserExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username già registrato"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registrazione non riuscita"})
		return
	}

	slog.Info("user registered", "username", user.Username, "user_id", user.ID)
	h.openSession(c, user, http.StatusCreated)
}

func (h *AuthHandler) openSession(c *gin.Context, user model.User, status int) {
	token, expiresAt, err := middleware.GenerateToken(user, h.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossibile creare la sessione"})
		return
	}
	middleware.SetSessionCookie(c, token, expiresAt)
	c.JSON(status, model.UserResponse{User: user})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.SetSessionCookie(c, "", time.Time{})
	c.JSON(http.StatusOK, gin.H{"message": "Logout effettuato"})
}

// CurrentUser returns the session user
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	username := middleware.GetUsername(c)
	user, ok := h.users.Get(username)
	if !ok {
		// Account dropped by a restart; the token is still trusted.
		user = model.User{ID: middleware.GetUserID(c), Username: username}
	}
	c.JSON(http.StatusOK, model.UserResponse{User: user})
}
