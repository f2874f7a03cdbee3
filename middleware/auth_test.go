package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		JWTSecret:        "test-secret-key",
		TokenExpireHours: 24,
	}
}

func TestGenerateToken(t *testing.T) {
	cfg := testServerConfig()

	token, expiresAt, err := GenerateToken(model.User{ID: "7", Username: "mario"}, cfg)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Expected non-empty token")
	}

	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}

	claims, err := ParseToken(token, cfg)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != "7" || claims.Username != "mario" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestSessionAuth(t *testing.T) {
	cfg := testServerConfig()

	token, _, err := GenerateToken(model.User{ID: "7", Username: "mario"}, cfg)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name           string
		cookie         string
		authHeader     string
		expectedStatus int
	}{
		{name: "session cookie", cookie: token, expectedStatus: http.StatusOK},
		{name: "bearer fallback", authHeader: "Bearer " + token, expectedStatus: http.StatusOK},
		{name: "no credentials", expectedStatus: http.StatusUnauthorized},
		{name: "header without scheme", authHeader: token, expectedStatus: http.StatusUnauthorized},
		{name: "invalid cookie", cookie: "invalid.token.here", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SessionAuth(cfg))
			router.GET("/test", func(c *gin.Context) {
				uid, _ := c.Request.Context().Value(logger.UserIDKey).(string)
				c.JSON(http.StatusOK, gin.H{
					"username": GetUsername(c),
					"user_id":  GetUserID(c),
					"ctx_uid":  uid,
				})
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && w.Body.String() != `{"ctx_uid":"7","user_id":"7","username":"mario"}` {
				t.Errorf("Unexpected identity: %s", w.Body.String())
			}
		})
	}
}

func TestSessionAuthExpiredToken(t *testing.T) {
	cfg := testServerConfig()

	claims := Claims{
		UserID:   "7",
		Username: "mario",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))

	router := gin.New()
	router.Use(SessionAuth(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for expired token, got %d", w.Code)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, _ := GenerateToken(model.User{ID: "1", Username: "a"}, testServerConfig())

	if _, err := ParseToken(token, &config.ServerConfig{JWTSecret: "other"}); err == nil {
		t.Error("Expected error for token signed with another secret")
	}
}

func TestSetSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/login", nil)

	SetSessionCookie(c, "tok", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie || cookies[0].Value != "tok" || !cookies[0].HttpOnly {
		t.Fatalf("Unexpected cookies: %+v", cookies)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/logout", nil)

	SetSessionCookie(c, "", time.Time{})

	cookies = w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected clearing cookie, got %+v", cookies)
	}
}

func TestGetUsernameEmpty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUsername(c) != "" || GetUserID(c) != "" {
		t.Error("Expected empty identity without session")
	}
}
