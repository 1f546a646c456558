package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"compliancedesk-backend/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key"

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, expiresAt, err := GenerateToken(userID, "owner@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("expiry too early: %v", expiresAt)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	otherSecret, _, _ := GenerateToken(userID, "", "another-secret", time.Hour)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"missing bearer prefix", token, http.StatusUnauthorized},
		{"garbage token", "Bearer invalid.token.here", http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherSecret, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(testSecret))
			router.GET("/test", func(c *gin.Context) {
				id, ok := UserID(c)
				if !ok || id != userID {
					c.Status(http.StatusTeapot)
					return
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("status: want=%d got=%d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, _, err := GenerateToken(uuid.New(), "", "", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger.Nop()))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("header: want=%q got=%q", "req-123", got)
	}
	if w.Body.String() != "req-123" {
		t.Fatalf("context id: got=%q", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("generated id should be a uuid: %q", w.Header().Get("X-Request-ID"))
	}
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(logger.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", w.Code)
	}
}
