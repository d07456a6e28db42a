package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const testSecret = "test-secret"

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTMiddleware(testSecret, zerolog.Nop()))
	r.GET("/protected", func(c *gin.Context) {
		address, ok := GetAddress(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"address": address})
	})
	return r
}

func request(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "0xabc", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	w := request(testRouter(), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token = %d: %s", w.Code, w.Body.String())
	}
}

func TestJWTMiddlewareRejections(t *testing.T) {
	expired, err := GenerateToken(testSecret, "0xabc", -time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	wrongSecret, err := GenerateToken("other-secret", "0xabc", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	noAddress, err := GenerateToken(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "not-a-bearer-token"},
		{"wrong prefix", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"empty address", "Bearer " + noAddress},
	}

	r := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := request(r, tt.header); w.Code != http.StatusUnauthorized {
				t.Errorf("got %d, want 401", w.Code)
			}
		})
	}
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "0xabc", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
}
