package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/hearth-backend/internal/platform/ctxutil"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func claimsFor(sub string, exp time.Time) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), testSecret).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	user := uuid.New()
	valid := sign(t, testSecret, jwt.SigningMethodHS256, claimsFor(user.String(), time.Now().Add(time.Hour)))

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"valid bearer", "Bearer " + valid, "", http.StatusOK},
		{"valid query", "", valid, http.StatusOK},
		{"wrong secret", "Bearer " + sign(t, "other", jwt.SigningMethodHS256, claimsFor(user.String(), time.Now().Add(time.Hour))), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, testSecret, jwt.SigningMethodHS256, claimsFor(user.String(), time.Now().Add(-time.Minute))), "", http.StatusUnauthorized},
		{"bad subject", "Bearer " + sign(t, testSecret, jwt.SigningMethodHS256, claimsFor("alice", time.Now().Add(time.Hour))), "", http.StatusUnauthorized},
		{"wrong alg", "Bearer " + sign(t, testSecret, jwt.SigningMethodHS512, claimsFor(user.String(), time.Now().Add(time.Hour))), "", http.StatusUnauthorized},
	}
	r := authRouter()
	for _, tc := range cases {
		target := "/me"
		if tc.query != "" {
			target += "?token=" + tc.query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, rec.Code)
		}
		if tc.want == http.StatusOK && rec.Body.String() != user.String() {
			t.Fatalf("%s: user id: want=%s got=%s", tc.name, user, rec.Body.String())
		}
	}
}

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("X-Request-Id: want=req-42 got=%q", rec.Header().Get("X-Request-Id"))
	}
	if seen == nil || seen.RequestID != "req-42" || seen.TraceID == "" {
		t.Fatalf("trace data: got=%+v", seen)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.hearth.example"}))
	r.OPTIONS("/api/entries", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/api/entries", nil)
	req.Header.Set("Origin", "https://app.hearth.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.hearth.example" {
		t.Fatalf("allow-origin: want=https://app.hearth.example got=%q", got)
	}
}
