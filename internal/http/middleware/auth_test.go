package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/services"
)

type fakeAuth struct {
	tokens map[string]services.AuthenticatedMember
	err    error
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (*services.AuthenticatedMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.tokens[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return &m, nil
}

func authRouter(a Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(a))
	who := func(c *gin.Context) {
		id, ok := MemberID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "role": MemberRole(c)})
	}
	r.GET("/open", who)
	r.GET("/closed", RequireMember(), who)
	return r
}

func doAuth(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_ResolvesBearer(t *testing.T) {
	r := authRouter(fakeAuth{tokens: map[string]services.AuthenticatedMember{
		"good": {MemberID: 5, Role: "admin"},
	}})

	for _, path := range []string{"/open", "/closed"} {
		w := doAuth(r, path, "bearer good")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", path, w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["id"] != float64(5) || body["ok"] != true || body["role"] != "admin" {
			t.Fatalf("%s: body=%v", path, body)
		}
	}
}

func TestAuthenticate_AnonymousAndRequired(t *testing.T) {
	r := authRouter(fakeAuth{})

	w := doAuth(r, "/open", "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous open: %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["ok"] != false {
		t.Fatalf("anonymous caller resolved to a member: %v", body)
	}

	w = doAuth(r, "/closed", "")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("anonymous closed: %d %v", w.Code, w.Header())
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	r := authRouter(fakeAuth{tokens: map[string]services.AuthenticatedMember{}})

	for _, h := range []string{"Bearer revoked", "Basic dTpw", "Bearer", "Bearer    "} {
		w := doAuth(r, "/open", h)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%q: status=%d", h, w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["code"] != "unauthorized" {
			t.Fatalf("%q: body=%v", h, body)
		}
	}
}

func TestAuthenticate_StoreFailureIs500(t *testing.T) {
	r := authRouter(fakeAuth{err: errors.New("db down")})
	if w := doAuth(r, "/open", "Bearer x"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"  BEARER   abc  ", "abc", true},
		{"Token abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = (%q, %v)", tc.in, got, ok)
		}
	}
}
