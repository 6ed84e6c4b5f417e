package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	memberID, postID, targetID uint
	key                        string
}

func idemRouter(member uint, opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if member != 0 {
			c.Set(ctxKeyMemberID, member)
		}
		c.Next()
	})
	r.Use(IdempotencyValidator(opts, lookup))
	h := func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": k, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/posts/:postId/comments", h)
	r.POST("/posts/:postId/comments/:commentId/replies", h)
	r.POST("/other", h)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return m
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	called := false
	r := idemRouter(7, IdempotencyOptions{}, func(context.Context, uint, uint, uint, string, time.Time) (bool, error) {
		called = true
		return true, nil
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil))
	if w.Code != http.StatusOK || called {
		t.Fatalf("status=%d called=%v", w.Code, called)
	}
	if body := decode(t, w); body["key"] != "" || body["replay"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	r := idemRouter(7, IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z0-9-]+$`)}, nil)

	for _, key := range []string{"has space", "UPPER", strings.Repeat("a", 9)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status=%d", key, w.Code)
		}
		if body := decode(t, w); body["code"] != "bad_idempotency_key" {
			t.Fatalf("key %q: body=%v", key, body)
		}
	}
}

func TestIdempotencyValidator_DefaultPattern(t *testing.T) {
	r := idemRouter(7, IdempotencyOptions{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
	req.Header.Set(HeaderIdempotencyKey, "Ab.9_~-:x")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
	req.Header.Set(HeaderIdempotencyKey, strings.Repeat("k", 201))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("201-char key accepted: %d", w.Code)
	}
}

func TestIdempotencyValidator_ReplayMarksBypass(t *testing.T) {
	var got lookupCall
	r := idemRouter(7, IdempotencyOptions{}, func(_ context.Context, m, p, target uint, k string, _ time.Time) (bool, error) {
		got = lookupCall{m, p, target, k}
		return true, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts/12/comments", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-1")
	r.ServeHTTP(w, req)

	if got != (lookupCall{7, 12, 0, "retry-1"}) {
		t.Fatalf("lookup called with %+v", got)
	}
	body := decode(t, w)
	if body["key"] != "retry-1" || body["replay"] != true || body["bypass"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_SkipsLookupWithoutMemberOrPost(t *testing.T) {
	calls := 0
	lookup := func(context.Context, uint, uint, uint, string, time.Time) (bool, error) {
		calls++
		return true, nil
	}

	anon := idemRouter(0, IdempotencyOptions{}, lookup)
	req := httptest.NewRequest(http.MethodPost, "/posts/1/comments", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	anon.ServeHTTP(httptest.NewRecorder(), req)

	authed := idemRouter(7, IdempotencyOptions{}, lookup)
	req = httptest.NewRequest(http.MethodPost, "/other", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	w := httptest.NewRecorder()
	authed.ServeHTTP(w, req)

	if calls != 0 {
		t.Fatalf("lookup should not run, ran %d times", calls)
	}
	if body := decode(t, w); body["key"] != "k" || body["replay"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdempotencyValidator_ReplyLookupCarriesTarget(t *testing.T) {
	var calls []lookupCall
	r := idemRouter(7, IdempotencyOptions{}, func(_ context.Context, m, p, target uint, k string, _ time.Time) (bool, error) {
		calls = append(calls, lookupCall{m, p, target, k})
		return target == 0, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/posts/12/comments/30/replies", nil)
	req.Header.Set(HeaderIdempotencyKey, "same")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(calls) != 1 || calls[0] != (lookupCall{7, 12, 30, "same"}) {
		t.Fatalf("lookup calls = %+v", calls)
	}
	if body := decode(t, w); body["replay"] != false {
		t.Fatalf("a root record must not mark a reply as replay: %v", body)
	}
}
