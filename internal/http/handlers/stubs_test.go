package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/services"
)

// ---------- flexible service stubs ----------

type stubComments struct {
	writeRoot  func(context.Context, services.WriteInput) (services.WriteResult, error)
	writeReply func(context.Context, uint, services.WriteInput) (services.WriteResult, error)
	update     func(context.Context, uint, uint, string, bool) (uint, error)
	del        func(context.Context, uint, uint) (uint, error)
	list       func(context.Context, uint, uint, int, int) (*services.CommentPage, error)
}

func (s stubComments) WriteRoot(ctx context.Context, in services.WriteInput) (services.WriteResult, error) {
	if s.writeRoot != nil {
		return s.writeRoot(ctx, in)
	}
	return services.WriteResult{CommentID: 1}, nil
}

func (s stubComments) WriteReply(ctx context.Context, target uint, in services.WriteInput) (services.WriteResult, error) {
	if s.writeReply != nil {
		return s.writeReply(ctx, target, in)
	}
	return services.WriteResult{CommentID: 2}, nil
}

func (s stubComments) Update(ctx context.Context, id, requester uint, content string, anon bool) (uint, error) {
	if s.update != nil {
		return s.update(ctx, id, requester, content, anon)
	}
	return id, nil
}

func (s stubComments) Delete(ctx context.Context, id, requester uint) (uint, error) {
	if s.del != nil {
		return s.del(ctx, id, requester)
	}
	return id, nil
}

func (s stubComments) List(ctx context.Context, postID, viewer uint, page, size int) (*services.CommentPage, error) {
	if s.list != nil {
		return s.list(ctx, postID, viewer, page, size)
	}
	return &services.CommentPage{PageNumber: page, PageSize: size}, nil
}

type stubLedger struct {
	find func(context.Context, uint, uint) (int, error)
}

func (s stubLedger) FindNumber(ctx context.Context, postID, memberID uint) (int, error) {
	if s.find != nil {
		return s.find(ctx, postID, memberID)
	}
	return 1, nil
}

type stubIdentity struct {
	login   func(context.Context, services.OAuthProfile) (*services.Session, error)
	refresh func(context.Context, string) (*services.Session, error)
}

func (s stubIdentity) Login(ctx context.Context, p services.OAuthProfile) (*services.Session, error) {
	if s.login != nil {
		return s.login(ctx, p)
	}
	return &services.Session{}, nil
}

func (s stubIdentity) Refresh(ctx context.Context, tok string) (*services.Session, error) {
	if s.refresh != nil {
		return s.refresh(ctx, tok)
	}
	return &services.Session{}, nil
}

// ---------- request helpers ----------

// asMember pretends the auth middleware resolved memberID.
func asMember(memberID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if memberID != 0 {
			c.Set("memberID", memberID)
		}
		c.Next()
	}
}

func do(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
