package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/http/middleware"
	"github.com/tbourn/go-board-backend/internal/repo"
	"github.com/tbourn/go-board-backend/internal/services"
)

// ---------- helpers-only tests ----------

func Test_pagination_Defaults_And_Cap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var p, ps int
	r.GET("/", func(c *gin.Context) { p, ps = pagination(c) })

	do(r, http.MethodGet, "/", "")
	if p != 0 || ps != defaultPageSize {
		t.Fatalf("defaults p=%d ps=%d", p, ps)
	}
	do(r, http.MethodGet, "/?page=3&page_size=9999", "")
	if p != 3 || ps != maxPageSize {
		t.Fatalf("cap p=%d ps=%d", p, ps)
	}
	do(r, http.MethodGet, "/?page=-1&page_size=0", "")
	if p != -1 || ps != 0 {
		t.Fatalf("out-of-range values must reach the service, got p=%d ps=%d", p, ps)
	}
}

// ---------- writes (stubbed service) ----------

func TestCreateComment_Validation_Replay(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got services.WriteInput
	cs := stubComments{
		writeRoot: func(_ context.Context, in services.WriteInput) (services.WriteResult, error) {
			got = in
			if in.Content == "" {
				return services.WriteResult{}, services.ErrEmptyContent
			}
			return services.WriteResult{CommentID: 11, Replayed: in.IdempotencyKey == "seen"}, nil
		},
	}
	h := New(cs, stubLedger{}, stubIdentity{}, nil)
	r := gin.New()
	r.Use(asMember(7))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, nil))
	r.POST("/posts/:postId/comments", h.CreateComment)

	// Bad id / bad JSON
	if w := do(r, http.MethodPost, "/posts/abc/comments", `{"content":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/posts/1/comments", `{bad`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}

	// Empty content -> service error code
	w := do(r, http.MethodPost, "/posts/1/comments", `{"content":""}`)
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if w.Code != http.StatusBadRequest || er.Code != ErrCodeEmptyContent {
		t.Fatalf("empty -> %d %q", w.Code, er.Code)
	}

	// Created; input carries member, post and flags
	w = do(r, http.MethodPost, "/posts/1/comments", `{"content":"hi","anonymous":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d", w.Code)
	}
	if got.PostID != 1 || got.MemberID != 7 || !got.Anonymous || got.Content != "hi" {
		t.Fatalf("unexpected input: %+v", got)
	}
	if w.Header().Get(middleware.HeaderIdempotentReplay) != "" {
		t.Fatalf("fresh write marked as replay")
	}

	// Replay header
	w = do(r, http.MethodPost, "/posts/1/comments", `{"content":"hi"}`, middleware.HeaderIdempotencyKey, "seen")
	if w.Code != http.StatusCreated || w.Header().Get(middleware.HeaderIdempotentReplay) != "true" {
		t.Fatalf("replay -> %d %q", w.Code, w.Header().Get(middleware.HeaderIdempotentReplay))
	}
	if got.IdempotencyKey != "seen" {
		t.Fatalf("key not forwarded: %q", got.IdempotencyKey)
	}
}

func TestCreateReply_TargetAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var target uint
	cs := stubComments{
		writeReply: func(_ context.Context, id uint, in services.WriteInput) (services.WriteResult, error) {
			target = id
			if id == 99 {
				return services.WriteResult{}, services.ErrCommentNotFound
			}
			return services.WriteResult{CommentID: 12}, nil
		},
	}
	h := New(cs, stubLedger{}, stubIdentity{}, nil)
	r := gin.New()
	r.Use(asMember(7))
	r.POST("/posts/:postId/comments/:commentId/replies", h.CreateReply)

	w := do(r, http.MethodPost, "/posts/1/comments/5/replies", `{"content":"re"}`)
	if w.Code != http.StatusCreated || target != 5 {
		t.Fatalf("reply -> %d target=%d", w.Code, target)
	}
	var resp CommentIDResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.CommentID != 12 {
		t.Fatalf("comment_id=%d", resp.CommentID)
	}
	if w := do(r, http.MethodPost, "/posts/1/comments/x/replies", `{"content":"re"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad target id -> %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/posts/1/comments/99/replies", `{"content":"re"}`); w.Code != http.StatusNotFound {
		t.Fatalf("missing target -> %d", w.Code)
	}
}

func TestUpdateDelete_Ownership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	owned := func(id, requester uint) error {
		switch {
		case id == 404:
			return services.ErrCommentNotFound
		case requester != 7:
			return services.ErrUnauthorized
		}
		return nil
	}
	cs := stubComments{
		update: func(_ context.Context, id, requester uint, _ string, _ bool) (uint, error) {
			return id, owned(id, requester)
		},
		del: func(_ context.Context, id, requester uint) (uint, error) {
			return id, owned(id, requester)
		},
	}
	h := New(cs, stubLedger{}, stubIdentity{}, nil)

	for _, tc := range []struct {
		member uint
		id     string
		want   int
	}{
		{7, "3", http.StatusOK},
		{8, "3", http.StatusForbidden},
		{7, "404", http.StatusNotFound},
		{7, "-1", http.StatusBadRequest},
	} {
		r := gin.New()
		r.Use(asMember(tc.member))
		r.PUT("/comments/:commentId", h.UpdateComment)
		r.DELETE("/comments/:commentId", h.DeleteComment)

		if w := do(r, http.MethodPut, "/comments/"+tc.id, `{"content":"edit"}`); w.Code != tc.want {
			t.Fatalf("PUT member=%d id=%s -> %d want %d", tc.member, tc.id, w.Code, tc.want)
		}
		if w := do(r, http.MethodDelete, "/comments/"+tc.id, ""); w.Code != tc.want {
			t.Fatalf("DELETE member=%d id=%s -> %d want %d", tc.member, tc.id, w.Code, tc.want)
		}
	}
}

// ---------- end to end on SQLite ----------

type boardDB struct {
	db       *gorm.DB
	comments *services.CommentService
	ledger   *services.LedgerService
}

func newBoardDB(t *testing.T) *boardDB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, repo.AutoMigrate(db))
	require.NoError(t, repo.SeedRoles(context.Background(), db, "user"))

	tx := services.TxRunner{DB: db}
	return &boardDB{
		db:       db,
		comments: &services.CommentService{Tx: tx},
		ledger:   &services.LedgerService{Tx: tx},
	}
}

func (b *boardDB) member(t *testing.T, name string) uint {
	t.Helper()
	role, err := repo.FindRoleByType(context.Background(), b.db, "user")
	require.NoError(t, err)
	m := &domain.Member{OAuthIdentifier: "sub-" + name, OAuthProvider: "google", Nickname: name, RoleID: role.ID}
	require.NoError(t, repo.CreateMember(context.Background(), b.db, m))
	return m.ID
}

func (b *boardDB) router(viewer uint) *gin.Engine {
	h := New(b.comments, b.ledger, stubIdentity{}, func(ctx context.Context, postID uint) (int64, *time.Time, error) {
		return repo.CommentsStats(ctx, b.db, postID)
	})
	r := gin.New()
	r.Use(asMember(viewer))
	r.GET("/posts/:postId/comments", h.ListComments)
	r.POST("/posts/:postId/comments", h.CreateComment)
	r.POST("/posts/:postId/comments/:commentId/replies", h.CreateReply)
	r.GET("/posts/:postId/anonymous-number", h.AnonymousNumber)
	return r
}

func TestComments_EndToEnd_LabelsAndETag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := newBoardDB(t)

	a, bb, c := b.member(t, "alice"), b.member(t, "bob"), b.member(t, "carol")
	post, err := repo.CreatePost(context.Background(), b.db, a, "t", "body")
	require.NoError(t, err)
	base := fmt.Sprintf("/posts/%d", post.ID)

	create := func(viewer uint, path, body string) uint {
		w := do(b.router(viewer), http.MethodPost, path, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp CommentIDResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.CommentID
	}

	// Nobody has commented yet, so reading does not hand out #1.
	w := do(b.router(c), http.MethodGet, base+"/anonymous-number", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeNumberNotAssigned)

	root := create(a, base+"/comments", `{"content":"root","anonymous":true}`)
	create(bb, fmt.Sprintf("%s/comments/%d/replies", base, root), `{"content":"reply","anonymous":true}`)
	create(c, base+"/comments", `{"content":"named"}`)

	// Carol's number came from her comment; the endpoint returns it.
	w = do(b.router(c), http.MethodGet, base+"/anonymous-number", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":3`)

	// Bob lists: thread order, labels, mine flag, ETag.
	w = do(b.router(bb), http.MethodGet, base+"/comments?page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var resp ListCommentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Comments, 3)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasNext)

	assert.Equal(t, "anonymous 1", resp.Comments[0].Label)
	assert.True(t, resp.Comments[0].Root)
	assert.Equal(t, "anonymous 2", resp.Comments[1].Label)
	assert.False(t, resp.Comments[1].Root)
	assert.True(t, resp.Comments[1].Mine)
	assert.Equal(t, resp.Comments[0].ID, resp.Comments[1].GroupID)
	assert.Equal(t, "carol", resp.Comments[2].Label)
	assert.False(t, resp.Comments[2].Mine)

	// Same viewer, same state -> 304.
	w = do(b.router(bb), http.MethodGet, base+"/comments?page_size=10", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	// Another viewer sees different "mine" flags, so the tag differs.
	w = do(b.router(a), http.MethodGet, base+"/comments?page_size=10", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)

	// A new comment invalidates the tag.
	create(a, base+"/comments", `{"content":"more"}`)
	w = do(b.router(bb), http.MethodGet, base+"/comments?page_size=10", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)

	// Paging and errors.
	w = do(b.router(0), http.MethodGet, base+"/comments?page=1&page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Comments, 2)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasNext)

	// A page far past the end, large enough to overflow page*page_size.
	w = do(b.router(0), http.MethodGet, base+"/comments?page=9223372036854775807&page_size=100", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = ListCommentsResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Comments)
	assert.Equal(t, int64(4), resp.Pagination.Total)
	assert.False(t, resp.Pagination.HasNext)

	w = do(b.router(0), http.MethodGet, base+"/comments?page_size=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))

	w = do(b.router(0), http.MethodGet, "/posts/999/comments", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
