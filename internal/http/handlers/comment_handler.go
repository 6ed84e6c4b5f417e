// Comment HTTP handlers.
//
// This file exposes REST endpoints for post comments:
//   - GET    /posts/{postId}/comments                            (list, paginated, ETag support)
//   - POST   /posts/{postId}/comments                            (new thread root)
//   - POST   /posts/{postId}/comments/{commentId}/replies        (reply)
//   - PUT    /comments/{commentId}                               (edit own comment)
//   - DELETE /comments/{commentId}                               (delete own comment)
//
// Handlers are transport-thin: they validate input, call the comment service,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/http/middleware"
	"github.com/tbourn/go-board-backend/internal/services"
	"github.com/tbourn/go-board-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

//
// DTOs
//

// WriteCommentRequest is the JSON payload for creating or editing a comment.
type WriteCommentRequest struct {
	// Content is the comment body; it is trimmed and must not end up empty.
	Content string `json:"content" example:"I had the same problem last week"`
	// Anonymous hides the author's nickname behind their anonymous number.
	Anonymous bool `json:"anonymous" example:"true"`
}

// CommentIDResponse identifies the comment a write touched.
type CommentIDResponse struct {
	CommentID uint `json:"comment_id" example:"17"`
}

// Pagination carries pagination metadata for list responses. Page is
// zero-based.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCommentsResponse wraps a page of comments and pagination information.
type ListCommentsResponse struct {
	Comments   []services.CommentView `json:"comments"`
	Pagination Pagination             `json:"pagination"`
}

//
// Helpers
//

// pagination reads page and page_size. Missing or unparsable values take the
// defaults; out-of-range values are left for the service to reject.
func pagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 0)
	pageSize = utils.CapPageSize(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), maxPageSize)
	return
}

// pathID parses a positive id path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, valid := utils.ParseID(c.Param(name))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func bindComment(c *gin.Context) (WriteCommentRequest, bool) {
	var req WriteCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func writeInput(c *gin.Context, postID uint, req WriteCommentRequest) services.WriteInput {
	key, _ := middleware.GetIdempotencyKey(c)
	return services.WriteInput{
		PostID:         postID,
		MemberID:       memberID(c),
		Content:        req.Content,
		Anonymous:      req.Anonymous,
		IdempotencyKey: key,
	}
}

func created(c *gin.Context, res services.WriteResult) {
	if res.Replayed {
		c.Header(middleware.HeaderIdempotentReplay, "true")
	}
	ok(c, http.StatusCreated, CommentIDResponse{CommentID: res.CommentID})
}

//
// Handlers
//

// ListComments godoc
// @ID          listComments
// @Summary     List a post's comments (paginated)
// @Description Returns one page of comments ordered by thread, then by creation time. Anonymous comments are labelled "anonymous N". Authentication is optional; it only affects the "mine" flag. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Comments
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer access token"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       postId         path    int     true  "Post ID"                     minimum(1)
// @Param       page           query   int     false "Page number (zero-based)"    minimum(0) default(0)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCommentsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /posts/{postId}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	postID, valid := pathID(c, "postId")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	viewer := memberID(c)
	page, pageSize := pagination(c)

	// ETag pre-check (best effort).
	var etag string
	if h.stats != nil {
		if count, maxTS, err := h.stats(ctx, postID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag = fmt.Sprintf(`W/"comments:%d:%d:%d:%d:%d:%d"`, postID, viewer, page, pageSize, count, ts)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Header("ETag", etag)
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	res, err := h.comments.List(ctx, postID, viewer, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((res.Total + int64(res.PageSize) - 1) / int64(res.PageSize))
	if etag != "" {
		c.Header("ETag", etag)
	}
	ok(c, http.StatusOK, ListCommentsResponse{
		Comments: res.Items,
		Pagination: Pagination{
			Page:       res.PageNumber,
			PageSize:   res.PageSize,
			Total:      res.Total,
			TotalPages: totalPages,
			HasNext:    res.PageNumber < totalPages-1,
		},
	})
}

// CreateComment godoc
// @ID          createComment
// @Summary     Start a new thread on a post
// @Description Creates a root comment. The author's anonymous number on the post is assigned on first comment. An Idempotency-Key makes retries return the first result.
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true  "Bearer access token"
// @Param       Idempotency-Key  header  string  false "Client-supplied retry key"  example(7b0c1f6a-comment-1)
// @Param       postId           path    int     true  "Post ID"  minimum(1)
// @Param       body             body    handlers.WriteCommentRequest  true  "Comment"
//
// @Success     201  {object}  handlers.CommentIDResponse
// @Header      201  {string}  Idempotent-Replay  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Concurrent update, retry"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{postId}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	postID, valid := pathID(c, "postId")
	if !valid {
		return
	}
	req, valid := bindComment(c)
	if !valid {
		return
	}

	res, err := h.comments.WriteRoot(c.Request.Context(), writeInput(c, postID, req))
	if err != nil {
		failService(c, err)
		return
	}
	created(c, res)
}

// CreateReply godoc
// @ID          createReply
// @Summary     Reply to a comment
// @Description Creates a reply in the target comment's thread. Replying to a reply stays in the same thread. The target must belong to the addressed post.
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true  "Bearer access token"
// @Param       Idempotency-Key  header  string  false "Client-supplied retry key"
// @Param       postId           path    int     true  "Post ID"            minimum(1)
// @Param       commentId        path    int     true  "Target comment ID"  minimum(1)
// @Param       body             body    handlers.WriteCommentRequest  true  "Reply"
//
// @Success     201  {object}  handlers.CommentIDResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Post or comment not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Concurrent update, retry"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{postId}/comments/{commentId}/replies [post]
func (h *Handlers) CreateReply(c *gin.Context) {
	postID, valid := pathID(c, "postId")
	if !valid {
		return
	}
	targetID, valid := pathID(c, "commentId")
	if !valid {
		return
	}
	req, valid := bindComment(c)
	if !valid {
		return
	}

	res, err := h.comments.WriteReply(c.Request.Context(), targetID, writeInput(c, postID, req))
	if err != nil {
		failService(c, err)
		return
	}
	created(c, res)
}

// UpdateComment godoc
// @ID          updateComment
// @Summary     Edit own comment
// @Description Replaces content and the anonymous flag of a comment written by the caller. Thread placement and anonymous number are unchanged.
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer access token"
// @Param       commentId      path    int     true  "Comment ID"  minimum(1)
// @Param       body           body    handlers.WriteCommentRequest  true  "New content"
//
// @Success     200  {object}  handlers.CommentIDResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Comment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments/{commentId} [put]
func (h *Handlers) UpdateComment(c *gin.Context) {
	commentID, valid := pathID(c, "commentId")
	if !valid {
		return
	}
	req, valid := bindComment(c)
	if !valid {
		return
	}

	id, err := h.comments.Update(c.Request.Context(), commentID, memberID(c), req.Content, req.Anonymous)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CommentIDResponse{CommentID: id})
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete own comment
// @Description Hard-deletes a comment written by the caller. Replies to a deleted root stay in place, and the author keeps their anonymous number.
// @Tags        Comments
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer access token"
// @Param       commentId      path    int     true  "Comment ID"  minimum(1)
//
// @Success     200  {object}  handlers.CommentIDResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Comment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments/{commentId} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	commentID, valid := pathID(c, "commentId")
	if !valid {
		return
	}

	id, err := h.comments.Delete(c.Request.Context(), commentID, memberID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CommentIDResponse{CommentID: id})
}
