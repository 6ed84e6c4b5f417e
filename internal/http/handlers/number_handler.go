package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-board-backend/internal/services"
)

// AnonymousNumberResponse is the caller's pseudonym on a post.
type AnonymousNumberResponse struct {
	PostID uint   `json:"post_id" example:"1"`
	Number int    `json:"number"  example:"3"`
	Label  string `json:"label"   example:"anonymous 3"`
}

// AnonymousNumber godoc
// @ID          anonymousNumber
// @Summary     Get the caller's anonymous number on a post
// @Description Returns the number the caller was given when they first commented on the post. Reading never assigns one: a member without comments on the post gets 404 number_not_assigned.
// @Tags        Comments
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer access token"
// @Param       postId         path    int     true  "Post ID"  minimum(1)
//
// @Success     200  {object}  handlers.AnonymousNumberResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found or no number yet"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/{postId}/anonymous-number [get]
func (h *Handlers) AnonymousNumber(c *gin.Context) {
	postID, valid := pathID(c, "postId")
	if !valid {
		return
	}

	n, err := h.ledger.FindNumber(c.Request.Context(), postID, memberID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, AnonymousNumberResponse{
		PostID: postID,
		Number: n,
		Label:  services.AnonymousLabel(n),
	})
}
