package services

import (
	"context"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/observability"
	"github.com/tbourn/go-board-backend/internal/repo"
	"github.com/tbourn/go-board-backend/internal/sysutil"
)

// CommentView is a comment as shown to one particular viewer.
type CommentView struct {
	ID        uint      `json:"id"`
	GroupID   uint      `json:"group_id"`
	Content   string    `json:"content"`
	Anonymous bool      `json:"anonymous"`
	Root      bool      `json:"root"`
	Number    int       `json:"number"`
	Label     string    `json:"label"`
	Mine      bool      `json:"mine"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentPage is one page of a post's comments.
type CommentPage struct {
	Items      []CommentView
	Total      int64
	PageNumber int
	PageSize   int
}

// AnonymousLabel renders the pseudonym for number.
func AnonymousLabel(number int) string {
	return "anonymous " + strconv.Itoa(number)
}

// List returns page pageNumber (zero-based) of postID's comments, ordered by
// thread and then by creation time, as seen by viewerID. A viewerID of 0 is
// an unauthenticated viewer, for whom no comment is "mine".
//
// Errors: ErrInvalidPage, ErrPostNotFound.
func (s *CommentService) List(ctx context.Context, postID, viewerID uint, pageNumber, pageSize int) (*CommentPage, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int64("post.id", int64(postID)),
			attribute.Int("page", pageNumber),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if pageNumber < 0 || pageSize <= 0 {
		return nil, ErrInvalidPage
	}

	db := s.Tx.DB
	if err := requirePost(ctx, db, postID); err != nil {
		return nil, err
	}

	total, err := repo.CountComments(ctx, db, postID)
	if err != nil {
		return nil, err
	}
	page := &CommentPage{Items: []CommentView{}, Total: total, PageNumber: pageNumber, PageSize: pageSize}
	// Pages past the end are empty; so are pages whose offset overflows int.
	if pageNumber > (math.MaxInt-1)/pageSize || int64(pageNumber)*int64(pageSize) >= total {
		return page, nil
	}
	offset := pageNumber * pageSize

	rows, err := repo.ListCommentsPage(ctx, db, postID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		page.Items = append(page.Items, viewOf(&rows[i], viewerID))
	}
	return page, nil
}

// viewOf renders c for viewerID. c must have Number and Member preloaded.
func viewOf(c *domain.Comment, viewerID uint) CommentView {
	v := CommentView{
		ID:        c.ID,
		GroupID:   c.ID,
		Content:   c.Content,
		Anonymous: c.Anonymous,
		Root:      c.IsRoot(),
		Number:    c.Number.Number,
		Mine:      viewerID != 0 && c.MemberID == viewerID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.GroupID != nil {
		v.GroupID = *c.GroupID
	}
	anon := AnonymousLabel(v.Number)
	if c.Anonymous {
		v.Label = anon
	} else {
		v.Label = sysutil.FirstNonEmpty(c.Member.Nickname, anon)
	}
	return v
}
