package domain

import (
	"strconv"
	"time"
)

// IdempotencyScopeRoot is the scope of root comment writes.
const IdempotencyScopeRoot = "root"

// IdempotencyScope names the write endpoint a key belongs to: "root" for a
// new thread, "reply:<id>" for a reply to comment id.
func IdempotencyScope(targetID uint) string {
	if targetID == 0 {
		return IdempotencyScopeRoot
	}
	return "reply:" + strconv.FormatUint(uint64(targetID), 10)
}

// Idempotency records the outcome of a comment write performed under an
// Idempotency-Key, keyed by (member_id, post_id, scope, key). A retried
// request with the same key and scope resolves to the stored comment instead
// of writing again. The stored comment id is replayed as is, even if that
// comment has been deleted since.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	MemberID  uint      `gorm:"not null;uniqueIndex:ux_idem_member_post_scope_key,priority:1"`
	PostID    uint      `gorm:"not null;uniqueIndex:ux_idem_member_post_scope_key,priority:2"`
	Scope     string    `gorm:"type:varchar(40);not null;default:root;uniqueIndex:ux_idem_member_post_scope_key,priority:3"`
	Key       string    `gorm:"column:idem_key;type:varchar(200);not null;uniqueIndex:ux_idem_member_post_scope_key,priority:4"`
	CommentID uint      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
