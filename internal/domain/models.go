// Package domain defines the persistence models for members, sessions, posts,
// the anonymous numbering ledger, and threaded comments. These types are
// mapped with GORM and form the core data layer of the board backend.
package domain

import "time"

// MemberRole is a read-mostly lookup row (role name → id). Rows are seeded
// out of band; the identity service only reads them.
type MemberRole struct {
	ID       uint   `json:"id"        gorm:"primaryKey"`
	RoleType string `json:"role_type" gorm:"type:varchar(32);not null;uniqueIndex:ux_member_role_type"`
}

// TableName returns the database table name for MemberRole.
func (MemberRole) TableName() string { return "member_roles" }

// Member is the internal account an external OAuth identity resolves to.
//
// Fields:
//   - OAuthIdentifier: the provider-issued subject; unique across the table.
//   - OAuthProvider: provider tag ("google", "github", ...); immutable once set.
//   - Nickname: optional display name taken from the provider profile.
//   - RoleID: reference to the member's role.
type Member struct {
	ID              uint       `json:"id"               gorm:"primaryKey"`
	OAuthIdentifier string     `json:"oauth_identifier" gorm:"column:oauth_identifier;type:varchar(255);not null;uniqueIndex:ux_member_oauth_identifier"`
	OAuthProvider   string     `json:"oauth_provider"   gorm:"column:oauth_provider;type:varchar(32);not null"`
	Nickname        string     `json:"nickname"         gorm:"type:varchar(64);not null;default:''"`
	RoleID          uint       `json:"role_id"          gorm:"not null;index"`
	Role            MemberRole `json:"role"             gorm:"foreignKey:RoleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Member.
func (Member) TableName() string { return "members" }

// MemberToken holds the single active access/refresh pair of a member.
// The unique index on MemberID keeps it one-to-one.
type MemberToken struct {
	ID           uint      `json:"-"             gorm:"primaryKey"`
	MemberID     uint      `json:"member_id"     gorm:"not null;uniqueIndex:ux_member_token_member"`
	AccessToken  string    `json:"access_token"  gorm:"type:text;not null"`
	RefreshToken string    `json:"refresh_token" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Member Member `json:"-" gorm:"foreignKey:MemberID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MemberToken.
func (MemberToken) TableName() string { return "member_tokens" }

// Post is the minimal board post the comment subsystem hangs off. Post CRUD
// lives elsewhere; this model exists for existence checks and foreign keys.
type Post struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	MemberID  uint      `json:"member_id" gorm:"not null;index"`
	Title     string    `json:"title"     gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Member Member `json:"-" gorm:"foreignKey:MemberID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// PostNumberCounter is the per-post high-water mark of assigned anonymous
// numbers. It is bumped in the same transaction that inserts the ledger row,
// so a rolled-back assignment never leaves a gap.
type PostNumberCounter struct {
	PostID     uint `gorm:"primaryKey;autoIncrement:false"`
	LastNumber int  `gorm:"not null;default:0"`

	Post Post `gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostNumberCounter.
func (PostNumberCounter) TableName() string { return "post_number_counters" }

// AnonymousNumber is a ledger entry: the stable pseudonym of a member on a
// post. Rows are created lazily on the member's first comment or reply and are
// never mutated or deleted by ordinary flow.
//
// Both (post_id, member_id) and (post_id, number) are unique; either index
// firing during an insert signals a numbering race.
type AnonymousNumber struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	PostID    uint      `json:"post_id"    gorm:"not null;uniqueIndex:ux_anon_post_member,priority:1;uniqueIndex:ux_anon_post_number,priority:1"`
	MemberID  uint      `json:"member_id"  gorm:"not null;index;uniqueIndex:ux_anon_post_member,priority:2"`
	Number    int       `json:"number"     gorm:"not null;uniqueIndex:ux_anon_post_number,priority:2;check:number > 0"`
	CreatedAt time.Time `json:"created_at"`

	Post   Post   `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Member Member `json:"-" gorm:"foreignKey:MemberID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AnonymousNumber.
func (AnonymousNumber) TableName() string { return "anonymous_numbers" }

// Comment is either a thread root or a reply.
//
// GroupID identifies the thread group by its root's id:
//   - root: GroupID == ID, written right after the insert yields the id;
//   - reply: GroupID == root id, written at insert time.
//
// GroupID is nullable only for the instant between the two steps of a root
// insert. It has no foreign key: replies outlive a hard-deleted root and keep
// pointing at its id.
type Comment struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	PostID    uint      `json:"post_id"    gorm:"not null;index:idx_comment_thread,priority:1"`
	MemberID  uint      `json:"member_id"  gorm:"not null;index"`
	NumberID  uint      `json:"-"          gorm:"not null;index"`
	GroupID   *uint     `json:"group_id"   gorm:"index:idx_comment_thread,priority:2"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	Anonymous bool      `json:"anonymous"  gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comment_thread,priority:3"`
	UpdatedAt time.Time `json:"updated_at"`

	Post   Post            `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Member Member          `json:"-" gorm:"foreignKey:MemberID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Number AnonymousNumber `json:"-" gorm:"foreignKey:NumberID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// IsRoot reports whether the comment heads its own thread group.
func (c *Comment) IsRoot() bool {
	return c.GroupID != nil && *c.GroupID == c.ID
}

// AllModels lists every persisted model in dependency order for migrations.
func AllModels() []any {
	return []any{
		&MemberRole{},
		&Member{},
		&MemberToken{},
		&Post{},
		&PostNumberCounter{},
		&AnonymousNumber{},
		&Comment{},
		&Idempotency{},
	}
}
