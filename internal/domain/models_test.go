package domain

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domain.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(MemberRole{}).TableName():        "member_roles",
		(Member{}).TableName():            "members",
		(MemberToken{}).TableName():       "member_tokens",
		(Post{}).TableName():              "posts",
		(PostNumberCounter{}).TableName(): "post_number_counters",
		(AnonymousNumber{}).TableName():   "anonymous_numbers",
		(Comment{}).TableName():           "comments",
		(Idempotency{}).TableName():       "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	for _, tbl := range AllModels() {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	checks := []struct {
		model any
		index string
	}{
		{&MemberRole{}, "ux_member_role_type"},
		{&Member{}, "ux_member_oauth_identifier"},
		{&MemberToken{}, "ux_member_token_member"},
		{&AnonymousNumber{}, "ux_anon_post_member"},
		{&AnonymousNumber{}, "ux_anon_post_number"},
		{&Comment{}, "idx_comment_thread"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func seedPost(t *testing.T, db *gorm.DB) (*Member, *Post) {
	t.Helper()
	role := &MemberRole{RoleType: "user"}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("insert role: %v", err)
	}
	mem := &Member{OAuthIdentifier: "sub-1", OAuthProvider: "google", RoleID: role.ID}
	if err := db.Create(mem).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
	post := &Post{MemberID: mem.ID, Title: "t", Content: "c"}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("insert post: %v", err)
	}
	return mem, post
}

func TestAnonymousNumber_UniquePerPostMemberAndNumber(t *testing.T) {
	db := newDomainDB(t)
	mem, post := seedPost(t, db)

	other := &Member{OAuthIdentifier: "sub-2", OAuthProvider: "google", RoleID: mem.RoleID}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}

	if err := db.Create(&AnonymousNumber{PostID: post.ID, MemberID: mem.ID, Number: 1}).Error; err != nil {
		t.Fatalf("insert first entry: %v", err)
	}
	// same member again on the same post
	if err := db.Create(&AnonymousNumber{PostID: post.ID, MemberID: mem.ID, Number: 2}).Error; err == nil {
		t.Fatalf("expected unique violation on (post_id, member_id)")
	}
	// different member, same number
	if err := db.Create(&AnonymousNumber{PostID: post.ID, MemberID: other.ID, Number: 1}).Error; err == nil {
		t.Fatalf("expected unique violation on (post_id, number)")
	}
}

func TestMemberToken_OnePerMember(t *testing.T) {
	db := newDomainDB(t)
	mem, _ := seedPost(t, db)

	if err := db.Create(&MemberToken{MemberID: mem.ID, AccessToken: "a", RefreshToken: "r"}).Error; err != nil {
		t.Fatalf("insert token: %v", err)
	}
	if err := db.Create(&MemberToken{MemberID: mem.ID, AccessToken: "a2", RefreshToken: "r2"}).Error; err == nil {
		t.Fatalf("expected unique violation on member_id")
	}
}

func TestComment_IsRoot_AndOrphanSurvivesRootDelete(t *testing.T) {
	db := newDomainDB(t)
	mem, post := seedPost(t, db)

	num := &AnonymousNumber{PostID: post.ID, MemberID: mem.ID, Number: 1}
	if err := db.Create(num).Error; err != nil {
		t.Fatalf("insert number: %v", err)
	}

	root := &Comment{PostID: post.ID, MemberID: mem.ID, NumberID: num.ID, Content: "root"}
	if err := db.Omit("Post", "Member", "Number").Create(root).Error; err != nil {
		t.Fatalf("insert root: %v", err)
	}
	if root.IsRoot() {
		t.Fatalf("root must not report IsRoot before self-link")
	}
	if err := db.Model(root).Update("group_id", root.ID).Error; err != nil {
		t.Fatalf("self-link: %v", err)
	}
	root.GroupID = &root.ID
	if !root.IsRoot() {
		t.Fatalf("expected IsRoot after self-link")
	}

	gid := root.ID
	reply := &Comment{PostID: post.ID, MemberID: mem.ID, NumberID: num.ID, GroupID: &gid, Content: "reply"}
	if err := db.Omit("Post", "Member", "Number").Create(reply).Error; err != nil {
		t.Fatalf("insert reply: %v", err)
	}
	if reply.IsRoot() {
		t.Fatalf("reply must not be a root")
	}

	// group_id carries no FK, so deleting the root leaves the reply in place
	if err := db.Delete(&Comment{}, root.ID).Error; err != nil {
		t.Fatalf("delete root: %v", err)
	}
	var left Comment
	if err := db.First(&left, reply.ID).Error; err != nil {
		t.Fatalf("reply should survive root delete: %v", err)
	}
	if left.GroupID == nil || *left.GroupID != gid {
		t.Fatalf("reply group changed: %+v", left.GroupID)
	}
}
