package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-board-backend/internal/domain"
)

func TestMemberRepo_CreateFindAndExists(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	if err := SeedRoles(ctx, db, "user"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := seedMember(t, db, "sub-1")
	if m.ID == 0 {
		t.Fatalf("expected generated id")
	}

	got, err := FindMemberByOAuthIdentifier(ctx, db, "sub-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != m.ID || got.Role.RoleType != "user" || got.OAuthProvider != "google" {
		t.Fatalf("unexpected member: %+v", got)
	}

	byID, err := GetMember(ctx, db, m.ID)
	if err != nil || byID.OAuthIdentifier != "sub-1" || byID.Role.RoleType != "user" {
		t.Fatalf("GetMember = %+v, %v", byID, err)
	}

	if ok, err := MemberExists(ctx, db, m.ID); err != nil || !ok {
		t.Fatalf("MemberExists(%d) = %v, %v", m.ID, ok, err)
	}
	if ok, err := MemberExists(ctx, db, m.ID+100); err != nil || ok {
		t.Fatalf("MemberExists(missing) = %v, %v", ok, err)
	}

	if _, err := FindMemberByOAuthIdentifier(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetMember(ctx, db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemberRepo_DuplicateIdentifier(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	_ = SeedRoles(ctx, db, "user")
	first := seedMember(t, db, "dup")

	again := &domain.Member{OAuthIdentifier: "dup", OAuthProvider: "github", RoleID: first.RoleID}
	if err := CreateMember(ctx, db, again); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestFindRoleByType_Missing(t *testing.T) {
	db := newRepoDB(t)
	if _, err := FindRoleByType(context.Background(), db, "user"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
