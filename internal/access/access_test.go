package access

import (
	"testing"

	"github.com/Kerhoff/WishShare/internal/models"
)

func testWishlist() *models.Wishlist {
	return &models.Wishlist{
		ID:      42,
		OwnerID: 1,
		Members: []models.Member{
			{UserID: 2, Role: models.MemberRoleMember},
			{UserID: 3, Role: models.MemberRoleAdmin},
		},
	}
}

func TestCanReadAndManage(t *testing.T) {
	t.Parallel()

	w := testWishlist()
	tests := []struct {
		name       string
		userID     int64
		wantRead   bool
		wantManage bool
	}{
		{name: "owner", userID: 1, wantRead: true, wantManage: true},
		{name: "member", userID: 2, wantRead: true, wantManage: false},
		{name: "admin", userID: 3, wantRead: true, wantManage: true},
		{name: "stranger", userID: 4, wantRead: false, wantManage: false},
		{name: "anonymous", userID: 0, wantRead: false, wantManage: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanRead(w, tt.userID); got != tt.wantRead {
				t.Fatalf("CanRead(%d) = %v, want %v", tt.userID, got, tt.wantRead)
			}
			if got := CanManage(w, tt.userID); got != tt.wantManage {
				t.Fatalf("CanManage(%d) = %v, want %v", tt.userID, got, tt.wantManage)
			}
		})
	}
}

func TestCanReadIffOwnerOrMember(t *testing.T) {
	t.Parallel()

	w := testWishlist()
	for userID := int64(0); userID < 20; userID++ {
		_, member := w.Member(userID)
		want := userID == w.OwnerID || member
		if got := CanRead(w, userID); got != want {
			t.Fatalf("CanRead(%d) = %v, want %v", userID, got, want)
		}
	}
}

func TestCanReadNilWishlist(t *testing.T) {
	t.Parallel()

	if CanRead(nil, 1) || CanManage(nil, 1) || IsOwner(nil, 1) {
		t.Fatal("nil wishlist must deny everything")
	}
}

func TestCanEditItem(t *testing.T) {
	t.Parallel()

	w := testWishlist()
	item := &models.Item{ID: 7, WishlistID: w.ID, AddedByID: 2}

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{name: "creator member", userID: 2, want: true},
		{name: "owner", userID: 1, want: true},
		{name: "admin", userID: 3, want: true},
		{name: "stranger", userID: 4, want: false},
	}
	for _, tt := range tests {
		if got := CanEditItem(w, item, tt.userID); got != tt.want {
			t.Errorf("%s: CanEditItem = %v, want %v", tt.name, got, tt.want)
		}
	}

	// A creator who lost membership can no longer edit.
	orphan := &models.Item{ID: 8, WishlistID: w.ID, AddedByID: 9}
	if CanEditItem(w, orphan, 9) {
		t.Error("former member must not edit their item")
	}
}

func TestCanDeleteComment(t *testing.T) {
	t.Parallel()

	w := testWishlist()
	c := &models.Comment{ID: 1, UserID: 2}

	if !CanDeleteComment(w, c, 2) {
		t.Error("author should delete own comment")
	}
	if !CanDeleteComment(w, c, 1) {
		t.Error("owner should delete any comment")
	}
	if CanDeleteComment(w, &models.Comment{ID: 2, UserID: 3}, 2) {
		t.Error("plain member must not delete another user's comment")
	}
}
