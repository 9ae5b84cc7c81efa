package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/auth"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
	"github.com/Kerhoff/WishShare/internal/repository"
	"github.com/Kerhoff/WishShare/internal/repository/memory"
)

type published struct {
	wishlistID int64
	eventType  realtime.EventType
	actorID    int64
	payload    any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, wishlistID int64, eventType realtime.EventType, actorID int64, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{wishlistID, eventType, actorID, payload})
}

func (r *recorder) last() published {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return published{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	store := memory.New()
	rec := &recorder{}
	svc := New(Repositories{
		Users:     store.Users(),
		Wishlists: store.Wishlists(),
		Items:     store.Items(),
		Comments:  store.Comments(),
		Reactions: store.Reactions(),
	}, tokens, rec, logger, nil)
	return svc, rec
}

func register(t *testing.T, svc *Service, email, name string) *models.User {
	t.Helper()
	sess, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: "password123", DisplayName: name})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return sess.User
}

func ptr[T any](v T) *T { return &v }

func TestBirthdayScenario(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	alice := register(t, svc, "a@x.com", "Alice")
	bob := register(t, svc, "b@x.com", "Bob")

	list, err := svc.CreateWishlist(ctx, alice.ID, WishlistInput{Name: ptr("Birthday"), IsPublic: ptr(false)})
	if err != nil {
		t.Fatalf("create wishlist: %v", err)
	}
	if list.Color != models.DefaultWishlistColor {
		t.Fatalf("color = %q, want default", list.Color)
	}

	list, err = svc.InviteMember(ctx, alice.ID, list.ID, InviteInput{Email: "B@X.com"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if m, ok := list.Member(bob.ID); !ok || m.Role != models.MemberRoleMember {
		t.Fatalf("bob membership = %+v, %v", m, ok)
	}
	if ev := rec.last(); ev.eventType != realtime.EventMemberInvited || ev.actorID != alice.ID {
		t.Fatalf("last event = %+v", ev)
	}

	bike, err := svc.CreateItem(ctx, bob.ID, list.ID, ItemInput{Name: ptr("Bike"), Priority: ptr(models.ItemPriorityHigh)})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if bike.Status != models.ItemStatusAvailable || bike.Currency != "USD" || bike.AddedByID != bob.ID {
		t.Fatalf("new item = %+v", bike)
	}
	if ev := rec.last(); ev.eventType != realtime.EventItemAdded || ev.wishlistID != list.ID {
		t.Fatalf("last event = %+v", ev)
	}

	claimed, err := svc.ClaimItem(ctx, alice.ID, list.ID, bike.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != models.ItemStatusClaimed || *claimed.ClaimedByID != alice.ID {
		t.Fatalf("claimed item = %+v", claimed)
	}
	if claimed.ClaimedBy == nil || claimed.ClaimedBy.DisplayName != "Alice" {
		t.Fatalf("claimed_by ref = %+v", claimed.ClaimedBy)
	}

	before := rec.count()
	if _, err := svc.ClaimItem(ctx, bob.ID, list.ID, bike.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second claim err = %v, want ErrConflict", err)
	}
	if rec.count() != before {
		t.Fatal("failed claim was broadcast")
	}

	items, err := svc.ListItems(ctx, bob.ID, list.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || *items[0].ClaimedByID != alice.ID {
		t.Fatalf("items after conflict = %+v", items)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("Party")})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Cake")})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClaimItem(ctx, owner.ID, list.ID, item.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != 15 {
		t.Fatalf("wins = %d, conflicts = %d", wins, conflicts)
	}
}

func TestAccessChecks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	member := register(t, svc, "member@x.com", "Member")
	outsider := register(t, svc, "out@x.com", "Outsider")

	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("Wedding")})
	if _, err := svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: member.Email}); err != nil {
		t.Fatal(err)
	}
	ownerItem, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Vase")})
	memberItem, _ := svc.CreateItem(ctx, member.ID, list.ID, ItemInput{Name: ptr("Toaster")})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "outsider cannot read",
			call: func() error { _, err := svc.GetWishlist(ctx, outsider.ID, list.ID); return err },
			want: ErrAccessDenied,
		},
		{
			name: "outsider cannot join channel",
			call: func() error { return svc.AuthorizeChannel(ctx, outsider.ID, list.ID) },
			want: ErrAccessDenied,
		},
		{
			name: "member can join channel",
			call: func() error { return svc.AuthorizeChannel(ctx, member.ID, list.ID) },
		},
		{
			name: "missing wishlist",
			call: func() error { _, err := svc.GetWishlist(ctx, owner.ID, 9999); return err },
			want: ErrNotFound,
		},
		{
			name: "member cannot rename",
			call: func() error {
				_, err := svc.UpdateWishlist(ctx, member.ID, list.ID, WishlistInput{Name: ptr("Mine")})
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name: "member cannot edit owner's item",
			call: func() error {
				_, err := svc.UpdateItem(ctx, member.ID, list.ID, ownerItem.ID, ItemInput{Name: ptr("Jug")})
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name: "member edits own item",
			call: func() error {
				_, err := svc.UpdateItem(ctx, member.ID, list.ID, memberItem.ID, ItemInput{Price: ptr(25.0)})
				return err
			},
		},
		{
			name: "member cannot force status",
			call: func() error {
				_, err := svc.SetItemStatus(ctx, member.ID, list.ID, ownerItem.ID, models.ItemStatusPurchased)
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name: "member cannot invite",
			call: func() error {
				_, err := svc.InviteMember(ctx, member.ID, list.ID, InviteInput{Email: outsider.Email})
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name: "existing member invite conflicts",
			call: func() error {
				_, err := svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: member.Email})
				return err
			},
			want: ErrConflict,
		},
		{
			name: "unknown invitee",
			call: func() error {
				_, err := svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: "nobody@x.com"})
				return err
			},
			want: ErrNotFound,
		},
		{
			name: "member cannot delete wishlist",
			call: func() error { return svc.DeleteWishlist(ctx, member.ID, list.ID) },
			want: ErrAccessDenied,
		},
		{
			name: "item of another wishlist",
			call: func() error {
				other, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("Other")})
				_, err := svc.GetItem(ctx, owner.ID, other.ID, ownerItem.ID)
				return err
			},
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidationCollectsEveryField(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})

	_, err := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{
		Name:     ptr(""),
		Price:    ptr(-1.0),
		Currency: ptr("dollars"),
		URL:      ptr("ftp://example.com"),
		Priority: ptr(models.ItemPriority("urgent")),
	})
	fields := map[string]bool{}
	for _, ve := range ValidationErrors(err) {
		fields[ve.Field] = true
	}
	for _, f := range []string{"name", "price", "currency", "url", "priority"} {
		if !fields[f] {
			t.Errorf("missing validation error for %s (got %v)", f, err)
		}
	}

	_, err = svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Yacht"), Price: ptr(1e12)})
	if ves := ValidationErrors(err); len(ves) != 1 || ves[0].Field != "price" {
		t.Fatalf("price overflow validation = %v", err)
	}

	_, err = svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("ok"), Color: ptr("blue")})
	if ves := ValidationErrors(err); len(ves) != 1 || ves[0].Field != "color" {
		t.Fatalf("color validation = %v", err)
	}

	if _, err := svc.AddComment(ctx, owner.ID, list.ID, 1, "   "); len(ValidationErrors(err)) != 1 {
		t.Fatalf("blank comment err = %v", err)
	}
	if _, err := svc.UpsertReaction(ctx, owner.ID, list.ID, 1, "🦄"); len(ValidationErrors(err)) != 1 {
		t.Fatalf("bad emoji err = %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	member := register(t, svc, "member@x.com", "Member")
	other := register(t, svc, "other@x.com", "Other")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: member.Email})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: other.Email})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Lamp")})

	if _, err := svc.UnclaimItem(ctx, member.ID, list.ID, item.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("unclaim of available item err = %v", err)
	}

	if _, err := svc.ClaimItem(ctx, member.ID, list.ID, item.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UnclaimItem(ctx, other.ID, list.ID, item.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("unclaim by non-claimer err = %v", err)
	}
	released, err := svc.UnclaimItem(ctx, member.ID, list.ID, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Status != models.ItemStatusAvailable || released.ClaimedByID != nil {
		t.Fatalf("released item = %+v", released)
	}

	bought, err := svc.SetItemStatus(ctx, owner.ID, list.ID, item.ID, models.ItemStatusPurchased)
	if err != nil {
		t.Fatal(err)
	}
	if bought.Status != models.ItemStatusPurchased || bought.ClaimedByID == nil || *bought.ClaimedByID != owner.ID {
		t.Fatalf("purchased item = %+v", bought)
	}
	if ev := rec.last(); ev.eventType != realtime.EventItemUpdated {
		t.Fatalf("status change event = %s", ev.eventType)
	}

	// A generic update leaves the status alone.
	edited, err := svc.UpdateItem(ctx, owner.ID, list.ID, item.ID, ItemInput{Name: ptr("Floor lamp")})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Status != models.ItemStatusPurchased || edited.Name != "Floor lamp" || *edited.EditedByID != owner.ID {
		t.Fatalf("edited item = %+v", edited)
	}

	if _, err := svc.SetItemStatus(ctx, owner.ID, list.ID, item.ID, "lost"); len(ValidationErrors(err)) != 1 {
		t.Fatalf("invalid status err = %v", err)
	}
}

func TestReactionsReplacePerUser(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Book")})

	if _, err := svc.UpsertReaction(ctx, owner.ID, list.ID, item.ID, "👍"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpsertReaction(ctx, owner.ID, list.ID, item.ID, "🔥"); err != nil {
		t.Fatal(err)
	}

	got, _ := svc.GetItem(ctx, owner.ID, list.ID, item.ID)
	if len(got.Reactions) != 1 || got.Reactions[0].Emoji != "🔥" {
		t.Fatalf("reactions = %+v", got.Reactions)
	}
	if got.Reactions[0].User == nil || got.Reactions[0].User.ID != owner.ID {
		t.Fatalf("reaction user = %+v", got.Reactions[0].User)
	}

	if err := svc.RemoveReaction(ctx, owner.ID, list.ID, item.ID); err != nil {
		t.Fatal(err)
	}
	if ev := rec.last(); ev.eventType != realtime.EventReactionRemoved {
		t.Fatalf("last event = %s", ev.eventType)
	}
	if err := svc.RemoveReaction(ctx, owner.ID, list.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestCommentDeletion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	author := register(t, svc, "author@x.com", "Author")
	other := register(t, svc, "other@x.com", "Other")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: author.Email})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: other.Email})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Pen")})

	first, err := svc.AddComment(ctx, author.ID, list.ID, item.ID, "blue please")
	if err != nil {
		t.Fatal(err)
	}
	if first.User == nil || first.User.DisplayName != "Author" {
		t.Fatalf("comment user = %+v", first.User)
	}
	second, _ := svc.AddComment(ctx, author.ID, list.ID, item.ID, "or black")

	if err := svc.DeleteComment(ctx, other.ID, list.ID, item.ID, first.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("delete by other err = %v", err)
	}
	if err := svc.DeleteComment(ctx, author.ID, list.ID, item.ID, first.ID); err != nil {
		t.Fatalf("delete by author: %v", err)
	}
	if err := svc.DeleteComment(ctx, owner.ID, list.ID, item.ID, second.ID); err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
	if err := svc.DeleteComment(ctx, owner.ID, list.ID, item.ID, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delete err = %v", err)
	}
}

func TestDeleteWishlistCascades(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Mug")})
	svc.AddComment(ctx, owner.ID, list.ID, item.ID, "any color")

	if err := svc.DeleteWishlist(ctx, owner.ID, list.ID); err != nil {
		t.Fatal(err)
	}
	if ev := rec.last(); ev.eventType != realtime.EventWishlistDeleted || ev.wishlistID != list.ID {
		t.Fatalf("last event = %+v", ev)
	}

	if got, _ := svc.Items.GetByID(ctx, item.ID); got != nil {
		t.Fatalf("item survived wishlist deletion: %+v", got)
	}
	lists, _ := svc.ListWishlists(ctx, owner.ID)
	if len(lists) != 0 {
		t.Fatalf("lists = %+v", lists)
	}
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	member := register(t, svc, "member@x.com", "Member")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: member.Email})

	if err := svc.RemoveMember(ctx, owner.ID, list.ID, member.ID); err != nil {
		t.Fatal(err)
	}
	ev := rec.last()
	p, ok := ev.payload.(realtime.MemberRemovedPayload)
	if ev.eventType != realtime.EventMemberRemoved || !ok || p.UserID != member.ID {
		t.Fatalf("last event = %+v", ev)
	}
	if err := svc.AuthorizeChannel(ctx, member.ID, list.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("removed member still authorized: %v", err)
	}
	if err := svc.RemoveMember(ctx, owner.ID, list.ID, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing the owner err = %v", err)
	}
}

func TestListWishlists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	member := register(t, svc, "member@x.com", "Member")
	mine, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("Mine")})
	svc.CreateItem(ctx, owner.ID, mine.ID, ItemInput{Name: ptr("One")})
	svc.CreateItem(ctx, owner.ID, mine.ID, ItemInput{Name: ptr("Two")})
	svc.CreateWishlist(ctx, member.ID, WishlistInput{Name: ptr("Theirs")})

	lists, err := svc.ListWishlists(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || lists[0].ID != mine.ID {
		t.Fatalf("lists = %+v", lists)
	}
	if lists[0].ItemCount == nil || *lists[0].ItemCount != 2 {
		t.Fatalf("item count = %v", lists[0].ItemCount)
	}
	if lists[0].Owner == nil || lists[0].Owner.DisplayName != "Owner" {
		t.Fatalf("owner ref = %+v", lists[0].Owner)
	}
}

func TestAuthentication(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	sess, err := svc.Register(ctx, RegisterInput{Email: " Ann@Example.com ", Password: "password123", DisplayName: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	if sess.User.Email != "ann@example.com" || sess.Token == "" {
		t.Fatalf("session = %+v", sess)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123", DisplayName: "Ann"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate register err = %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "bad", Password: "short"}); len(ValidationErrors(err)) != 3 {
		t.Fatalf("invalid register err = %v", err)
	}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad login err = %v", err)
	}
	login, err := svc.Login(ctx, "ANN@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}

	user, err := svc.Authenticate(ctx, login.Token)
	if err != nil || user.ID != sess.User.ID {
		t.Fatalf("authenticate = %+v, %v", user, err)
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad token err = %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{DisplayName: ptr("Annie"), AvatarURL: ptr("https://img.example.com/a.png")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DisplayName != "Annie" || updated.AvatarURL == "" {
		t.Fatalf("updated = %+v", updated)
	}
}

// interleavedItems runs before once, just ahead of the first Unclaim write
type interleavedItems struct {
	repository.ItemRepository
	before func()
	once   sync.Once
}

func (r *interleavedItems) Unclaim(ctx context.Context, id, userID int64, expectClaimer *int64) (*models.Item, error) {
	r.once.Do(r.before)
	return r.ItemRepository.Unclaim(ctx, id, userID, expectClaimer)
}

func TestUnclaimCannotReleaseAnotherClaim(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner := register(t, svc, "owner@x.com", "Owner")
	bob := register(t, svc, "bob@x.com", "Bob")
	carol := register(t, svc, "carol@x.com", "Carol")
	list, _ := svc.CreateWishlist(ctx, owner.ID, WishlistInput{Name: ptr("List")})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: bob.Email})
	svc.InviteMember(ctx, owner.ID, list.ID, InviteInput{Email: carol.Email})
	item, _ := svc.CreateItem(ctx, owner.ID, list.ID, ItemInput{Name: ptr("Kite")})

	if _, err := svc.ClaimItem(ctx, bob.ID, list.ID, item.ID); err != nil {
		t.Fatal(err)
	}

	// Between Bob's permission check and his write, the owner releases the
	// claim and Carol takes the item.
	items := svc.Items
	svc.Items = &interleavedItems{ItemRepository: items, before: func() {
		if _, err := items.Unclaim(ctx, item.ID, owner.ID, nil); err != nil {
			t.Errorf("owner unclaim: %v", err)
		}
		if _, err := items.Claim(ctx, item.ID, carol.ID); err != nil {
			t.Errorf("carol claim: %v", err)
		}
	}}

	if _, err := svc.UnclaimItem(ctx, bob.ID, list.ID, item.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale unclaim err = %v, want conflict", err)
	}

	got, err := items.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ItemStatusClaimed || got.ClaimedByID == nil || *got.ClaimedByID != carol.ID {
		t.Fatalf("item after stale unclaim = %+v", got)
	}
}
