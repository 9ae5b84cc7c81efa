// Package memory is an in-process implementation of the repository
// interfaces. It backs STORE=memory and the service and API tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/repository"
)

// Store holds every table behind a single lock
type Store struct {
	mu sync.RWMutex

	nextID int64

	users     map[int64]*models.User
	wishlists map[int64]*models.Wishlist
	members   map[int64]map[int64]models.Member // wishlist id -> user id -> member
	items     map[int64]*models.Item
	comments  map[int64]*models.Comment
	reactions map[int64]map[int64]*models.Reaction // item id -> user id -> reaction
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:     make(map[int64]*models.User),
		wishlists: make(map[int64]*models.Wishlist),
		members:   make(map[int64]map[int64]models.Member),
		items:     make(map[int64]*models.Item),
		comments:  make(map[int64]*models.Comment),
		reactions: make(map[int64]map[int64]*models.Reaction),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Users returns the user repository view of the store
func (s *Store) Users() repository.UserRepository { return (*userRepository)(s) }

// Wishlists returns the wishlist repository view of the store
func (s *Store) Wishlists() repository.WishlistRepository { return (*wishlistRepository)(s) }

// Items returns the item repository view of the store
func (s *Store) Items() repository.ItemRepository { return (*itemRepository)(s) }

// Comments returns the comment repository view of the store
func (s *Store) Comments() repository.CommentRepository { return (*commentRepository)(s) }

// Reactions returns the reaction repository view of the store
func (s *Store) Reactions() repository.ReactionRepository { return (*reactionRepository)(s) }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type userRepository Store

func (r *userRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, fmt.Errorf("email %q: %w", email, repository.ErrDuplicate)
		}
	}

	c := *user
	c.ID = s.id()
	c.Email = email
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.users[c.ID] = &c

	out := c
	return &out, nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := *u
			out[id] = &c
		}
	}
	return out, nil
}

func (r *userRepository) Update(_ context.Context, user *models.User) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", user.ID, repository.ErrNotFound)
	}
	u.DisplayName = user.DisplayName
	u.AvatarURL = user.AvatarURL
	u.PasswordHash = user.PasswordHash
	u.UpdatedAt = time.Now()

	c := *u
	return &c, nil
}

// ---------------------------------------------------------------------------
// Wishlists
// ---------------------------------------------------------------------------

type wishlistRepository Store

// snapshot copies a wishlist with its members; callers hold the lock
func (s *Store) snapshotWishlist(w *models.Wishlist) *models.Wishlist {
	c := w.Clone()
	c.Members = []models.Member{}
	for _, m := range s.members[w.ID] {
		if u, ok := s.users[m.UserID]; ok {
			m.DisplayName = u.DisplayName
			m.Email = u.Email
		}
		c.Members = append(c.Members, m)
	}
	sort.Slice(c.Members, func(i, j int) bool {
		if c.Members[i].JoinedAt.Equal(c.Members[j].JoinedAt) {
			return c.Members[i].UserID < c.Members[j].UserID
		}
		return c.Members[i].JoinedAt.Before(c.Members[j].JoinedAt)
	})
	return c
}

func (r *wishlistRepository) Create(_ context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	c := list.Clone()
	c.ID = s.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.Members = nil
	c.ItemCount = nil
	s.wishlists[c.ID] = c
	s.members[c.ID] = make(map[int64]models.Member)

	return s.snapshotWishlist(c), nil
}

func (r *wishlistRepository) GetByID(_ context.Context, id int64) (*models.Wishlist, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wishlists[id]
	if !ok {
		return nil, nil
	}
	return s.snapshotWishlist(w), nil
}

func (r *wishlistRepository) ListForUser(_ context.Context, userID int64) ([]*models.Wishlist, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lists []*models.Wishlist
	for id, w := range s.wishlists {
		if _, member := s.members[id][userID]; w.OwnerID != userID && !member {
			continue
		}
		c := s.snapshotWishlist(w)
		count := 0
		for _, item := range s.items {
			if item.WishlistID == id {
				count++
			}
		}
		c.ItemCount = &count
		lists = append(lists, c)
	}

	sort.Slice(lists, func(i, j int) bool {
		if lists[i].UpdatedAt.Equal(lists[j].UpdatedAt) {
			return lists[i].ID > lists[j].ID
		}
		return lists[i].UpdatedAt.After(lists[j].UpdatedAt)
	})
	return lists, nil
}

func (r *wishlistRepository) Update(_ context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[list.ID]
	if !ok {
		return nil, fmt.Errorf("wishlist %d: %w", list.ID, repository.ErrNotFound)
	}
	w.Name = list.Name
	w.Description = list.Description
	w.IsPublic = list.IsPublic
	w.Color = list.Color
	w.UpdatedAt = time.Now()

	return s.snapshotWishlist(w), nil
}

func (r *wishlistRepository) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wishlists[id]; !ok {
		return fmt.Errorf("wishlist %d: %w", id, repository.ErrNotFound)
	}

	for itemID, item := range s.items {
		if item.WishlistID == id {
			s.deleteItemLocked(itemID)
		}
	}
	delete(s.members, id)
	delete(s.wishlists, id)
	return nil
}

func (r *wishlistRepository) AddMember(_ context.Context, wishlistID, userID int64, role models.MemberRole) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[wishlistID]
	if !ok {
		return fmt.Errorf("wishlist %d: %w", wishlistID, repository.ErrNotFound)
	}
	if _, exists := s.members[wishlistID][userID]; exists {
		return fmt.Errorf("user %d in wishlist %d: %w", userID, wishlistID, repository.ErrDuplicate)
	}

	now := time.Now()
	s.members[wishlistID][userID] = models.Member{UserID: userID, Role: role, JoinedAt: now}
	w.UpdatedAt = now
	return nil
}

func (r *wishlistRepository) RemoveMember(_ context.Context, wishlistID, userID int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[wishlistID][userID]; !exists {
		return fmt.Errorf("user %d in wishlist %d: %w", userID, wishlistID, repository.ErrNotFound)
	}
	delete(s.members[wishlistID], userID)
	return nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRepository Store

// snapshotItem copies an item with its comments and reactions; callers hold the lock
func (s *Store) snapshotItem(item *models.Item) *models.Item {
	c := item.Clone()
	c.Comments = []models.Comment{}
	for _, cm := range s.comments {
		if cm.ItemID == item.ID {
			c.Comments = append(c.Comments, *cm)
		}
	}
	sort.Slice(c.Comments, func(i, j int) bool { return c.Comments[i].ID < c.Comments[j].ID })

	c.Reactions = []models.Reaction{}
	for _, rc := range s.reactions[item.ID] {
		c.Reactions = append(c.Reactions, *rc)
	}
	sort.Slice(c.Reactions, func(i, j int) bool { return c.Reactions[i].ID < c.Reactions[j].ID })
	return c
}

func (s *Store) deleteItemLocked(id int64) {
	for cid, cm := range s.comments {
		if cm.ItemID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.reactions, id)
	delete(s.items, id)
}

func (r *itemRepository) Create(_ context.Context, item *models.Item) (*models.Item, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wishlists[item.WishlistID]; !ok {
		return nil, fmt.Errorf("wishlist %d: %w", item.WishlistID, repository.ErrNotFound)
	}

	c := item.Clone()
	c.ID = s.id()
	c.Status = models.ItemStatusAvailable
	c.ClaimedByID = nil
	c.EditedByID = nil
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.Comments = nil
	c.Reactions = nil
	s.items[c.ID] = c

	return s.snapshotItem(c), nil
}

func (r *itemRepository) GetByID(_ context.Context, id int64) (*models.Item, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return s.snapshotItem(item), nil
}

func (r *itemRepository) ListByWishlist(_ context.Context, wishlistID int64) ([]*models.Item, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []*models.Item{}
	for _, item := range s.items {
		if item.WishlistID == wishlistID {
			items = append(items, s.snapshotItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *itemRepository) Update(_ context.Context, item *models.Item) (*models.Item, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", item.ID, repository.ErrNotFound)
	}

	in := item.Clone()
	stored.Name = in.Name
	stored.Description = in.Description
	stored.ImageURL = in.ImageURL
	stored.Price = in.Price
	stored.Currency = in.Currency
	stored.URL = in.URL
	stored.Priority = in.Priority
	stored.EditedByID = in.EditedByID
	stored.UpdatedAt = time.Now()

	return s.snapshotItem(stored), nil
}

func (r *itemRepository) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	s.deleteItemLocked(id)
	return nil
}

// transition applies fn under the write lock when guard holds for the stored item
func (s *Store) transition(id int64, guard func(*models.Item) bool, fn func(*models.Item)) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	if !guard(stored) {
		return s.snapshotItem(stored), fmt.Errorf("item %d is %s: %w", id, stored.Status, repository.ErrConflict)
	}

	fn(stored)
	stored.UpdatedAt = time.Now()
	return s.snapshotItem(stored), nil
}

func (r *itemRepository) Claim(_ context.Context, id, userID int64) (*models.Item, error) {
	return (*Store)(r).transition(id,
		func(item *models.Item) bool { return item.Status != models.ItemStatusClaimed },
		func(item *models.Item) {
			claimer, editor := userID, userID
			item.Status = models.ItemStatusClaimed
			item.ClaimedByID = &claimer
			item.EditedByID = &editor
		})
}

func (r *itemRepository) Unclaim(_ context.Context, id, userID int64, expectClaimer *int64) (*models.Item, error) {
	return (*Store)(r).transition(id,
		func(item *models.Item) bool {
			if item.Status != models.ItemStatusClaimed {
				return false
			}
			return expectClaimer == nil || (item.ClaimedByID != nil && *item.ClaimedByID == *expectClaimer)
		},
		func(item *models.Item) {
			editor := userID
			item.Status = models.ItemStatusAvailable
			item.ClaimedByID = nil
			item.EditedByID = &editor
		})
}

func (r *itemRepository) SetStatus(_ context.Context, id int64, status models.ItemStatus, actorID int64) (*models.Item, error) {
	return (*Store)(r).transition(id,
		func(*models.Item) bool { return true },
		func(item *models.Item) {
			editor := actorID
			item.Status = status
			item.EditedByID = &editor
			switch {
			case status == models.ItemStatusAvailable:
				item.ClaimedByID = nil
			case item.ClaimedByID == nil:
				claimer := actorID
				item.ClaimedByID = &claimer
			}
		})
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

type commentRepository Store

func (r *commentRepository) Create(_ context.Context, comment *models.Comment) (*models.Comment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[comment.ItemID]; !ok {
		return nil, fmt.Errorf("item %d: %w", comment.ItemID, repository.ErrNotFound)
	}

	c := *comment
	c.ID = s.id()
	c.CreatedAt = time.Now()
	s.comments[c.ID] = &c

	out := c
	return &out, nil
}

func (r *commentRepository) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *commentRepository) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %d: %w", id, repository.ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

// ---------------------------------------------------------------------------
// Reactions
// ---------------------------------------------------------------------------

type reactionRepository Store

func (r *reactionRepository) Upsert(_ context.Context, reaction *models.Reaction) (*models.Reaction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[reaction.ItemID]; !ok {
		return nil, fmt.Errorf("item %d: %w", reaction.ItemID, repository.ErrNotFound)
	}

	byUser, ok := s.reactions[reaction.ItemID]
	if !ok {
		byUser = make(map[int64]*models.Reaction)
		s.reactions[reaction.ItemID] = byUser
	}

	now := time.Now()
	if existing, ok := byUser[reaction.UserID]; ok {
		existing.Emoji = reaction.Emoji
		existing.CreatedAt = now
		out := *existing
		return &out, nil
	}

	c := *reaction
	c.ID = s.id()
	c.CreatedAt = now
	byUser[c.UserID] = &c

	out := c
	return &out, nil
}

func (r *reactionRepository) Remove(_ context.Context, itemID, userID int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reactions[itemID][userID]; !ok {
		return fmt.Errorf("reaction of user %d on item %d: %w", userID, itemID, repository.ErrNotFound)
	}
	delete(s.reactions[itemID], userID)
	return nil
}
