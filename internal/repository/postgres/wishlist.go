package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/repository"
)

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository
func NewWishlistRepository(db *sql.DB) repository.WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(ctx context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	query := `
		INSERT INTO wishlists (name, description, is_public, color, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	list.CreatedAt = now
	list.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		list.Name,
		list.Description,
		list.IsPublic,
		list.Color,
		list.OwnerID,
		list.CreatedAt,
		list.UpdatedAt,
	).Scan(&list.ID, &list.CreatedAt, &list.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist: %w", err)
	}

	if list.Members == nil {
		list.Members = []models.Member{}
	}
	return list, nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id int64) (*models.Wishlist, error) {
	query := `
		SELECT id, name, description, is_public, color, owner_id, created_at, updated_at
		FROM wishlists
		WHERE id = $1`

	list := &models.Wishlist{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&list.ID,
		&list.Name,
		&list.Description,
		&list.IsPublic,
		&list.Color,
		&list.OwnerID,
		&list.CreatedAt,
		&list.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wishlist by ID: %w", err)
	}

	if err := r.loadMembers(ctx, []*models.Wishlist{list}); err != nil {
		return nil, err
	}

	return list, nil
}

func (r *wishlistRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Wishlist, error) {
	query := `
		SELECT w.id, w.name, w.description, w.is_public, w.color, w.owner_id, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM items i WHERE i.wishlist_id = w.id)
		FROM wishlists w
		WHERE w.owner_id = $1
		   OR EXISTS (SELECT 1 FROM wishlist_members m WHERE m.wishlist_id = w.id AND m.user_id = $1)
		ORDER BY w.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlists for user: %w", err)
	}
	defer rows.Close()

	var lists []*models.Wishlist
	for rows.Next() {
		list := &models.Wishlist{}
		var count int
		if err := rows.Scan(
			&list.ID,
			&list.Name,
			&list.Description,
			&list.IsPublic,
			&list.Color,
			&list.OwnerID,
			&list.CreatedAt,
			&list.UpdatedAt,
			&count,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist: %w", err)
		}
		list.ItemCount = &count
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, lists); err != nil {
		return nil, err
	}

	return lists, nil
}

// loadMembers fills Members for every wishlist in lists with one query
func (r *wishlistRepository) loadMembers(ctx context.Context, lists []*models.Wishlist) error {
	if len(lists) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Wishlist, len(lists))
	ids := make([]int64, 0, len(lists))
	for _, l := range lists {
		l.Members = []models.Member{}
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	query := `
		SELECT m.wishlist_id, m.user_id, m.role, m.joined_at, u.display_name, u.email
		FROM wishlist_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.wishlist_id = ANY($1)
		ORDER BY m.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query wishlist members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wishlistID int64
		var m models.Member
		if err := rows.Scan(&wishlistID, &m.UserID, &m.Role, &m.JoinedAt, &m.DisplayName, &m.Email); err != nil {
			return fmt.Errorf("failed to scan wishlist member: %w", err)
		}
		if l, ok := byID[wishlistID]; ok {
			l.Members = append(l.Members, m)
		}
	}

	return rows.Err()
}

func (r *wishlistRepository) Update(ctx context.Context, list *models.Wishlist) (*models.Wishlist, error) {
	query := `
		UPDATE wishlists
		SET name = $2, description = $3, is_public = $4, color = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at`

	list.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		list.ID,
		list.Name,
		list.Description,
		list.IsPublic,
		list.Color,
		list.UpdatedAt,
	).Scan(&list.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("wishlist %d: %w", list.ID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update wishlist: %w", err)
	}

	return list, nil
}

// Delete relies on ON DELETE CASCADE for members, items, comments and reactions
func (r *wishlistRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wishlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("wishlist %d: %w", id, repository.ErrNotFound)
	}

	return nil
}

func (r *wishlistRepository) AddMember(ctx context.Context, wishlistID, userID int64, role models.MemberRole) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO wishlist_members (wishlist_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wishlist_id, user_id) DO NOTHING`,
		wishlistID, userID, role, now)
	if err != nil {
		return fmt.Errorf("failed to add wishlist member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %d in wishlist %d: %w", userID, wishlistID, repository.ErrDuplicate)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE wishlists SET updated_at = $2 WHERE id = $1`, wishlistID, now); err != nil {
		return fmt.Errorf("failed to touch wishlist: %w", err)
	}

	return tx.Commit()
}

func (r *wishlistRepository) RemoveMember(ctx context.Context, wishlistID, userID int64) error {
	query := `DELETE FROM wishlist_members WHERE wishlist_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, wishlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d in wishlist %d: %w", userID, wishlistID, repository.ErrNotFound)
	}

	return nil
}
