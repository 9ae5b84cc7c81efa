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

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, wishlist_id, name, description, image_url, price, currency, url, priority, status,
	added_by_id, claimed_by_id, edited_by_id, created_at, updated_at`

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID,
		&item.WishlistID,
		&item.Name,
		&item.Description,
		&item.ImageURL,
		&item.Price,
		&item.Currency,
		&item.URL,
		&item.Priority,
		&item.Status,
		&item.AddedByID,
		&item.ClaimedByID,
		&item.EditedByID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		INSERT INTO items (wishlist_id, name, description, image_url, price, currency, url, priority, status,
			added_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	item.Status = models.ItemStatusAvailable
	item.CreatedAt = now
	item.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		item.WishlistID,
		item.Name,
		item.Description,
		item.ImageURL,
		item.Price,
		item.Currency,
		item.URL,
		item.Priority,
		item.Status,
		item.AddedByID,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	item.Comments = []models.Comment{}
	item.Reactions = []models.Reaction{}
	return item, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}

	if err := r.loadChildren(ctx, []*models.Item{item}); err != nil {
		return nil, err
	}

	return item, nil
}

func (r *itemRepository) ListByWishlist(ctx context.Context, wishlistID int64) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE wishlist_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, items); err != nil {
		return nil, err
	}

	return items, nil
}

// loadChildren fills Comments and Reactions for every item with two queries
func (r *itemRepository) loadChildren(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Item, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		item.Comments = []models.Comment{}
		item.Reactions = []models.Reaction{}
		byID[item.ID] = item
		ids = append(ids, item.ID)
	}

	commentRows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, user_id, text, created_at
		FROM item_comments
		WHERE item_id = ANY($1)
		ORDER BY created_at ASC, id ASC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var c models.Comment
		if err := commentRows.Scan(&c.ID, &c.ItemID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		byID[c.ItemID].Comments = append(byID[c.ItemID].Comments, c)
	}
	if err := commentRows.Err(); err != nil {
		return err
	}

	reactionRows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, user_id, emoji, created_at
		FROM item_reactions
		WHERE item_id = ANY($1)
		ORDER BY id ASC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query reactions: %w", err)
	}
	defer reactionRows.Close()

	for reactionRows.Next() {
		var rc models.Reaction
		if err := reactionRows.Scan(&rc.ID, &rc.ItemID, &rc.UserID, &rc.Emoji, &rc.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan reaction: %w", err)
		}
		byID[rc.ItemID].Reactions = append(byID[rc.ItemID].Reactions, rc)
	}

	return reactionRows.Err()
}

func (r *itemRepository) Update(ctx context.Context, item *models.Item) (*models.Item, error) {
	query := `
		UPDATE items
		SET name = $2, description = $3, image_url = $4, price = $5, currency = $6, url = $7,
		    priority = $8, edited_by_id = $9, updated_at = $10
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.ImageURL,
		item.Price,
		item.Currency,
		item.URL,
		item.Priority,
		item.EditedByID,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if err := expectOneRow(result, "item", item.ID); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, item.ID)
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return expectOneRow(result, "item", id)
}

// Claim is a single conditional update so two concurrent claims cannot both
// succeed.
func (r *itemRepository) Claim(ctx context.Context, id, userID int64) (*models.Item, error) {
	query := `
		UPDATE items
		SET status = 'claimed', claimed_by_id = $2, edited_by_id = $2, updated_at = $3
		WHERE id = $1 AND status <> 'claimed'`

	result, err := r.db.ExecContext(ctx, query, id, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim item: %w", err)
	}

	return r.afterTransition(ctx, result, id)
}

func (r *itemRepository) Unclaim(ctx context.Context, id, userID int64, expectClaimer *int64) (*models.Item, error) {
	query := `
		UPDATE items
		SET status = 'available', claimed_by_id = NULL, edited_by_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'claimed'
		  AND ($4::BIGINT IS NULL OR claimed_by_id = $4)`

	var claimer sql.NullInt64
	if expectClaimer != nil {
		claimer = sql.NullInt64{Int64: *expectClaimer, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, id, userID, time.Now(), claimer)
	if err != nil {
		return nil, fmt.Errorf("failed to unclaim item: %w", err)
	}

	return r.afterTransition(ctx, result, id)
}

func (r *itemRepository) SetStatus(ctx context.Context, id int64, status models.ItemStatus, actorID int64) (*models.Item, error) {
	query := `
		UPDATE items
		SET status = $2,
		    claimed_by_id = CASE
		        WHEN $2 = 'available' THEN NULL
		        ELSE COALESCE(claimed_by_id, $3)
		    END,
		    edited_by_id = $3,
		    updated_at = $4
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, actorID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to set item status: %w", err)
	}

	if err := expectOneRow(result, "item", id); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// afterTransition resolves a conditional update that touched no row into
// ErrNotFound or ErrConflict, and reloads the item otherwise.
func (r *itemRepository) afterTransition(ctx context.Context, result sql.Result, id int64) (*models.Item, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	item, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	if rowsAffected == 0 {
		return item, fmt.Errorf("item %d is %s: %w", id, item.Status, repository.ErrConflict)
	}

	return item, nil
}

func expectOneRow(result sql.Result, entity string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, repository.ErrNotFound)
	}

	return nil
}
