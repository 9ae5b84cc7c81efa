package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/repository"
)

type reactionRepository struct {
	db *sql.DB
}

// NewReactionRepository creates a new item reaction repository
func NewReactionRepository(db *sql.DB) repository.ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Upsert(ctx context.Context, reaction *models.Reaction) (*models.Reaction, error) {
	query := `
		INSERT INTO item_reactions (item_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at
		RETURNING id, created_at`

	reaction.CreatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		reaction.ItemID, reaction.UserID, reaction.Emoji, reaction.CreatedAt,
	).Scan(&reaction.ID, &reaction.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return reaction, nil
}

func (r *reactionRepository) Remove(ctx context.Context, itemID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM item_reactions WHERE item_id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reaction of user %d on item %d: %w", userID, itemID, repository.ErrNotFound)
	}
	return nil
}
