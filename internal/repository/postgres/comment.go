package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/repository"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new item comment repository
func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	query := `INSERT INTO item_comments (item_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	comment.CreatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		comment.ItemID, comment.UserID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `SELECT id, item_id, user_id, text, created_at FROM item_comments WHERE id = $1`

	c := &models.Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.ItemID, &c.UserID, &c.Text, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM item_comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return expectOneRow(result, "comment", id)
}
