package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/pitchside/internal/store"
)

// NewsRepository stores news mentions
type NewsRepository struct {
	db *store.Database
}

// NewNewsRepository creates a new news repository
func NewNewsRepository(db *store.Database) *NewsRepository {
	return &NewsRepository{db: db}
}

// Insert stores a mention unless the (team, url) pair is already known.
// It reports whether a row was written.
func (r *NewsRepository) Insert(ctx context.Context, n store.NewsMention) (bool, error) {
	if n.PublishedAt.IsZero() {
		n.PublishedAt = time.Now()
	}

	res, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO news_mentions (team_id, source_type, source_url, author, content, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`, n.TeamID, n.SourceType, n.SourceURL, n.Author, n.Content, n.PublishedAt)
	if err != nil {
		return false, fmt.Errorf("inserting news mention: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting news mention: %w", err)
	}
	return affected > 0, nil
}
