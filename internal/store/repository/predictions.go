package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/pitchside/internal/store"
)

// PredictionRepository reads lineup predictions written by the predictor
type PredictionRepository struct {
	db *store.Database
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *store.Database) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Get returns the stored prediction for one side of a match
func (r *PredictionRepository) Get(ctx context.Context, matchID, teamID int64) (*store.LineupPrediction, error) {
	query := `
		SELECT id, match_id, team_id, payload, created_at
		FROM lineup_predictions
		WHERE match_id = $1 AND team_id = $2
	`

	prediction := &store.LineupPrediction{}
	err := r.db.DB().GetContext(ctx, prediction, query, matchID, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prediction %d/%d: %w", matchID, teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying prediction: %w", err)
	}

	return prediction, nil
}

// Exists reports whether a prediction is stored for one side of a match
func (r *PredictionRepository) Exists(ctx context.Context, matchID, teamID int64) (bool, error) {
	var exists bool
	err := r.db.DB().GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM lineup_predictions WHERE match_id = $1 AND team_id = $2)`,
		matchID, teamID)
	if err != nil {
		return false, fmt.Errorf("checking prediction: %w", err)
	}

	return exists, nil
}
