package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertProjection stores a generated projection for an owned idea.
func (s *SQLiteStore) InsertProjection(ctx context.Context, userID, ideaID int64, data string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO financial_projections (user_id, business_idea_id, data, created_at)
        SELECT user_id, id, ?, ? FROM business_ideas WHERE id = ? AND user_id = ?`,
		data, now(), ideaID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert financial projection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetProjection(ctx context.Context, id, userID int64) (*FinancialProjection, error) {
	var p FinancialProjection
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, business_idea_id, data, created_at FROM financial_projections WHERE id = ? AND user_id = ?",
		id, userID).Scan(&p.ID, &p.UserID, &p.BusinessIdeaID, &p.Data, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get financial projection: %w", err)
	}
	return &p, nil
}
