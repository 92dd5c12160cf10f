package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const ideaColumns = `id, user_id, title, description, industry, target_market, initial_investment,
        expected_revenue, success_probability, status, location, budget_range, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (*BusinessIdea, error) {
	var idea BusinessIdea
	err := row.Scan(&idea.ID, &idea.UserID, &idea.Title, &idea.Description, &idea.Industry, &idea.TargetMarket,
		&idea.InitialInvestment, &idea.ExpectedRevenue, &idea.SuccessProbability, &idea.Status,
		&idea.Location, &idea.BudgetRange, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertIdea(ctx context.Context, db execer, idea *BusinessIdea) error {
	if idea.Status == "" {
		idea.Status = IdeaDraft
	}
	ts := now()
	res, err := db.ExecContext(ctx, `
        INSERT INTO business_ideas (user_id, title, description, industry, target_market, initial_investment,
            expected_revenue, success_probability, status, location, budget_range, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.UserID, idea.Title, idea.Description, idea.Industry, idea.TargetMarket, idea.InitialInvestment,
		idea.ExpectedRevenue, idea.SuccessProbability, idea.Status, idea.Location, idea.BudgetRange, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert business idea: %w", err)
	}
	idea.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read business idea id: %w", err)
	}
	idea.CreatedAt, idea.UpdatedAt = ts, ts
	return nil
}

func (s *SQLiteStore) CreateIdea(ctx context.Context, idea *BusinessIdea) error {
	return insertIdea(ctx, s.db, idea)
}

// CreateIdeas inserts a generated batch atomically.
func (s *SQLiteStore) CreateIdeas(ctx context.Context, ideas []BusinessIdea) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range ideas {
		if err := insertIdea(ctx, tx, &ideas[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit business ideas: %w", err)
	}
	return nil
}

// GetIdea returns ErrNotFound when the idea is missing or owned by someone else.
func (s *SQLiteStore) GetIdea(ctx context.Context, id, userID int64) (*BusinessIdea, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ideaColumns+" FROM business_ideas WHERE id = ? AND user_id = ?", id, userID)
	idea, err := scanIdea(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business idea: %w", err)
	}
	return idea, nil
}

func (s *SQLiteStore) ListIdeas(ctx context.Context, userID int64) ([]BusinessIdea, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+ideaColumns+" FROM business_ideas WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query business ideas: %w", err)
	}
	defer rows.Close()

	ideas := []BusinessIdea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business idea row: %w", err)
		}
		ideas = append(ideas, *idea)
	}
	return ideas, rows.Err()
}

// UpdateIdea overwrites the mutable fields of an owned idea.
func (s *SQLiteStore) UpdateIdea(ctx context.Context, idea *BusinessIdea) error {
	ts := now()
	res, err := s.db.ExecContext(ctx, `
        UPDATE business_ideas SET title = ?, description = ?, industry = ?, target_market = ?,
            initial_investment = ?, expected_revenue = ?, success_probability = ?, status = ?,
            location = ?, budget_range = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		idea.Title, idea.Description, idea.Industry, idea.TargetMarket, idea.InitialInvestment,
		idea.ExpectedRevenue, idea.SuccessProbability, idea.Status, idea.Location, idea.BudgetRange, ts,
		idea.ID, idea.UserID)
	if err != nil {
		return fmt.Errorf("failed to update business idea: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	idea.UpdatedAt = ts
	return nil
}

// DeleteIdea removes an owned idea together with its plans and projections.
func (s *SQLiteStore) DeleteIdea(ctx context.Context, id, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM business_ideas WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete business idea: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	for _, q := range []string{
		"DELETE FROM business_plans WHERE business_idea_id = ? AND user_id = ?",
		"DELETE FROM financial_projections WHERE business_idea_id = ? AND user_id = ?",
		"UPDATE chat_conversations SET business_idea_id = NULL WHERE business_idea_id = ? AND user_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id, userID); err != nil {
			return fmt.Errorf("failed to cascade business idea delete: %w", err)
		}
	}
	return tx.Commit()
}
