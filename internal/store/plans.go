package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const planColumns = `id, user_id, business_idea_id, title, executive_summary, market_analysis,
        financial_projections, marketing_strategy, operations_plan, risk_analysis, status, created_at, updated_at`

func scanPlan(row rowScanner) (*BusinessPlan, error) {
	var plan BusinessPlan
	var cols [6]sql.NullString
	err := row.Scan(&plan.ID, &plan.UserID, &plan.BusinessIdeaID, &plan.Title,
		&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5],
		&plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for i, name := range SectionColumns {
		if cols[i].Valid {
			v := cols[i].String
			*plan.Columns.Column(name) = &v
		}
	}
	return &plan, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// InsertPlan stores a freshly generated whole plan for an owned idea. The
// ownership check is part of the INSERT itself, so a foreign or missing idea
// inserts nothing and yields ErrNotFound.
func (s *SQLiteStore) InsertPlan(ctx context.Context, userID, ideaID int64, title string, cols PlanColumns) (int64, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO business_plans (user_id, business_idea_id, title, executive_summary, market_analysis,
            financial_projections, marketing_strategy, operations_plan, risk_analysis, status, created_at, updated_at)
        SELECT user_id, id, ?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?
        FROM business_ideas WHERE id = ? AND user_id = ?`,
		title, nullable(cols.ExecutiveSummary), nullable(cols.MarketAnalysis), nullable(cols.FinancialProjections),
		nullable(cols.MarketingStrategy), nullable(cols.OperationsPlan), nullable(cols.RiskAnalysis), ts, ts,
		ideaID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert business plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read business plan id: %w", err)
	}
	return id, nil
}

// LayoutUpgrade converts a stored row into the per-column layout. It reports
// false when the row already uses it.
type LayoutUpgrade func(PlanColumns) (PlanColumns, bool)

// UpsertPlanSection writes one section column on the idea's most recent
// plan, leaving the other five untouched. When the idea has no plan yet a
// row is created with only that column set. A non-nil upgrade runs on the
// existing row first, so a row in an older layout is split into its columns
// before the target column is replaced. Returns the plan id.
func (s *SQLiteStore) UpsertPlanSection(ctx context.Context, userID, ideaID int64, title, column, content string, upgrade LayoutUpgrade) (int64, error) {
	if !IsSectionColumn(column) {
		return 0, fmt.Errorf("unknown plan section %q", column)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var planID int64
	plan, err := scanPlan(tx.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM business_plans WHERE business_idea_id = ? AND user_id = ? ORDER BY id DESC LIMIT 1",
		ideaID, userID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// column is whitelisted above, so interpolation is safe
		res, err := tx.ExecContext(ctx, `
            INSERT INTO business_plans (user_id, business_idea_id, title, `+column+`, status, created_at, updated_at)
            SELECT user_id, id, ?, ?, 'draft', ?, ?
            FROM business_ideas WHERE id = ? AND user_id = ?`,
			title, content, now(), now(), ideaID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert business plan: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return 0, ErrNotFound
		}
		if planID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read business plan id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to look up business plan: %w", err)
	default:
		planID = plan.ID
		if upgrade != nil {
			if cols, ok := upgrade(plan.Columns); ok {
				if err := rewriteColumns(ctx, tx, planID, userID, cols); err != nil {
					return 0, err
				}
			}
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE business_plans SET "+column+" = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			content, now(), planID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to update business plan section: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit business plan section: %w", err)
	}
	return planID, nil
}

func rewriteColumns(ctx context.Context, tx *sql.Tx, planID, userID int64, cols PlanColumns) error {
	_, err := tx.ExecContext(ctx, `
        UPDATE business_plans SET executive_summary = ?, market_analysis = ?, financial_projections = ?,
            marketing_strategy = ?, operations_plan = ?, risk_analysis = ?
        WHERE id = ? AND user_id = ?`,
		nullable(cols.ExecutiveSummary), nullable(cols.MarketAnalysis), nullable(cols.FinancialProjections),
		nullable(cols.MarketingStrategy), nullable(cols.OperationsPlan), nullable(cols.RiskAnalysis),
		planID, userID)
	if err != nil {
		return fmt.Errorf("failed to split legacy business plan: %w", err)
	}
	return nil
}

// GetPlan returns ErrNotFound when the plan is missing or owned by someone else.
func (s *SQLiteStore) GetPlan(ctx context.Context, id, userID int64) (*BusinessPlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM business_plans WHERE id = ? AND user_id = ?", id, userID)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business plan: %w", err)
	}
	return plan, nil
}

// GetLatestPlanForIdea returns the most recent plan of an owned idea.
func (s *SQLiteStore) GetLatestPlanForIdea(ctx context.Context, ideaID, userID int64) (*BusinessPlan, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM business_plans WHERE business_idea_id = ? AND user_id = ? ORDER BY id DESC LIMIT 1",
		ideaID, userID)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business plan: %w", err)
	}
	return plan, nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context, userID int64) ([]BusinessPlan, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+planColumns+" FROM business_plans WHERE user_id = ? ORDER BY updated_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query business plans: %w", err)
	}
	defer rows.Close()

	plans := []BusinessPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business plan row: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}
