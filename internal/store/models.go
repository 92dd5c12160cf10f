package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"createdAt"`
}

type IdeaStatus string

const (
	IdeaDraft      IdeaStatus = "draft"
	IdeaInProgress IdeaStatus = "in_progress"
	IdeaCompleted  IdeaStatus = "completed"
	IdeaPaused     IdeaStatus = "paused"
	IdeaArchived   IdeaStatus = "archived"
	IdeaActive     IdeaStatus = "active"
)

func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaDraft, IdeaInProgress, IdeaCompleted, IdeaPaused, IdeaArchived, IdeaActive:
		return true
	}
	return false
}

type BusinessIdea struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"userId"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Industry           string     `json:"industry"`
	TargetMarket       string     `json:"targetMarket"`
	InitialInvestment  float64    `json:"initialInvestment"`
	ExpectedRevenue    float64    `json:"expectedRevenue"`
	SuccessProbability int        `json:"successProbability"`
	Status             IdeaStatus `json:"status"`
	Location           string     `json:"location"`
	BudgetRange        string     `json:"budgetRange"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Section column names of business_plans, in display order.
const (
	ColExecutiveSummary     = "executive_summary"
	ColMarketAnalysis       = "market_analysis"
	ColFinancialProjections = "financial_projections"
	ColMarketingStrategy    = "marketing_strategy"
	ColOperationsPlan       = "operations_plan"
	ColRiskAnalysis         = "risk_analysis"
)

var SectionColumns = []string{
	ColExecutiveSummary,
	ColMarketAnalysis,
	ColFinancialProjections,
	ColMarketingStrategy,
	ColOperationsPlan,
	ColRiskAnalysis,
}

func IsSectionColumn(name string) bool {
	for _, c := range SectionColumns {
		if c == name {
			return true
		}
	}
	return false
}

// PlanColumns holds the six stored section columns as they are in the row.
// nil means the section was never generated.
type PlanColumns struct {
	ExecutiveSummary     *string
	MarketAnalysis       *string
	FinancialProjections *string
	MarketingStrategy    *string
	OperationsPlan       *string
	RiskAnalysis         *string
}

// Column returns a pointer to the field backing the named column, or nil
// for an unknown name.
func (p *PlanColumns) Column(name string) **string {
	switch name {
	case ColExecutiveSummary:
		return &p.ExecutiveSummary
	case ColMarketAnalysis:
		return &p.MarketAnalysis
	case ColFinancialProjections:
		return &p.FinancialProjections
	case ColMarketingStrategy:
		return &p.MarketingStrategy
	case ColOperationsPlan:
		return &p.OperationsPlan
	case ColRiskAnalysis:
		return &p.RiskAnalysis
	}
	return nil
}

type BusinessPlan struct {
	ID             int64
	UserID         int64
	BusinessIdeaID int64
	Title          string
	Columns        PlanColumns
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type FinancialProjection struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	BusinessIdeaID int64     `json:"businessIdeaId"`
	Data           string    `json:"data"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Conversation struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	BusinessIdeaID *int64    `json:"businessIdeaId"` // Nullable
	Title          *string   `json:"title"`          // Nullable
	CreatedAt      time.Time `json:"createdAt"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}
