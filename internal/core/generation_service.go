package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"innostart.pro/innostart/internal/logger"
	"innostart.pro/innostart/internal/store"
)

// GenerationParams is the locale context of one generation call. It is
// always passed explicitly; nothing is remembered between requests.
type GenerationParams struct {
	Location string
	Budget   string
	Sector   string
}

type GenerationService struct {
	dbStore  *store.SQLiteStore
	model    Model
	log      *logger.Logger
	currency string
}

func NewGenerationService(db *store.SQLiteStore, model Model, log *logger.Logger, currency string) *GenerationService {
	if currency == "" {
		currency = "USD"
	}
	return &GenerationService{
		dbStore:  db,
		model:    model,
		log:      log,
		currency: currency,
	}
}

func ideaContextFrom(idea *store.BusinessIdea) *IdeaContext {
	return &IdeaContext{
		Title:             idea.Title,
		Description:       idea.Description,
		Industry:          idea.Industry,
		TargetMarket:      idea.TargetMarket,
		InitialInvestment: idea.InitialInvestment,
		ExpectedRevenue:   idea.ExpectedRevenue,
	}
}

// complete builds the prompt, calls the model and extracts the answer. The
// context is checked again once the model returns so that a cancelled
// request never reaches the store.
func (s *GenerationService) complete(ctx context.Context, in PromptInput) (Extraction, error) {
	in.Currency = s.currency
	prompt, err := BuildPrompt(in)
	if err != nil {
		return Extraction{}, err
	}
	text, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return Extraction{}, err
	}
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	ext := Extract(text)
	if ext.Degraded() {
		s.log.Warn("Model output was not valid JSON", "intent", in.Intent, "source", ext.Source)
	}
	return ext, nil
}

// GenerateIdeas asks the model for business ideas and stores every usable
// one as a draft owned by userID.
func (s *GenerationService) GenerateIdeas(ctx context.Context, userID int64, input string, p GenerationParams) ([]store.BusinessIdea, Extraction, error) {
	ext, err := s.complete(ctx, PromptInput{
		Intent:   IntentIdeas,
		Input:    input,
		Location: p.Location,
		Budget:   p.Budget,
		Sector:   p.Sector,
	})
	if err != nil {
		return nil, ext, err
	}

	drafts := MapIdeas(ext)
	budget, hasBudget := ParseBudgetRange(p.Budget)
	ideas := make([]store.BusinessIdea, 0, len(drafts))
	for _, d := range drafts {
		if hasBudget && d.InitialInvestment > 0 && !budget.Contains(d.InitialInvestment) {
			s.log.Warn("Generated idea is outside the requested budget",
				"title", d.Title, "initial_investment", d.InitialInvestment, "budget", p.Budget)
		}
		if d.rawProbability != nil {
			s.log.Warn("Generated idea has an out-of-range success probability",
				"title", d.Title, "success_probability", *d.rawProbability)
		}
		ideas = append(ideas, store.BusinessIdea{
			UserID:             userID,
			Title:              d.Title,
			Description:        d.Description,
			Industry:           d.Industry,
			TargetMarket:       d.TargetMarket,
			InitialInvestment:  d.InitialInvestment,
			ExpectedRevenue:    d.ExpectedRevenue,
			SuccessProbability: d.SuccessProbability,
			Status:             store.IdeaDraft,
			Location:           p.Location,
			BudgetRange:        p.Budget,
		})
	}
	if len(ideas) == 0 {
		return ideas, ext, nil
	}
	if err := s.dbStore.CreateIdeas(ctx, ideas); err != nil {
		return nil, ext, fmt.Errorf("failed to save generated ideas: %w", err)
	}
	s.log.Info("Generated business ideas", "user_id", userID, "count", len(ideas), "source", ext.Source)
	return ideas, ext, nil
}

func planTitle(idea *store.BusinessIdea) string {
	return idea.Title + " Business Plan"
}

// GenerateBusinessPlan writes a new plan row for an owned idea.
func (s *GenerationService) GenerateBusinessPlan(ctx context.Context, userID, ideaID int64, p GenerationParams) (int64, Extraction, error) {
	idea, err := s.dbStore.GetIdea(ctx, ideaID, userID)
	if err != nil {
		return 0, Extraction{}, err
	}
	ext, err := s.complete(ctx, PromptInput{
		Intent:   IntentBusinessPlan,
		Idea:     ideaContextFrom(idea),
		Location: p.Location,
		Budget:   p.Budget,
		Sector:   p.Sector,
	})
	if err != nil {
		return 0, ext, err
	}

	cols, err := MapPlan(ext).Columns()
	if err != nil {
		return 0, ext, err
	}
	planID, err := s.dbStore.InsertPlan(ctx, userID, ideaID, planTitle(idea), cols)
	if err != nil {
		return 0, ext, err
	}
	s.log.Info("Generated business plan", "user_id", userID, "idea_id", ideaID, "plan_id", planID, "source", ext.Source)
	return planID, ext, nil
}

// projectionData is the stored form of a projection: JSON when anything
// structured was recovered, the raw text otherwise.
func projectionData(ext Extraction) (string, error) {
	payload := ext.Payload()
	if payload == nil {
		return strings.TrimSpace(ext.Raw), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize financial projection: %w", err)
	}
	return string(raw), nil
}

func (s *GenerationService) GenerateFinancialProjection(ctx context.Context, userID, ideaID int64, p GenerationParams) (int64, Extraction, error) {
	idea, err := s.dbStore.GetIdea(ctx, ideaID, userID)
	if err != nil {
		return 0, Extraction{}, err
	}
	ext, err := s.complete(ctx, PromptInput{
		Intent:   IntentFinancialProjection,
		Idea:     ideaContextFrom(idea),
		Location: p.Location,
		Budget:   p.Budget,
	})
	if err != nil {
		return 0, ext, err
	}

	data, err := projectionData(ext)
	if err != nil {
		return 0, ext, err
	}
	projectionID, err := s.dbStore.InsertProjection(ctx, userID, ideaID, data)
	if err != nil {
		return 0, ext, err
	}
	s.log.Info("Generated financial projection", "user_id", userID, "idea_id", ideaID, "projection_id", projectionID)
	return projectionID, ext, nil
}

// sectionContent turns a single-section completion into display text. A
// pure JSON answer is flattened, preferring the key naming the section;
// anything else is used as written.
func sectionContent(ext Extraction, section SectionName) string {
	trimmed := strings.TrimSpace(ext.Raw)
	if ext.Source != SourceStrict || !(strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return trimmed
	}
	if obj, ok := ext.Value.(Object); ok {
		for _, f := range obj {
			if name, ok := LookupSection(f.Key); ok && name == section {
				return strings.TrimSpace(Flatten(f.Value))
			}
		}
	}
	return strings.TrimSpace(Flatten(ext.Value))
}

// SectionRequest names one section to (re)generate. ExistingContent, when
// set, is improved upon rather than replaced.
type SectionRequest struct {
	IdeaID          int64
	Section         SectionName
	ExistingContent string
	Params          GenerationParams
}

// GenerateSection regenerates one section of the idea's latest plan,
// creating the plan if there is none yet. Location and budget fall back to
// the values stored with the idea.
func (s *GenerationService) GenerateSection(ctx context.Context, userID int64, req SectionRequest) (int64, string, error) {
	idea, err := s.dbStore.GetIdea(ctx, req.IdeaID, userID)
	if err != nil {
		return 0, "", err
	}
	p := req.Params
	if p.Location == "" {
		p.Location = idea.Location
	}
	if p.Budget == "" {
		p.Budget = idea.BudgetRange
	}
	if p.Sector == "" {
		p.Sector = idea.Industry
	}

	ext, err := s.complete(ctx, PromptInput{
		Intent:          IntentSection,
		Idea:            ideaContextFrom(idea),
		Section:         req.Section,
		ExistingContent: req.ExistingContent,
		Location:        p.Location,
		Budget:          p.Budget,
		Sector:          p.Sector,
	})
	if err != nil {
		return 0, "", err
	}

	content := sectionContent(ext, req.Section)
	planID, err := s.dbStore.UpsertPlanSection(ctx, userID, req.IdeaID, planTitle(idea), string(req.Section), content, SplitLegacyPlan)
	if err != nil {
		return 0, "", err
	}
	s.log.Info("Generated business plan section", "user_id", userID, "idea_id", req.IdeaID, "plan_id", planID, "section", req.Section)
	return planID, content, nil
}

// PlanView is a stored plan as callers see it: every section is text.
type PlanView struct {
	ID             int64     `json:"id"`
	BusinessIdeaID int64     `json:"businessIdeaId"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	PlanSections
}

func planView(plan *store.BusinessPlan) PlanView {
	return PlanView{
		ID:             plan.ID,
		BusinessIdeaID: plan.BusinessIdeaID,
		Title:          plan.Title,
		Status:         plan.Status,
		CreatedAt:      plan.CreatedAt,
		UpdatedAt:      plan.UpdatedAt,
		PlanSections:   NormalizePlan(plan.Columns),
	}
}

func (s *GenerationService) GetBusinessPlan(ctx context.Context, userID, planID int64) (*PlanView, *store.BusinessIdea, error) {
	plan, err := s.dbStore.GetPlan(ctx, planID, userID)
	if err != nil {
		return nil, nil, err
	}
	idea, err := s.dbStore.GetIdea(ctx, plan.BusinessIdeaID, userID)
	if err != nil {
		return nil, nil, err
	}
	view := planView(plan)
	return &view, idea, nil
}

func (s *GenerationService) ListBusinessPlans(ctx context.Context, userID int64) ([]PlanView, error) {
	plans, err := s.dbStore.ListPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]PlanView, 0, len(plans))
	for i := range plans {
		views = append(views, planView(&plans[i]))
	}
	return views, nil
}

// ProjectionView pairs the stored projection with its display text.
type ProjectionView struct {
	ID             int64     `json:"id"`
	BusinessIdeaID int64     `json:"businessIdeaId"`
	Data           any       `json:"data"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *GenerationService) GetFinancialProjection(ctx context.Context, userID, projectionID int64) (*ProjectionView, error) {
	p, err := s.dbStore.GetProjection(ctx, projectionID, userID)
	if err != nil {
		return nil, err
	}
	view := &ProjectionView{
		ID:             p.ID,
		BusinessIdeaID: p.BusinessIdeaID,
		Data:           p.Data,
		Text:           p.Data,
		CreatedAt:      p.CreatedAt,
	}
	if v, err := decodeOrdered([]byte(strings.TrimSpace(p.Data))); err == nil {
		view.Data = v
		view.Text = Flatten(v)
	}
	return view, nil
}
