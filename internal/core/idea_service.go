package core

import (
	"context"

	"innostart.pro/innostart/internal/store"
)

// IdeaService is the owner-scoped CRUD surface over business ideas.
type IdeaService struct {
	dbStore *store.SQLiteStore
}

func NewIdeaService(db *store.SQLiteStore) *IdeaService {
	return &IdeaService{dbStore: db}
}

// IdeaFields are the caller-editable attributes of an idea. Nil fields are
// left unchanged on update.
type IdeaFields struct {
	Title              *string
	Description        *string
	Industry           *string
	TargetMarket       *string
	InitialInvestment  *float64
	ExpectedRevenue    *float64
	SuccessProbability *int
	Status             *store.IdeaStatus
	Location           *string
	BudgetRange        *string
}

func (f IdeaFields) apply(idea *store.BusinessIdea) {
	if f.Title != nil {
		idea.Title = *f.Title
	}
	if f.Description != nil {
		idea.Description = *f.Description
	}
	if f.Industry != nil {
		idea.Industry = *f.Industry
	}
	if f.TargetMarket != nil {
		idea.TargetMarket = *f.TargetMarket
	}
	if f.InitialInvestment != nil {
		idea.InitialInvestment = *f.InitialInvestment
	}
	if f.ExpectedRevenue != nil {
		idea.ExpectedRevenue = *f.ExpectedRevenue
	}
	if f.SuccessProbability != nil {
		idea.SuccessProbability = *f.SuccessProbability
	}
	if f.Status != nil {
		idea.Status = *f.Status
	}
	if f.Location != nil {
		idea.Location = *f.Location
	}
	if f.BudgetRange != nil {
		idea.BudgetRange = *f.BudgetRange
	}
}

func (s *IdeaService) ListIdeas(ctx context.Context, userID int64) ([]store.BusinessIdea, error) {
	return s.dbStore.ListIdeas(ctx, userID)
}

func (s *IdeaService) GetIdea(ctx context.Context, userID, ideaID int64) (*store.BusinessIdea, error) {
	return s.dbStore.GetIdea(ctx, ideaID, userID)
}

func (s *IdeaService) CreateIdea(ctx context.Context, userID int64, f IdeaFields) (*store.BusinessIdea, error) {
	idea := &store.BusinessIdea{UserID: userID, Status: store.IdeaDraft}
	f.apply(idea)
	if err := s.dbStore.CreateIdea(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

func (s *IdeaService) UpdateIdea(ctx context.Context, userID, ideaID int64, f IdeaFields) (*store.BusinessIdea, error) {
	idea, err := s.dbStore.GetIdea(ctx, ideaID, userID)
	if err != nil {
		return nil, err
	}
	f.apply(idea)
	if err := s.dbStore.UpdateIdea(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

func (s *IdeaService) DeleteIdea(ctx context.Context, userID, ideaID int64) error {
	return s.dbStore.DeleteIdea(ctx, ideaID, userID)
}
