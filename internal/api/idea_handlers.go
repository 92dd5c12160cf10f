package api

import (
	"net/http"
	"strings"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/core"
	"innostart.pro/innostart/internal/store"
)

// IdeaRequest is the body of idea create and update. Omitted fields are
// left as they are on update.
type IdeaRequest struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	Industry           *string  `json:"industry"`
	TargetMarket       *string  `json:"targetMarket"`
	InitialInvestment  *float64 `json:"initialInvestment"`
	ExpectedRevenue    *float64 `json:"expectedRevenue"`
	SuccessProbability *int     `json:"successProbability"`
	Status             *string  `json:"status"`
	Location           *string  `json:"location"`
	BudgetRange        *string  `json:"budgetRange"`
}

func (req IdeaRequest) fields(requireTitle bool) (core.IdeaFields, error) {
	var errs apierr.ValidationErrors
	if (req.Title == nil && requireTitle) || (req.Title != nil && strings.TrimSpace(*req.Title) == "") {
		errs.Add("title", "Title is required")
	}
	if req.InitialInvestment != nil && *req.InitialInvestment < 0 {
		errs.Add("initialInvestment", "Initial investment cannot be negative")
	}
	if req.ExpectedRevenue != nil && *req.ExpectedRevenue < 0 {
		errs.Add("expectedRevenue", "Expected revenue cannot be negative")
	}
	if req.SuccessProbability != nil && (*req.SuccessProbability < 0 || *req.SuccessProbability > 100) {
		errs.Add("successProbability", "Success probability must be between 0 and 100")
	}
	var status *store.IdeaStatus
	if req.Status != nil {
		s := store.IdeaStatus(*req.Status)
		if !s.Valid() {
			errs.Add("status", "Status must be one of draft, in_progress, completed, paused, archived, active")
		}
		status = &s
	}
	if err := errs.Err(); err != nil {
		return core.IdeaFields{}, err
	}
	return core.IdeaFields{
		Title:              req.Title,
		Description:        req.Description,
		Industry:           req.Industry,
		TargetMarket:       req.TargetMarket,
		InitialInvestment:  req.InitialInvestment,
		ExpectedRevenue:    req.ExpectedRevenue,
		SuccessProbability: req.SuccessProbability,
		Status:             status,
		Location:           req.Location,
		BudgetRange:        req.BudgetRange,
	}, nil
}

func (h *APIHandler) ListIdeasHandler(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.ideas.ListIdeas(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to list business ideas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ideas": ideas})
}

func (h *APIHandler) GetIdeaHandler(w http.ResponseWriter, r *http.Request) {
	ideaID, err := pathID(r, "ideaID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	idea, err := h.ideas.GetIdea(r.Context(), UserIDFrom(r.Context()), ideaID)
	if err != nil {
		h.fail(w, r, err, "Failed to get business idea")
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *APIHandler) CreateIdeaHandler(w http.ResponseWriter, r *http.Request) {
	var req IdeaRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	fields, err := req.fields(true)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	idea, err := h.ideas.CreateIdea(r.Context(), UserIDFrom(r.Context()), fields)
	if err != nil {
		h.fail(w, r, err, "Failed to create business idea")
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

func (h *APIHandler) UpdateIdeaHandler(w http.ResponseWriter, r *http.Request) {
	ideaID, err := pathID(r, "ideaID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req IdeaRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	fields, err := req.fields(false)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	idea, err := h.ideas.UpdateIdea(r.Context(), UserIDFrom(r.Context()), ideaID, fields)
	if err != nil {
		h.fail(w, r, err, "Failed to update business idea")
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *APIHandler) DeleteIdeaHandler(w http.ResponseWriter, r *http.Request) {
	ideaID, err := pathID(r, "ideaID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.ideas.DeleteIdea(r.Context(), UserIDFrom(r.Context()), ideaID); err != nil {
		h.fail(w, r, err, "Failed to delete business idea")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
