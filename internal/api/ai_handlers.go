package api

import (
	"net/http"
	"strings"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/core"
	"innostart.pro/innostart/internal/store"
)

const minIdeaInputLength = 10

// generationResult is what a generation endpoint returns as the raw
// result: the recovered structure, or the completion text when nothing
// structured could be read from it.
func generationResult(ext core.Extraction) interface{} {
	if payload := ext.Payload(); payload != nil {
		return payload
	}
	return strings.TrimSpace(ext.Raw)
}

func requireText(errs *apierr.ValidationErrors, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, message)
	}
}

type GenerateIdeasRequest struct {
	Input          string `json:"input"`
	Location       string `json:"location"`
	Budget         string `json:"budget"`
	BusinessSector string `json:"businessSector"`
}

type GenerateIdeasResponse struct {
	Ideas  []store.BusinessIdea  `json:"ideas"`
	Source core.ExtractionSource `json:"source"`
}

func (h *APIHandler) GenerateIdeasHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateIdeasRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var errs apierr.ValidationErrors
	if len([]rune(strings.TrimSpace(req.Input))) < minIdeaInputLength {
		errs.Add("input", "Input must be at least 10 characters long")
	}
	requireText(&errs, "location", req.Location, "Location is required")
	requireText(&errs, "budget", req.Budget, "Budget is required")
	if err := errs.Err(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	ideas, ext, err := h.generation.GenerateIdeas(r.Context(), UserIDFrom(r.Context()), req.Input, core.GenerationParams{
		Location: req.Location,
		Budget:   req.Budget,
		Sector:   req.BusinessSector,
	})
	if err != nil {
		h.fail(w, r, err, "Failed to generate business ideas")
		return
	}
	writeJSON(w, http.StatusOK, GenerateIdeasResponse{Ideas: ideas, Source: ext.Source})
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversationId"`
	BusinessIdeaID *int64 `json:"businessIdeaId"`
	Location       string `json:"location"`
	Budget         string `json:"budget"`
	BusinessSector string `json:"businessSector"`
}

type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversationId"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var errs apierr.ValidationErrors
	requireText(&errs, "message", req.Message, "Message is required")
	requireText(&errs, "location", req.Location, "Location is required")
	requireText(&errs, "budget", req.Budget, "Budget is required")
	requireText(&errs, "businessSector", req.BusinessSector, "Business sector is required")
	if req.ConversationID != nil && *req.ConversationID <= 0 {
		errs.Add("conversationId", "Conversation id must be a positive integer")
	}
	if req.BusinessIdeaID != nil && *req.BusinessIdeaID <= 0 {
		errs.Add("businessIdeaId", "Business idea id must be a positive integer")
	}
	if err := errs.Err(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	reply, err := h.chat.Chat(r.Context(), UserIDFrom(r.Context()), core.ChatRequest{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		BusinessIdeaID: req.BusinessIdeaID,
		Params: core.GenerationParams{
			Location: req.Location,
			Budget:   req.Budget,
			Sector:   req.BusinessSector,
		},
	})
	if err != nil {
		h.fail(w, r, err, "Failed to process chat message")
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Message: reply.Message, ConversationID: reply.ConversationID})
}

// IdeaGenerationRequest is the body of the whole-plan and projection
// endpoints.
type IdeaGenerationRequest struct {
	BusinessIdeaID int64  `json:"businessIdeaId"`
	Location       string `json:"location"`
	Budget         string `json:"budget"`
	BusinessSector string `json:"businessSector"`
}

func (req IdeaGenerationRequest) validate() error {
	var errs apierr.ValidationErrors
	if req.BusinessIdeaID <= 0 {
		errs.Add("businessIdeaId", "Business idea id is required")
	}
	requireText(&errs, "location", req.Location, "Location is required")
	requireText(&errs, "budget", req.Budget, "Budget is required")
	return errs.Err()
}

func (req IdeaGenerationRequest) params() core.GenerationParams {
	return core.GenerationParams{Location: req.Location, Budget: req.Budget, Sector: req.BusinessSector}
}

type GenerateBusinessPlanResponse struct {
	PlanID       int64                 `json:"planId"`
	BusinessPlan interface{}           `json:"businessPlan"`
	Source       core.ExtractionSource `json:"source"`
}

func (h *APIHandler) GenerateBusinessPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req IdeaGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	planID, ext, err := h.generation.GenerateBusinessPlan(r.Context(), UserIDFrom(r.Context()), req.BusinessIdeaID, req.params())
	if err != nil {
		h.fail(w, r, err, "Failed to generate business plan")
		return
	}
	writeJSON(w, http.StatusOK, GenerateBusinessPlanResponse{
		PlanID:       planID,
		BusinessPlan: generationResult(ext),
		Source:       ext.Source,
	})
}

type GenerateFinancialProjectionResponse struct {
	ProjectionID        int64                 `json:"projectionId"`
	FinancialProjection interface{}           `json:"financialProjection"`
	Source              core.ExtractionSource `json:"source"`
}

func (h *APIHandler) GenerateFinancialProjectionHandler(w http.ResponseWriter, r *http.Request) {
	var req IdeaGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	projectionID, ext, err := h.generation.GenerateFinancialProjection(r.Context(), UserIDFrom(r.Context()), req.BusinessIdeaID, req.params())
	if err != nil {
		h.fail(w, r, err, "Failed to generate financial projection")
		return
	}
	writeJSON(w, http.StatusOK, GenerateFinancialProjectionResponse{
		ProjectionID:        projectionID,
		FinancialProjection: generationResult(ext),
		Source:              ext.Source,
	})
}

type GenerateSectionRequest struct {
	Section        string `json:"section"`
	BusinessIdeaID int64  `json:"businessIdeaId"`
	Content        string `json:"content"`
	Location       string `json:"location"`
	Budget         string `json:"budget"`
	BusinessSector string `json:"businessSector"`
}

type GenerateSectionResponse struct {
	Content string `json:"content"`
	PlanID  int64  `json:"planId"`
}

func (h *APIHandler) GenerateSectionHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateSectionRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var errs apierr.ValidationErrors
	section, ok := core.ParseSectionName(req.Section)
	if !ok {
		errs.Add("section", "Section must be one of executive_summary, market_analysis, financial_projections, "+
			"marketing_strategy, operations_plan, risk_analysis")
	}
	if req.BusinessIdeaID <= 0 {
		errs.Add("businessIdeaId", "Business idea id is required")
	}
	if err := errs.Err(); err != nil {
		h.fail(w, r, err, "")
		return
	}

	planID, content, err := h.generation.GenerateSection(r.Context(), UserIDFrom(r.Context()), core.SectionRequest{
		IdeaID:          req.BusinessIdeaID,
		Section:         section,
		ExistingContent: req.Content,
		Params: core.GenerationParams{
			Location: req.Location,
			Budget:   req.Budget,
			Sector:   req.BusinessSector,
		},
	})
	if err != nil {
		h.fail(w, r, err, "Failed to generate business plan section")
		return
	}
	writeJSON(w, http.StatusOK, GenerateSectionResponse{Content: content, PlanID: planID})
}

type GetBusinessPlanResponse struct {
	BusinessIdea *store.BusinessIdea `json:"businessIdea"`
	BusinessPlan *core.PlanView      `json:"businessPlan"`
}

func (h *APIHandler) GetBusinessPlanHandler(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	plan, idea, err := h.generation.GetBusinessPlan(r.Context(), UserIDFrom(r.Context()), planID)
	if err != nil {
		h.fail(w, r, err, "Failed to get business plan")
		return
	}
	writeJSON(w, http.StatusOK, GetBusinessPlanResponse{BusinessIdea: idea, BusinessPlan: plan})
}

func (h *APIHandler) ListBusinessPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := h.generation.ListBusinessPlans(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to list business plans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"businessPlans": plans})
}

func (h *APIHandler) GetFinancialProjectionHandler(w http.ResponseWriter, r *http.Request) {
	projectionID, err := pathID(r, "projectionID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	projection, err := h.generation.GetFinancialProjection(r.Context(), UserIDFrom(r.Context()), projectionID)
	if err != nil {
		h.fail(w, r, err, "Failed to get financial projection")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"financialProjection": projection})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chat.ListConversations(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

type GetConversationResponse struct {
	*store.Conversation
	Messages []store.ChatMessage `json:"messages"`
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	conv, messages, err := h.chat.GetConversation(r.Context(), UserIDFrom(r.Context()), conversationID)
	if err != nil {
		h.fail(w, r, err, "Failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, GetConversationResponse{Conversation: conv, Messages: messages})
}
