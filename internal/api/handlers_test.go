package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/auth"
	"innostart.pro/innostart/internal/config"
	"innostart.pro/innostart/internal/core"
	"innostart.pro/innostart/internal/logger"
	"innostart.pro/innostart/internal/store"
)

type stubModel struct {
	reply string
	err   error
	calls int
}

func (m *stubModel) Name() string { return "stub" }
func (m *stubModel) Close() error { return nil }
func (m *stubModel) Generate(context.Context, string) (string, error) {
	m.calls++
	return m.reply, m.err
}

type testServer struct {
	handler http.Handler
	store   *store.SQLiteStore
	model   *stubModel
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	model := &stubModel{}
	log := logger.Nop()
	h := NewAPIHandler(
		core.NewAccountService(s, log),
		core.NewIdeaService(s),
		core.NewGenerationService(s, model, log, "USD"),
		core.NewChatService(s, model, log, "USD", 10),
		log,
	)
	return &testServer{handler: NewRouter(h, log), store: s, model: model}
}

// login creates a user directly in the store and returns its bearer token.
func (ts *testServer) login(t *testing.T, email string) (int64, string) {
	t.Helper()
	u, err := ts.store.CreateUser(context.Background(), email, "Test", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := auth.GenerateJWT(u.ID)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return u.ID, token
}

func (ts *testServer) idea(t *testing.T, userID int64, title string) *store.BusinessIdea {
	t.Helper()
	idea := &store.BusinessIdea{UserID: userID, Title: title, Description: "Secret sauce", Location: "Austin", BudgetRange: "50000-200000"}
	if err := ts.store.CreateIdea(context.Background(), idea); err != nil {
		t.Fatalf("CreateIdea: %v", err)
	}
	return idea
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	for _, token := range []string{"", "not-a-jwt"} {
		rec := ts.do(t, http.MethodGet, "/api/ideas", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestSignupLoginFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "correct horse", "name": "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "correct horse") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("signup response leaks credentials: %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "correct horse", "name": "Alice",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong one"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "correct horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)

	rec = ts.do(t, http.MethodGet, "/api/ideas", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ideas with token = %d", rec.Code)
	}
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": strings.Repeat("x", 73), "name": "Alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("signup = %d %s, want 400", rec.Code, rec.Body.String())
	}
	var body struct {
		Errors apierr.ValidationErrors `json:"errors"`
	}
	decode(t, rec, &body)
	if len(body.Errors) != 1 || body.Errors[0].Field != "password" {
		t.Fatalf("errors = %+v", body.Errors)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": strings.Repeat("x", 72), "name": "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup with 72-byte password = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateIdeasValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, "alice@example.com")

	rec := ts.do(t, http.MethodPost, "/api/ai/generate-ideas", token, map[string]string{"input": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Errors []apierr.FieldError `json:"errors"`
	}
	decode(t, rec, &body)
	fields := map[string]bool{}
	for _, fe := range body.Errors {
		fields[fe.Field] = true
	}
	for _, f := range []string{"input", "location", "budget"} {
		if !fields[f] {
			t.Fatalf("missing error for %s: %+v", f, body.Errors)
		}
	}
	if ts.model.calls != 0 {
		t.Fatal("model was called for an invalid request")
	}

	rec = ts.do(t, http.MethodPost, "/api/ai/generate-business-plan-section", token, map[string]interface{}{
		"section": "team", "businessIdeaId": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad section status = %d, want 400", rec.Code)
	}
}

func TestGenerateIdeasReturnsStoredIdeas(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, "alice@example.com")
	ts.model.reply = `[{"title":"Coffee Cart","initialInvestment":60000},{"title":"Bike Repair"}]`

	rec := ts.do(t, http.MethodPost, "/api/ai/generate-ideas", token, map[string]string{
		"input": "I love coffee and bikes", "location": "Austin", "budget": "50000-200000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Ideas  []store.BusinessIdea `json:"ideas"`
		Source string               `json:"source"`
	}
	decode(t, rec, &body)
	if len(body.Ideas) != 2 || body.Ideas[0].ID == 0 || body.Source != "strict" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ts := newTestServer(t)
	aliceID, _ := ts.login(t, "alice@example.com")
	_, bobToken := ts.login(t, "bob@example.com")
	idea := ts.idea(t, aliceID, "Alice Private Venture")
	planID, err := ts.store.InsertPlan(context.Background(), aliceID, idea.ID, "Plan", store.PlanColumns{})
	if err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}
	ts.model.reply = `{"executiveSummary":"A"}`

	requests := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, fmt.Sprintf("/api/ai/business-plan/%d", planID), nil},
		{http.MethodGet, fmt.Sprintf("/api/ideas/%d", idea.ID), nil},
		{http.MethodPost, "/api/ai/generate-business-plan", map[string]interface{}{
			"businessIdeaId": idea.ID, "location": "Austin", "budget": "50000-200000"}},
		{http.MethodPost, "/api/ai/generate-business-plan-section", map[string]interface{}{
			"section": "risk_analysis", "businessIdeaId": idea.ID}},
		{http.MethodDelete, fmt.Sprintf("/api/ideas/%d", idea.ID), nil},
	}
	for _, r := range requests {
		rec := ts.do(t, r.method, r.path, bobToken, r.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s = %d, want 404", r.method, r.path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "Alice Private Venture") {
			t.Fatalf("%s %s leaks idea content", r.method, r.path)
		}
	}
	if ts.model.calls != 0 {
		t.Fatal("model was called for a foreign idea")
	}
}

func TestModelFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	aliceID, token := ts.login(t, "alice@example.com")
	idea := ts.idea(t, aliceID, "Coffee Cart")
	ts.model.err = fmt.Errorf("%w: googleapi: Error 429: quota exceeded for project 1234", apierr.ErrModelUnavailable)

	rec := ts.do(t, http.MethodPost, "/api/ai/generate-business-plan", token, map[string]interface{}{
		"businessIdeaId": idea.ID, "location": "Austin", "budget": "50000-200000",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "Failed to generate business plan" {
		t.Fatalf("error = %q", body["error"])
	}
	if strings.Contains(rec.Body.String(), "quota") {
		t.Fatal("provider detail leaked to client")
	}
}

func TestSectionGenerationEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	aliceID, token := ts.login(t, "alice@example.com")
	idea := ts.idea(t, aliceID, "Coffee Cart")
	ctx := context.Background()

	initial := map[string]string{
		store.ColMarketAnalysis:       "Commuters downtown.",
		store.ColFinancialProjections: `{"revenue":{"year1":1000}}`,
		store.ColMarketingStrategy:    "Instagram.",
		store.ColOperationsPlan:       "Open at 7am.",
		store.ColRiskAnalysis:         "Rain.",
	}
	var cols store.PlanColumns
	for name, v := range initial {
		*cols.Column(name) = &v
	}
	planID, err := ts.store.InsertPlan(ctx, aliceID, idea.ID, "Plan", cols)
	if err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}

	getPlan := func() map[string]interface{} {
		rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/ai/business-plan/%d", planID), token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get plan = %d %s", rec.Code, rec.Body.String())
		}
		var body struct {
			BusinessIdea store.BusinessIdea     `json:"businessIdea"`
			BusinessPlan map[string]interface{} `json:"businessPlan"`
		}
		decode(t, rec, &body)
		if body.BusinessIdea.ID != idea.ID {
			t.Fatalf("businessIdea = %+v", body.BusinessIdea)
		}
		return body.BusinessPlan
	}
	before := getPlan()

	ts.model.reply = "Coffee Cart brings fresh espresso to commuters."
	rec := ts.do(t, http.MethodPost, "/api/ai/generate-business-plan-section", token, map[string]interface{}{
		"section": "executive_summary", "businessIdeaId": idea.ID, "content": "",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("section = %d %s", rec.Code, rec.Body.String())
	}
	var section struct {
		Content string `json:"content"`
		PlanID  int64  `json:"planId"`
	}
	decode(t, rec, &section)
	if section.Content == "" || section.PlanID != planID {
		t.Fatalf("unexpected section response: %+v", section)
	}

	after := getPlan()
	if after[store.ColExecutiveSummary] != section.Content {
		t.Fatalf("executive_summary = %v, want %q", after[store.ColExecutiveSummary], section.Content)
	}
	for name := range initial {
		if after[name] != before[name] {
			t.Fatalf("%s changed: %v -> %v", name, before[name], after[name])
		}
	}
	if after[store.ColFinancialProjections] != "Revenue:\n  Year 1: 1000" {
		t.Fatalf("financial_projections = %v", after[store.ColFinancialProjections])
	}
}

func TestSectionGenerationOnLegacyPlan(t *testing.T) {
	ts := newTestServer(t)
	aliceID, token := ts.login(t, "alice@example.com")
	idea := ts.idea(t, aliceID, "Coffee Cart")

	blob := `{"executiveSummary":"A","marketAnalysis":"B","riskAnalysis":"R"}`
	planID, err := ts.store.InsertPlan(context.Background(), aliceID, idea.ID, "Plan", store.PlanColumns{ExecutiveSummary: &blob})
	if err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}

	getPlan := func() map[string]interface{} {
		rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/ai/business-plan/%d", planID), token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get plan = %d %s", rec.Code, rec.Body.String())
		}
		var body struct {
			BusinessPlan map[string]interface{} `json:"businessPlan"`
		}
		decode(t, rec, &body)
		return body.BusinessPlan
	}
	before := getPlan()
	if before[store.ColMarketAnalysis] != "B" {
		t.Fatalf("legacy market_analysis = %v", before[store.ColMarketAnalysis])
	}

	regenerate := func(section, reply string) {
		ts.model.reply = reply
		rec := ts.do(t, http.MethodPost, "/api/ai/generate-business-plan-section", token, map[string]interface{}{
			"section": section, "businessIdeaId": idea.ID,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("section %s = %d %s", section, rec.Code, rec.Body.String())
		}
	}

	regenerate(store.ColRiskAnalysis, "New risks.")
	after := getPlan()
	if after[store.ColRiskAnalysis] != "New risks." {
		t.Fatalf("risk_analysis = %v", after[store.ColRiskAnalysis])
	}
	for _, name := range []string{store.ColExecutiveSummary, store.ColMarketAnalysis} {
		if after[name] != before[name] {
			t.Fatalf("%s changed: %v -> %v", name, before[name], after[name])
		}
	}

	regenerate(store.ColExecutiveSummary, "New summary.")
	after = getPlan()
	if after[store.ColExecutiveSummary] != "New summary." || after[store.ColMarketAnalysis] != "B" ||
		after[store.ColRiskAnalysis] != "New risks." {
		t.Fatalf("after executive_summary regeneration = %v", after)
	}
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, "alice@example.com")
	ts.model.reply = "Start with a food vendor permit."

	rec := ts.do(t, http.MethodPost, "/api/ai/chat", token, map[string]interface{}{
		"message": "What permits do I need?", "location": "Austin", "budget": "50000-200000", "businessSector": "Food",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message        string `json:"message"`
		ConversationID int64  `json:"conversationId"`
	}
	decode(t, rec, &body)
	if body.Message != "Start with a food vendor permit." || body.ConversationID == 0 {
		t.Fatalf("unexpected chat body: %+v", body)
	}

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/ai/conversations/%d", body.ConversationID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get conversation = %d", rec.Code)
	}
	var conv struct {
		ID       int64               `json:"id"`
		Messages []store.ChatMessage `json:"messages"`
	}
	decode(t, rec, &conv)
	if conv.ID != body.ConversationID || len(conv.Messages) != 2 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}
