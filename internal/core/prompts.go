package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"innostart.pro/innostart/internal/apierr"
)

// Intent selects the shape of prompt and of the expected answer.
type Intent string

const (
	IntentIdeas               Intent = "idea-generation"
	IntentBusinessPlan        Intent = "full-plan-generation"
	IntentFinancialProjection Intent = "financial-projection-generation"
	IntentSection             Intent = "single-section-generation"
	IntentChat                Intent = "chat-turn"
)

const (
	advisorPersona = "You are InnoStart Pro, an experienced startup advisor and business analyst. " +
		"You give practical, specific and realistic advice grounded in the entrepreneur's location and budget."

	chatGuidelines = "Answer conversationally and concisely. Stay on the topic of starting and running the business. " +
		"If you are unsure about a local regulation or figure, say so instead of inventing it."

	titleInstruction = "Generate a very concise title (3-5 words maximum) for a conversation that starts with: %q. " +
		"Just return the title itself, nothing else."
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role    string
	Content string
}

// IdeaContext is the stored idea a plan, section or chat is about.
type IdeaContext struct {
	Title             string
	Description       string
	Industry          string
	TargetMarket      string
	InitialInvestment float64
	ExpectedRevenue   float64
}

// PromptInput carries everything a prompt may embed. Location, budget and
// sector are always passed explicitly per call.
type PromptInput struct {
	Intent          Intent
	Input           string // idea brief or chat message
	Location        string
	Budget          string
	Sector          string
	Currency        string
	Idea            *IdeaContext
	Section         SectionName
	ExistingContent string
	History         []Turn
}

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64, currency string) string {
	return amountPrinter.Sprintf("%.0f %s", v, currency)
}

// budgetClause renders the budget constraint every prompt carries.
func budgetClause(tag, currency string) string {
	if strings.TrimSpace(tag) == "" {
		return fmt.Sprintf("Express all monetary figures in %s and keep them realistic for a small business.", currency)
	}
	b, ok := ParseBudgetRange(tag)
	switch {
	case !ok:
		return fmt.Sprintf("The available budget is %q (%s). Keep all monetary figures within this budget and express them in %s.", tag, currency, currency)
	case b.Max == 0:
		return fmt.Sprintf("The available budget starts at %s. Keep all monetary figures consistent with this budget and express them in %s.",
			formatAmount(b.Min, currency), currency)
	default:
		return fmt.Sprintf("The available budget is between %s and %s. Keep all monetary figures, including the initial investment, within this range and express them in %s.",
			formatAmount(b.Min, currency), formatAmount(b.Max, currency), currency)
	}
}

func locationClause(location string) string {
	if strings.TrimSpace(location) == "" {
		return ""
	}
	return fmt.Sprintf("The business will operate in %s. Take local market conditions, customer behaviour, competition, costs and regulations in %s into account.",
		location, location)
}

func sectorClause(sector string) string {
	if strings.TrimSpace(sector) == "" {
		return ""
	}
	return fmt.Sprintf("Focus on the %s sector.", sector)
}

func ideaBlock(idea *IdeaContext, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business idea: %s\n", idea.Title)
	if idea.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", idea.Description)
	}
	if idea.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", idea.Industry)
	}
	if idea.TargetMarket != "" {
		fmt.Fprintf(&b, "Target market: %s\n", idea.TargetMarket)
	}
	if idea.InitialInvestment > 0 {
		fmt.Fprintf(&b, "Planned initial investment: %s\n", formatAmount(idea.InitialInvestment, currency))
	}
	if idea.ExpectedRevenue > 0 {
		fmt.Fprintf(&b, "Expected annual revenue: %s\n", formatAmount(idea.ExpectedRevenue, currency))
	}
	return strings.TrimRight(b.String(), "\n")
}

func missing(what string) error {
	return fmt.Errorf("%w: %s", apierr.ErrMissingContext, what)
}

// BuildPrompt assembles the instruction sent to the model for one
// generation request. It is a pure template fill and only fails when a
// mandatory piece of context is absent.
func BuildPrompt(in PromptInput) (string, error) {
	if in.Currency == "" {
		in.Currency = "USD"
	}
	switch in.Intent {
	case IntentIdeas:
		if strings.TrimSpace(in.Input) == "" {
			return "", missing("idea brief")
		}
		return ideasPrompt(in), nil
	case IntentBusinessPlan, IntentFinancialProjection:
		if in.Idea == nil || strings.TrimSpace(in.Idea.Title) == "" {
			return "", missing("idea title")
		}
		if in.Intent == IntentBusinessPlan {
			return planPrompt(in), nil
		}
		return projectionPrompt(in), nil
	case IntentSection:
		if in.Idea == nil || strings.TrimSpace(in.Idea.Title) == "" {
			return "", missing("idea title")
		}
		if _, ok := ParseSectionName(string(in.Section)); !ok {
			return "", missing("section name")
		}
		return sectionPrompt(in), nil
	case IntentChat:
		if strings.TrimSpace(in.Input) == "" {
			return "", missing("chat message")
		}
		return chatPrompt(in), nil
	}
	return "", fmt.Errorf("unknown generation intent %q", in.Intent)
}

func joinParagraphs(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func ideasPrompt(in PromptInput) string {
	format := fmt.Sprintf(`Respond ONLY with a JSON array of exactly 3 objects and no other text. Each object must have these keys:
"title" (string), "description" (string, 2-3 sentences), "industry" (string), "targetMarket" (string),
"initialInvestment" (number in %[1]s, inside the budget range), "expectedRevenue" (number, first-year revenue in %[1]s),
"successProbability" (integer from 0 to 100).`, in.Currency)

	return joinParagraphs(
		advisorPersona,
		"Generate 3 distinct business ideas for this entrepreneur.\nEntrepreneur's brief: "+strings.TrimSpace(in.Input),
		locationClause(in.Location),
		sectorClause(in.Sector),
		budgetClause(in.Budget, in.Currency),
		format,
	)
}

func planPrompt(in PromptInput) string {
	format := fmt.Sprintf(`Respond ONLY with a JSON object and no other text, using exactly these keys:
"executiveSummary" (string), "marketAnalysis" (string), "financialProjections" (object with "revenue", "expenses",
"cashFlow" and "ratios" sub-objects holding yearly figures in %s for years 1-3), "marketingStrategy" (string),
"operationsPlan" (string), "riskAnalysis" (string).`, in.Currency)

	return joinParagraphs(
		advisorPersona,
		"Write a complete business plan for the following business idea.\n"+ideaBlock(in.Idea, in.Currency),
		locationClause(in.Location),
		sectorClause(in.Sector),
		budgetClause(in.Budget, in.Currency),
		format,
	)
}

func projectionPrompt(in PromptInput) string {
	format := fmt.Sprintf(`Respond ONLY with a JSON object and no other text, using these keys:
"revenue" (object with "year1", "year2", "year3" numbers), "expenses" (object with "year1", "year2", "year3" numbers),
"cashFlow" (object with "year1", "year2", "year3" numbers), "breakEvenMonth" (integer),
"ratios" (object with "grossMargin", "netMargin", "roi" as percentages), "assumptions" (array of strings).
All amounts are in %s.`, in.Currency)

	return joinParagraphs(
		advisorPersona,
		"Prepare a three-year financial projection for the following business idea.\n"+ideaBlock(in.Idea, in.Currency),
		locationClause(in.Location),
		budgetClause(in.Budget, in.Currency),
		format,
	)
}

func sectionPrompt(in PromptInput) string {
	task := fmt.Sprintf("Write the %s section of a business plan for the following business idea.\n%s",
		in.Section.Title(), ideaBlock(in.Idea, in.Currency))

	existing := ""
	if strings.TrimSpace(in.ExistingContent) != "" {
		existing = "Improve and expand the existing content below rather than replacing it. Keep its correct facts.\n---\n" +
			strings.TrimSpace(in.ExistingContent) + "\n---"
	}

	return joinParagraphs(
		advisorPersona,
		task,
		locationClause(in.Location),
		sectorClause(in.Sector),
		budgetClause(in.Budget, in.Currency),
		existing,
		fmt.Sprintf("Respond with narrative text for the %s section only. Do not use JSON and do not write other sections.", in.Section.Title()),
	)
}

func chatPrompt(in PromptInput) string {
	ideaContext := ""
	if in.Idea != nil && strings.TrimSpace(in.Idea.Title) != "" {
		ideaContext = "The conversation is about this business idea:\n" + ideaBlock(in.Idea, in.Currency)
	}

	var transcript strings.Builder
	for _, t := range in.History {
		role := "User"
		if t.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", role, strings.TrimSpace(t.Content))
	}
	history := ""
	if transcript.Len() > 0 {
		history = "Conversation so far:\n" + strings.TrimRight(transcript.String(), "\n")
	}

	return joinParagraphs(
		advisorPersona,
		chatGuidelines,
		locationClause(in.Location),
		sectorClause(in.Sector),
		budgetClause(in.Budget, in.Currency),
		ideaContext,
		history,
		"User: "+strings.TrimSpace(in.Input)+"\nAssistant:",
	)
}

// TitlePrompt asks for a short conversation title.
func TitlePrompt(firstMessage string) string {
	return fmt.Sprintf(titleInstruction, firstMessage)
}
