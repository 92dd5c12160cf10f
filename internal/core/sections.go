package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"innostart.pro/innostart/internal/store"
)

// SectionName is one of the six canonical business plan sections. Its value
// is the storage column name.
type SectionName string

const (
	ExecutiveSummary     SectionName = store.ColExecutiveSummary
	MarketAnalysis       SectionName = store.ColMarketAnalysis
	FinancialProjections SectionName = store.ColFinancialProjections
	MarketingStrategy    SectionName = store.ColMarketingStrategy
	OperationsPlan       SectionName = store.ColOperationsPlan
	RiskAnalysis         SectionName = store.ColRiskAnalysis
)

var Sections = []SectionName{
	ExecutiveSummary, MarketAnalysis, FinancialProjections, MarketingStrategy, OperationsPlan, RiskAnalysis,
}

// Human readable heading for each section, used in prompts.
var sectionTitles = map[SectionName]string{
	ExecutiveSummary:     "Executive Summary",
	MarketAnalysis:       "Market Analysis",
	FinancialProjections: "Financial Projections",
	MarketingStrategy:    "Marketing Strategy",
	OperationsPlan:       "Operations Plan",
	RiskAnalysis:         "Risk Analysis",
}

func (s SectionName) Title() string { return sectionTitles[s] }

// sectionAliases is keyed by the lowercase alphanumeric-only form of a name,
// so camelCase, snake_case and "PROSE HEADERS" all meet on the same key.
var sectionAliases = map[string]SectionName{
	"executivesummary":  ExecutiveSummary,
	"summary":           ExecutiveSummary,
	"overview":          ExecutiveSummary,
	"businessoverview":  ExecutiveSummary,
	"executiveoverview": ExecutiveSummary,

	"marketanalysis":       MarketAnalysis,
	"marketresearch":       MarketAnalysis,
	"marketoverview":       MarketAnalysis,
	"industryanalysis":     MarketAnalysis,
	"targetmarketanalysis": MarketAnalysis,

	"financialprojections": FinancialProjections,
	"financialprojection":  FinancialProjections,
	"financials":           FinancialProjections,
	"financialplan":        FinancialProjections,
	"financialanalysis":    FinancialProjections,
	"financialforecast":    FinancialProjections,
	"projections":          FinancialProjections,

	"marketingstrategy":         MarketingStrategy,
	"marketingsales":            MarketingStrategy,
	"marketingandsales":         MarketingStrategy,
	"marketingandsalesstrategy": MarketingStrategy,
	"salesandmarketing":         MarketingStrategy,
	"marketingplan":             MarketingStrategy,
	"marketing":                 MarketingStrategy,
	"gotomarketstrategy":        MarketingStrategy,

	"operationsplan":           OperationsPlan,
	"operationalplan":          OperationsPlan,
	"operationplan":            OperationsPlan,
	"operations":               OperationsPlan,
	"operationsandmanagement":  OperationsPlan,
	"operationsmanagement":     OperationsPlan,

	"riskanalysis":       RiskAnalysis,
	"riskassessment":     RiskAnalysis,
	"risks":              RiskAnalysis,
	"riskmanagement":     RiskAnalysis,
	"risksandmitigation": RiskAnalysis,
	"riskmitigation":     RiskAnalysis,
}

func compactKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LookupSection resolves a model- or user-supplied name to its canonical
// section.
func LookupSection(name string) (SectionName, bool) {
	s, ok := sectionAliases[compactKey(name)]
	return s, ok
}

// ParseSectionName accepts only the exact canonical names.
func ParseSectionName(name string) (SectionName, bool) {
	for _, s := range Sections {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// PlanSections is the display-ready shape of a plan: every field is text.
type PlanSections struct {
	ExecutiveSummary     string `json:"executive_summary"`
	MarketAnalysis       string `json:"market_analysis"`
	FinancialProjections string `json:"financial_projections"`
	MarketingStrategy    string `json:"marketing_strategy"`
	OperationsPlan       string `json:"operations_plan"`
	RiskAnalysis         string `json:"risk_analysis"`
}

func (p *PlanSections) field(name SectionName) *string {
	switch name {
	case ExecutiveSummary:
		return &p.ExecutiveSummary
	case MarketAnalysis:
		return &p.MarketAnalysis
	case FinancialProjections:
		return &p.FinancialProjections
	case MarketingStrategy:
		return &p.MarketingStrategy
	case OperationsPlan:
		return &p.OperationsPlan
	case RiskAnalysis:
		return &p.RiskAnalysis
	}
	return nil
}

func (p PlanSections) Get(name SectionName) string {
	if f := p.field(name); f != nil {
		return *f
	}
	return ""
}

func (p *PlanSections) Set(name SectionName, text string) {
	if f := p.field(name); f != nil {
		*f = text
	}
}

// appendText adds text to a section, separating it from existing content.
func (p *PlanSections) appendText(name SectionName, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if cur := p.Get(name); cur != "" {
		text = cur + "\n\n" + text
	}
	p.Set(name, text)
}

// Flatten renders any decoded JSON value as indented display text. Objects
// become "Key: value" lines in key order, nested objects indent two spaces
// deeper, arrays become "• " bullets. A string is returned unchanged, which
// makes Flatten idempotent on its own output.
func Flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Object:
		return strings.Join(flattenObject(t, ""), "\n")
	case map[string]any:
		return strings.Join(flattenObject(objectFromMap(t), ""), "\n")
	case []any:
		return strings.Join(flattenArray(t, ""), "\n")
	default:
		return scalarString(t)
	}
}

// objectFromMap orders a plain map by key so output stays deterministic.
func objectFromMap(m map[string]any) Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(Object, 0, len(m))
	for _, k := range keys {
		obj = append(obj, Field{Key: k, Value: m[k]})
	}
	return obj
}

func flattenObject(o Object, indent string) []string {
	var lines []string
	for _, f := range o {
		title := Titleize(f.Key)
		switch val := f.Value.(type) {
		case Object:
			lines = append(lines, indent+title+":")
			lines = append(lines, flattenObject(val, indent+"  ")...)
		case map[string]any:
			lines = append(lines, indent+title+":")
			lines = append(lines, flattenObject(objectFromMap(val), indent+"  ")...)
		case []any:
			lines = append(lines, indent+title+":")
			lines = append(lines, flattenArray(val, indent+"  ")...)
		default:
			lines = append(lines, indent+title+": "+scalarString(val))
		}
	}
	return lines
}

func flattenArray(a []any, indent string) []string {
	var lines []string
	for _, item := range a {
		var sub []string
		switch val := item.(type) {
		case Object:
			sub = flattenObject(val, indent+"  ")
		case map[string]any:
			sub = flattenObject(objectFromMap(val), indent+"  ")
		case []any:
			sub = flattenArray(val, indent+"  ")
		default:
			lines = append(lines, indent+"• "+scalarString(val))
			continue
		}
		if len(sub) == 0 {
			continue
		}
		sub[0] = indent + "• " + strings.TrimPrefix(sub[0], indent+"  ")
		lines = append(lines, sub...)
	}
	return lines
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Titleize turns camelCase, snake_case or kebab-case keys into "Title Case".
func Titleize(key string) string {
	var words []string
	var cur []rune
	runes := []rune(key)
	push := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			push()
			continue
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			push()
		case i > 0 && unicode.IsDigit(r) && unicode.IsLetter(runes[i-1]):
			push()
		case i > 0 && unicode.IsLetter(r) && unicode.IsDigit(runes[i-1]):
			push()
		}
		cur = append(cur, r)
	}
	push()
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// PlanDraft is a generated plan mapped onto the canonical sections.
// Financial keeps the structured financial projection when the model
// produced one, so it can be stored in its serialized form.
type PlanDraft struct {
	Sections  PlanSections
	Financial any
}

// unwrapPlanObject descends through a single wrapper key such as
// {"businessPlan": {...}} when the top level names no section.
func unwrapPlanObject(obj Object) Object {
	for depth := 0; depth < 2; depth++ {
		for _, f := range obj {
			if _, ok := LookupSection(f.Key); ok {
				return obj
			}
		}
		if len(obj) != 1 {
			return obj
		}
		inner, ok := obj[0].Value.(Object)
		if !ok {
			return obj
		}
		obj = inner
	}
	return obj
}

// MapPlan reconciles an extraction with the six canonical sections. Content
// that cannot be attributed to a section is kept in the executive summary
// rather than dropped.
func MapPlan(ext Extraction) PlanDraft {
	var d PlanDraft
	switch ext.Source {
	case SourceStrict:
		obj, ok := ext.Value.(Object)
		if !ok {
			d.Sections.appendText(ExecutiveSummary, Flatten(ext.Value))
			return d
		}
		obj = unwrapPlanObject(obj)
		var unmatched Object
		for _, f := range obj {
			name, ok := LookupSection(f.Key)
			if !ok {
				unmatched = append(unmatched, f)
				continue
			}
			d.Sections.appendText(name, Flatten(f.Value))
			if name == FinancialProjections {
				switch f.Value.(type) {
				case Object, []any:
					d.Financial = f.Value
				}
			}
		}
		if len(unmatched) == len(obj) {
			d.Sections.appendText(ExecutiveSummary, Flatten(obj))
		}
	case SourceHeuristic:
		current := ExecutiveSummary
		for _, s := range ext.Sections {
			if name, ok := LookupSection(s.Label); ok {
				current = name
				d.Sections.appendText(name, s.Body)
				continue
			}
			// sub-headings belong to the section they appear under
			d.Sections.appendText(current, s.Label+":\n"+s.Body)
		}
	default:
		d.Sections.ExecutiveSummary = strings.TrimSpace(ext.Raw)
	}
	return d
}

// Columns converts a draft to storage form. Empty sections stay NULL; a
// structured financial projection is stored as JSON.
func (d PlanDraft) Columns() (store.PlanColumns, error) {
	var cols store.PlanColumns
	for _, name := range Sections {
		text := d.Sections.Get(name)
		if name == FinancialProjections && d.Financial != nil {
			raw, err := json.Marshal(d.Financial)
			if err != nil {
				return cols, fmt.Errorf("failed to serialize financial projections: %w", err)
			}
			text = string(raw)
		}
		if text == "" {
			continue
		}
		v := text
		*cols.Column(string(name)) = &v
	}
	return cols, nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// IsLegacyPlan reports whether a stored row predates the per-column layout:
// the whole plan sits as a JSON object in executive_summary and the other
// five columns are empty.
func IsLegacyPlan(cols store.PlanColumns) bool {
	if isBlank(cols.ExecutiveSummary) {
		return false
	}
	if !isBlank(cols.MarketAnalysis) || !isBlank(cols.FinancialProjections) || !isBlank(cols.MarketingStrategy) ||
		!isBlank(cols.OperationsPlan) || !isBlank(cols.RiskAnalysis) {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(*cols.ExecutiveSummary), "{")
}

// NormalizePlan turns a stored row, in either layout, into display text.
// It runs on every read and never rewrites stored data.
func NormalizePlan(cols store.PlanColumns) PlanSections {
	if IsLegacyPlan(cols) {
		blob := *cols.ExecutiveSummary
		v, err := decodeOrdered([]byte(strings.TrimSpace(blob)))
		obj, ok := v.(Object)
		if err != nil || !ok {
			return PlanSections{ExecutiveSummary: blob}
		}
		var out PlanSections
		for _, f := range unwrapPlanObject(obj) {
			if name, ok := LookupSection(f.Key); ok {
				out.appendText(name, Flatten(f.Value))
			}
		}
		return out
	}

	var out PlanSections
	for _, name := range Sections {
		out.Set(name, flattenColumn(*cols.Column(string(name))))
	}
	return out
}

// SplitLegacyPlan rewrites a legacy row into one text column per section so
// that a single-column write leaves the other sections readable.
func SplitLegacyPlan(cols store.PlanColumns) (store.PlanColumns, bool) {
	if !IsLegacyPlan(cols) {
		return cols, false
	}
	sections := NormalizePlan(cols)
	var out store.PlanColumns
	for _, name := range Sections {
		if text := sections.Get(name); text != "" {
			*out.Column(string(name)) = &text
		}
	}
	return out, true
}

// flattenColumn renders a stored column. JSON-valued columns (structured
// financial projections) are flattened; anything else is returned as is.
func flattenColumn(s *string) string {
	if s == nil {
		return ""
	}
	t := strings.TrimSpace(*s)
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		if v, err := decodeOrdered([]byte(t)); err == nil {
			return Flatten(v)
		}
	}
	return *s
}
