package core

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// IdeaDraft is one generated business idea before it is stored.
type IdeaDraft struct {
	Title              string
	Description        string
	Industry           string
	TargetMarket       string
	InitialInvestment  float64
	ExpectedRevenue    float64
	SuccessProbability int

	// rawProbability is the figure as written when it had to be clamped.
	rawProbability *float64
}

type ideaField int

const (
	ideaTitle ideaField = iota
	ideaDescription
	ideaIndustry
	ideaTargetMarket
	ideaInitialInvestment
	ideaExpectedRevenue
	ideaSuccessProbability
)

var ideaAliases = map[string]ideaField{
	"title": ideaTitle, "name": ideaTitle, "ideatitle": ideaTitle, "businessname": ideaTitle, "idea": ideaTitle,

	"description": ideaDescription, "summary": ideaDescription, "overview": ideaDescription, "concept": ideaDescription,

	"industry": ideaIndustry, "sector": ideaIndustry, "category": ideaIndustry,

	"targetmarket": ideaTargetMarket, "targetaudience": ideaTargetMarket, "targetcustomers": ideaTargetMarket,
	"market": ideaTargetMarket,

	"initialinvestment": ideaInitialInvestment, "investment": ideaInitialInvestment,
	"startupcost": ideaInitialInvestment, "startupcosts": ideaInitialInvestment, "initialcost": ideaInitialInvestment,

	"expectedrevenue": ideaExpectedRevenue, "revenue": ideaExpectedRevenue, "projectedrevenue": ideaExpectedRevenue,
	"annualrevenue": ideaExpectedRevenue, "estimatedrevenue": ideaExpectedRevenue,

	"successprobability": ideaSuccessProbability, "probability": ideaSuccessProbability,
	"successrate": ideaSuccessProbability, "successchance": ideaSuccessProbability,
}

// MapIdeas reads generated ideas out of an extraction. Figures are taken as
// the model wrote them; out-of-budget values are not corrected here.
func MapIdeas(ext Extraction) []IdeaDraft {
	switch ext.Source {
	case SourceStrict:
		var ideas []IdeaDraft
		for _, item := range ideaItems(ext.Value) {
			if d, ok := ideaFromObject(item); ok {
				ideas = append(ideas, d)
			}
		}
		return ideas
	case SourceHeuristic:
		ideas := make([]IdeaDraft, 0, len(ext.Sections))
		for _, s := range ext.Sections {
			ideas = append(ideas, IdeaDraft{Title: s.Label, Description: s.Body})
		}
		return ideas
	}
	return nil
}

// ideaItems accepts a bare array, an object wrapping the array
// ({"ideas": [...]}) or a single idea object.
func ideaItems(v any) []Object {
	var out []Object
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if obj, ok := item.(Object); ok {
				out = append(out, obj)
			}
		}
	case Object:
		for _, f := range t {
			if arr, ok := f.Value.([]any); ok {
				if items := ideaItems(arr); len(items) > 0 {
					return items
				}
			}
		}
		out = append(out, t)
	}
	return out
}

func ideaFromObject(obj Object) (IdeaDraft, bool) {
	var d IdeaDraft
	for _, f := range obj {
		field, ok := ideaAliases[compactKey(f.Key)]
		if !ok {
			continue
		}
		switch field {
		case ideaTitle:
			d.Title = strings.TrimSpace(Flatten(f.Value))
		case ideaDescription:
			d.Description = strings.TrimSpace(Flatten(f.Value))
		case ideaIndustry:
			d.Industry = strings.TrimSpace(Flatten(f.Value))
		case ideaTargetMarket:
			d.TargetMarket = strings.TrimSpace(Flatten(f.Value))
		case ideaInitialInvestment:
			d.InitialInvestment, _ = parseAmount(f.Value)
		case ideaExpectedRevenue:
			d.ExpectedRevenue, _ = parseAmount(f.Value)
		case ideaSuccessProbability:
			if p, ok := parseAmount(f.Value); ok {
				pct, clamped := probabilityPercent(p)
				d.SuccessProbability = pct
				if clamped {
					d.rawProbability = &p
				}
			}
		}
	}
	return d, d.Title != ""
}

// probabilityPercent reads a fraction below 1 as a share of 100 and clamps
// the result to 0-100, reporting whether clamping was needed.
func probabilityPercent(p float64) (int, bool) {
	if p > 0 && p < 1 {
		p *= 100
	}
	switch {
	case p < 0:
		return 0, true
	case p > 100:
		return 100, true
	}
	return int(math.Round(p)), false
}

var amountPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// parseAmount reads the first number out of a JSON number or a string such
// as "$50,000" or "75%".
func parseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case string:
		m := amountPattern.FindString(t)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// BudgetRange is a parsed budget tag. Max is zero when the range is open.
type BudgetRange struct {
	Min float64
	Max float64
}

// ParseBudgetRange understands tags such as "50000-200000", "200000+",
// "under-50000" and "<50000".
func ParseBudgetRange(tag string) (BudgetRange, bool) {
	lower := strings.ToLower(strings.TrimSpace(tag))
	nums := amountPattern.FindAllString(strings.ReplaceAll(lower, "-", " "), -1)
	vals := make([]float64, 0, len(nums))
	for _, n := range nums {
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		if err != nil {
			return BudgetRange{}, false
		}
		vals = append(vals, f)
	}
	switch len(vals) {
	case 2:
		if vals[1] < vals[0] {
			vals[0], vals[1] = vals[1], vals[0]
		}
		return BudgetRange{Min: vals[0], Max: vals[1]}, true
	case 1:
		switch {
		case strings.HasSuffix(lower, "+") || strings.Contains(lower, "above") ||
			strings.Contains(lower, "over") || strings.Contains(lower, "more"):
			return BudgetRange{Min: vals[0]}, true
		case strings.HasPrefix(lower, "<") || strings.Contains(lower, "under") ||
			strings.Contains(lower, "below") || strings.Contains(lower, "less") || strings.Contains(lower, "up to"):
			return BudgetRange{Max: vals[0]}, true
		}
	}
	return BudgetRange{}, false
}

func (b BudgetRange) Contains(v float64) bool {
	if v < b.Min {
		return false
	}
	return b.Max == 0 || v <= b.Max
}
