package core

import (
	"encoding/json"
	"testing"
)

func TestExtractStrictRoundTrip(t *testing.T) {
	text := `{"title":"Coffee Cart","figures":{"year1":1000,"year2":2500},"tags":["food","mobile"]}`
	ext := Extract(text)
	if ext.Source != SourceStrict {
		t.Fatalf("source = %s, want strict", ext.Source)
	}
	got, err := json.Marshal(ext.Value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(got) != text {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", got, text)
	}
}

func TestExtractStrictInsideProse(t *testing.T) {
	text := "Here are your ideas:\n```json\n[{\"title\":\"Coffee Cart\"},{\"title\":\"Bike Repair\"}]\n```\nGood luck!"
	ext := Extract(text)
	if ext.Source != SourceStrict {
		t.Fatalf("source = %s, want strict", ext.Source)
	}
	arr, ok := ext.Value.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("value = %#v, want array of 2", ext.Value)
	}
	first, ok := arr[0].(Object)
	if !ok {
		t.Fatalf("item = %#v, want Object", arr[0])
	}
	if v, _ := first.Get("title"); v != "Coffee Cart" {
		t.Fatalf("title = %v", v)
	}
}

func TestExtractFallsBackToHeaders(t *testing.T) {
	tests := []struct {
		name string
		text string
		key  string
		body string
	}{
		{
			name: "titled header",
			text: "Market Analysis:\nThe market is large.\nIt grows every year.",
			key:  "market_analysis",
			body: "The market is large.\nIt grows every year.",
		},
		{
			name: "unbalanced brackets",
			text: "{\"summary\": \"cut off\", \"items\": [\nMarket Analysis:\nDemand is strong.",
			key:  "market_analysis",
			body: "Demand is strong.",
		},
		{
			name: "bare thousands separator",
			text: "{\"initialInvestment\": 50,000}\nExecutive Summary:\nA mobile coffee cart.",
			key:  "executive_summary",
			body: "A mobile coffee cart.",
		},
		{
			name: "numbered upper case header",
			text: "1. EXECUTIVE SUMMARY\nWe sell coffee.\n2. RISK ANALYSIS\nWeather.",
			key:  "risk_analysis",
			body: "Weather.",
		},
		{
			name: "markdown header",
			text: "Intro text.\n## Operations Plan\nOpen at 7am.",
			key:  "operations_plan",
			body: "Open at 7am.",
		},
		{
			name: "inline body",
			text: "**Risk Analysis:** Rain reduces foot traffic.",
			key:  "risk_analysis",
			body: "Rain reduces foot traffic.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := Extract(tt.text)
			if ext.Source != SourceHeuristic {
				t.Fatalf("source = %s, want heuristic", ext.Source)
			}
			var found bool
			for _, s := range ext.Sections {
				if s.Key == tt.key {
					found = true
					if s.Body != tt.body {
						t.Fatalf("body = %q, want %q", s.Body, tt.body)
					}
				}
			}
			if !found {
				t.Fatalf("no section %q in %+v", tt.key, ext.Sections)
			}
		})
	}
}

func TestExtractHeuristicDropsPreambleAndMergesDuplicates(t *testing.T) {
	text := "Sure, here is the plan.\n\nMarket Analysis:\nFirst part.\nRisk Analysis:\nRain.\nMarket Analysis:\nSecond part.\nEmpty Header:\n"
	ext := Extract(text)
	if ext.Source != SourceHeuristic {
		t.Fatalf("source = %s, want heuristic", ext.Source)
	}
	if len(ext.Sections) != 2 {
		t.Fatalf("sections = %+v, want 2", ext.Sections)
	}
	if ext.Sections[0].Key != "market_analysis" || ext.Sections[0].Body != "First part.\n\nSecond part." {
		t.Fatalf("unexpected first section: %+v", ext.Sections[0])
	}
}

func TestExtractDataLinesAreNotHeaders(t *testing.T) {
	text := "Financial Projections:\nYear 1: $40,000\nYear 2: $60,000"
	ext := Extract(text)
	if len(ext.Sections) != 1 {
		t.Fatalf("sections = %+v, want 1", ext.Sections)
	}
	if want := "Year 1: $40,000\nYear 2: $60,000"; ext.Sections[0].Body != want {
		t.Fatalf("body = %q, want %q", ext.Sections[0].Body, want)
	}
}

func TestExtractNone(t *testing.T) {
	for _, text := range []string{"", "   \n", "I am sorry, I cannot help with that request."} {
		ext := Extract(text)
		if ext.Source != SourceNone {
			t.Fatalf("Extract(%q) source = %s, want none", text, ext.Source)
		}
		if ext.Payload() != nil {
			t.Fatalf("Extract(%q) payload = %v, want nil", text, ext.Payload())
		}
		if !ext.Degraded() {
			t.Fatalf("Extract(%q) should be degraded", text)
		}
	}
}

func TestHeuristicPayloadKeepsOrder(t *testing.T) {
	ext := Extract("Risk Analysis:\nRain.\nExecutive Summary:\nCoffee.")
	raw, err := json.Marshal(ext.Payload())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"risk_analysis":"Rain.","executive_summary":"Coffee."}`; string(raw) != want {
		t.Fatalf("payload = %s, want %s", raw, want)
	}
}
