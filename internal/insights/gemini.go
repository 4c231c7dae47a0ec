package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for insights.
const DefaultModelName = "gemini-2.5-flash"

// Severity levels an insight can carry.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Insight is one observation about a ledger.
type Insight struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// Generator turns a summary into insights.
type Generator interface {
	Generate(ctx context.Context, summary *Summary) ([]Insight, error)
}

// GeminiGenerator asks Gemini for insights.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a GenAI client. Credentials come from the
// environment (GOOGLE_API_KEY or Vertex AI settings).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends the summary to the model and parses the JSON array it
// returns.
func (g *GeminiGenerator) Generate(ctx context.Context, summary *Summary) ([]Insight, error) {
	prompt, err := buildPrompt(summary)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Generate: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Generate: empty response from model")
	}

	insights, err := parseInsights(rawText)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}
	return insights, nil
}

func buildPrompt(summary *Summary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("buildPrompt: marshal summary: %w", err)
	}

	basePrompt :=
		"You are a personal finance assistant reviewing a household ledger.\n\n" +
			"Task:\n" +
			"- Read the ledger summary below (amounts are decimal strings in the ledger currency).\n" +
			"- Point out spending patterns, credit card limits running low, and savings goals at risk.\n" +
			"- Output a JSON array of at most 5 objects.\n\n" +
			"Each object must have these fields:\n" +
			"- \"title\": string, at most 60 characters\n" +
			"- \"body\": string, one or two sentences\n" +
			"- \"severity\": one of \"info\", \"warning\", \"critical\"\n\n"

	rulesPrompt :=
		"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Output must begin with \"[\" and end with \"]\".\n"

	return basePrompt + "Ledger summary:\n" + string(data) + "\n\n" + rulesPrompt, nil
}

func parseInsights(raw string) ([]Insight, error) {
	clean := cleanModelJSON(raw)

	var out []Insight
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("parseInsights: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	kept := out[:0]
	for _, in := range out {
		if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Body) == "" {
			continue
		}
		switch in.Severity = strings.ToLower(strings.TrimSpace(in.Severity)); in.Severity {
		case SeverityInfo, SeverityWarning, SeverityCritical:
		default:
			in.Severity = SeverityInfo
		}
		kept = append(kept, in)
	}
	return kept, nil
}

// cleanModelJSON strips Markdown fences and anything outside the outermost
// JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
