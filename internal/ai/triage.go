package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrNoSuggestion = errors.New("model returned no usable suggestion")

// SpecialtyOption is one entry of the catalog the model may choose from.
type SpecialtyOption struct {
	ID   string
	Name string
}

// Suggestion is the triage outcome: the chosen specialty plus the model's
// one-line reasoning shown to the patient.
type Suggestion struct {
	SpecialtyID   string `json:"specialtyId"`
	SpecialtyName string `json:"specialtyName"`
	Reason        string `json:"reason"`
}

// Triage suggests a specialty from free-text symptoms using Gemini. The
// model only ever picks from the provided catalog; anything it invents is
// discarded.
type Triage struct {
	client  *genai.Client
	modelID string
}

func NewTriage(ctx context.Context, apiKey, modelID string) (*Triage, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}
	return &Triage{client: client, modelID: modelID}, nil
}

func (t *Triage) Suggest(ctx context.Context, symptoms string, options []SpecialtyOption) (Suggestion, error) {
	if len(options) == 0 {
		return Suggestion{}, ErrNoSuggestion
	}

	model := t.client.GenerativeModel(t.modelID)
	model.SetTemperature(0)
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		"You route patients to a medical specialty. Answer with exactly two lines: " +
			"line 1 is the specialty name copied verbatim from the list, " +
			"line 2 is a single short sentence explaining why. No other text.",
	))

	var prompt strings.Builder
	prompt.WriteString("Specialties:\n")
	for _, opt := range options {
		prompt.WriteString("- ")
		prompt.WriteString(opt.Name)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nSymptoms: ")
	prompt.WriteString(symptoms)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		return Suggestion{}, fmt.Errorf("ai: triage completion: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return Suggestion{}, ErrNoSuggestion
	}
	return matchSuggestion(text, options)
}

func (t *Triage) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String())
}

// matchSuggestion maps the model's first line back onto the catalog. The
// comparison is case-insensitive and tolerates the name appearing inside a
// longer first line.
func matchSuggestion(text string, options []SpecialtyOption) (Suggestion, error) {
	lines := strings.SplitN(text, "\n", 2)
	first := strings.ToLower(strings.TrimSpace(lines[0]))
	reason := ""
	if len(lines) > 1 {
		reason = strings.TrimSpace(lines[1])
	}

	for _, opt := range options {
		if strings.Contains(first, strings.ToLower(opt.Name)) {
			return Suggestion{
				SpecialtyID:   opt.ID,
				SpecialtyName: opt.Name,
				Reason:        reason,
			}, nil
		}
	}
	return Suggestion{}, ErrNoSuggestion
}
