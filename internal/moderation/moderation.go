// Package moderation is the optional AI review of listing text. Results are
// advisory; the local banned-word filter still decides what is stored.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Verdict is the outcome of a moderation check.
type Verdict struct {
	Appropriate bool   `json:"appropriate"`
	Reason      string `json:"reason,omitempty"`
}

// Moderator reviews and rewrites listing text.
type Moderator interface {
	Moderate(ctx context.Context, text string) (Verdict, error)
	Enhance(ctx context.Context, title, description string) (string, error)
}

// generateFunc sends one prompt and returns the model's text reply.
type generateFunc func(ctx context.Context, prompt string, jsonOut bool) (string, error)

// Gemini implements Moderator with the Gemini API.
type Gemini struct {
	generate generateFunc
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		generate: func(ctx context.Context, prompt string, jsonOut bool) (string, error) {
			cfg := &genai.GenerateContentConfig{}
			if jsonOut {
				cfg.ResponseMIMEType = "application/json"
			}
			resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

func (g *Gemini) Moderate(ctx context.Context, text string) (Verdict, error) {
	prompt := `You moderate a student marketplace. Decide whether the following listing text is ` +
		`appropriate: no scams, counterfeit goods, weapons, drugs, hate or harassment. ` +
		`Reply with JSON {"appropriate": boolean, "reason": string}.` + "\n\nText:\n" + text
	raw, err := g.generate(ctx, prompt, true)
	if err != nil {
		return Verdict{}, fmt.Errorf("gemini moderate: %w", err)
	}
	return parseVerdict(raw)
}

func (g *Gemini) Enhance(ctx context.Context, title, description string) (string, error) {
	prompt := "Improve this student marketplace listing description. Keep it honest, concise " +
		"and under 2000 characters. Reply with the description only.\n\nTitle: " + title +
		"\nDescription: " + description
	raw, err := g.generate(ctx, prompt, false)
	if err != nil {
		return "", fmt.Errorf("gemini enhance: %w", err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return description, nil
	}
	return out, nil
}

func parseVerdict(raw string) (Verdict, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return Verdict{}, fmt.Errorf("decode moderation verdict: %w", err)
	}
	return v, nil
}
