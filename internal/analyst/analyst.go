// Package analyst produces short AI commentary for a market using Gemini.
package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// User-facing messages for the degraded paths.
const (
	MsgMissingKey  = "AI Analyst unavailable (Missing API Key)."
	MsgEmpty       = "Analysis unavailable."
	MsgUnavailable = "AI Analysis failed to load. Please try again later."
)

// Generator returns the text completion of prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Analyst asks the Generator for a two-sentence view on a market. It never
// returns an error; failures map to the fixed messages above.
type Analyst struct {
	gen    Generator // nil when no API key is configured
	model  string
	logger *slog.Logger
}

// New creates an Analyst. gen may be nil.
func New(gen Generator, model string, logger *slog.Logger) *Analyst {
	if model == "" {
		model = DefaultModel
	}
	return &Analyst{
		gen:    gen,
		model:  model,
		logger: logger.With(slog.String("component", "analyst")),
	}
}

// Available reports whether a model backend is configured.
func (a *Analyst) Available() bool { return a.gen != nil }

// Analyze returns the commentary for question at the given YES price.
func (a *Analyst) Analyze(ctx context.Context, question string, yesPrice float64) string {
	if a.gen == nil {
		return MsgMissingKey
	}
	text, err := a.gen.Generate(ctx, a.model, Prompt(question, yesPrice))
	if err != nil {
		a.logger.ErrorContext(ctx, "gemini request failed", slog.String("error", err.Error()))
		return MsgUnavailable
	}
	if text = strings.TrimSpace(text); text == "" {
		return MsgEmpty
	}
	return text
}

// Prompt builds the analyst prompt. The probability is the YES price as a
// whole percentage.
func Prompt(question string, yesPrice float64) string {
	probability := int(math.Round(yesPrice * 100))
	return fmt.Sprintf(`You are a prediction market analyst.
The market question is: %q.
The current market probability for YES is %d%%.

Provide a concise 2-sentence analysis.
First sentence: Explain why the market might be priced this way based on recent general knowledge.
Second sentence: Highlight a key risk factor for the YES outcome.
Keep it neutral and financial.`, question, probability)
}

// GenAI adapts a google.golang.org/genai client to Generator.
type GenAI struct {
	client *genai.Client
}

// NewGenAI creates a Gemini API client. An empty key returns (nil, nil) so
// callers fall through to the missing-key message.
func NewGenAI(ctx context.Context, apiKey string) (*GenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("analyst: create genai client: %w", err)
	}
	return &GenAI{client: client}, nil
}

// Generate implements Generator.
func (g *GenAI) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("analyst: generate content: %w", err)
	}
	return resp.Text(), nil
}
