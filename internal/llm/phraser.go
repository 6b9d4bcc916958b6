package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/planner"
)

const phraserSystem = "You are Adhikaar, a friendly assistant helping Indian citizens discover government welfare schemes. Reply in plain conversational English."

// Phraser words questions and explanations. Callers fall back to fixed
// templates whenever it returns an error.
type Phraser struct {
	provider    Provider
	logger      *zap.Logger
	temperature float32
}

// NewPhraser creates a phraser; a nil provider makes every call return ErrDisabled
func NewPhraser(provider Provider, logger *zap.Logger) *Phraser {
	return &Phraser{provider: provider, logger: logging.OrNop(logger), temperature: DefaultConfig().Temperature}
}

// WithTemperature sets the sampling temperature of every phrasing request
func (p *Phraser) WithTemperature(t float32) *Phraser {
	p.temperature = t
	return p
}

// Question asks for field after acknowledging the user's last message
func (p *Phraser) Question(ctx context.Context, profile model.Profile, field model.FieldID, lastUserMessage string) (string, error) {
	hint := ""
	switch field {
	case model.FieldIncome:
		hint = " Ask for the annual family income in rupees."
	case model.FieldOccupation:
		hint = " Give a few examples such as daily wage worker, teacher or shopkeeper."
	}

	prompt := fmt.Sprintf(`Known details: %s
The user just said: %q
Briefly acknowledge what they said, then ask for their %s.%s
Use fewer than 2 sentences. Ask only for this one detail.`,
		profileJSON(profile), lastUserMessage, planner.Label(field), hint)

	return p.complete(ctx, "question", prompt)
}

// Closing produces the message shown once all details are collected
func (p *Phraser) Closing(ctx context.Context, profile model.Profile, lastUserMessage string) (string, error) {
	prompt := fmt.Sprintf(`Known details: %s
The user just said: %q
All required details are collected. Thank the user and say you are now checking which schemes they qualify for.
Use at most 1 sentence.`, profileJSON(profile), lastUserMessage)

	return p.complete(ctx, "closing", prompt)
}

// Explain summarises why the matched schemes suit the profile
func (p *Phraser) Explain(ctx context.Context, schemes []model.Scheme, profile model.Profile) (string, error) {
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		names = append(names, s.Name)
	}

	prompt := fmt.Sprintf(`User profile: %s
Matched schemes: %s
Explain in simple words why these schemes suit this user. Do not promise eligibility and do not add schemes that are not listed.
Use at most 3 sentences.`, profileJSON(profile), strings.Join(names, "; "))

	return p.complete(ctx, "explain", prompt)
}

func (p *Phraser) complete(ctx context.Context, kind, prompt string) (string, error) {
	if p.provider == nil {
		return "", ErrDisabled
	}

	resp, err := p.provider.Complete(ctx, CompletionRequest{
		System:      phraserSystem,
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: p.temperature,
	})
	if err != nil {
		p.logger.Warn("phrasing failed", zap.String("kind", kind), zap.Error(err))
		return "", err
	}

	text := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if text == "" {
		return "", fmt.Errorf("empty %s response from %s", kind, p.provider.Name())
	}
	return text, nil
}

func profileJSON(p model.Profile) string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
