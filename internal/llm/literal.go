package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/planner"
)

// LiteralExtractor reads a reply as the plain value of the field the
// assistant is asking for (the planner's next field). It needs no model and
// stands in for Extractor when no provider is configured. Replies go through
// the same coercion and schema checks as model output.
type LiteralExtractor struct {
	parser *Extractor
	logger *zap.Logger
}

// NewLiteralExtractor creates a model-free extractor
func NewLiteralExtractor(logger *zap.Logger) (*LiteralExtractor, error) {
	parser, err := NewExtractor(nil, logger, 0)
	if err != nil {
		return nil, err
	}
	return &LiteralExtractor{parser: parser, logger: parser.logger}, nil
}

// Extract returns the update text implies for the pending field
func (l *LiteralExtractor) Extract(ctx context.Context, text string, current model.Profile, lastQuestion string) model.Profile {
	field, ok := planner.NextField(current)
	if !ok {
		return model.Profile{}
	}

	raw, err := json.Marshal(map[string]string{string(field): strings.TrimSpace(text)})
	if err != nil {
		return model.Profile{}
	}
	update, dropped, err := l.parser.Parse(string(raw))
	if err != nil || len(dropped) > 0 {
		l.logger.Debug("reply is not a literal value", zap.String("field", string(field)), zap.String("reply", text))
		return model.Profile{}
	}

	if update.Occupation != nil && mentionsFarming(*update.Occupation) {
		update.IsFarmer = model.Ptr(true)
	}
	return update
}

func mentionsFarming(occupation string) bool {
	o := strings.ToLower(occupation)
	for _, kw := range []string{"farm", "kisan", "agricultur", "cultivat"} {
		if strings.Contains(o, kw) {
			return true
		}
	}
	return false
}
