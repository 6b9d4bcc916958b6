package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
)

var (
	// ErrDisabled is returned when no provider is configured
	ErrDisabled = errors.New("llm provider not configured")

	// ErrNotObject means the model replied with something other than a JSON object
	ErrNotObject = errors.New("extraction payload is not a JSON object")
)

const extractorSystem = "You extract structured profile data from user messages for a government welfare scheme assistant."

// promptFields is the field catalogue shown to the model
var promptFields = []struct {
	field model.FieldID
	hint  string
}{
	{model.FieldAge, "number"},
	{model.FieldGender, `"male" | "female" | "other"`},
	{model.FieldState, "string (Indian state of residence)"},
	{model.FieldOccupation, "string"},
	{model.FieldIncome, "number (annual income in INR)"},
	{model.FieldIncomeType, `"individual" | "family"`},
	{model.FieldIsFarmer, "boolean"},
	{model.FieldOwnsLand, "boolean"},
	{model.FieldLandSize, "number (acres)"},
	{model.FieldMaritalStatus, `"single" | "married" | "widowed" | "divorced"`},
	{model.FieldCaste, `"sc" | "st" | "obc" | "general" | "ews"`},
	{model.FieldHasDisability, "boolean"},
	{model.FieldIsStudent, "boolean"},
	{model.FieldIsMinority, "boolean"},
	{model.FieldIsBPL, "boolean (below poverty line)"},
}

// Extractor turns a free-text reply into a partial Profile update
type Extractor struct {
	provider Provider
	logger   *zap.Logger
	timeout  time.Duration
	schema   *gojsonschema.Schema
}

// NewExtractor creates an extractor. A nil provider yields an extractor
// that always returns an empty update.
func NewExtractor(provider Provider, logger *zap.Logger, timeout time.Duration) (*Extractor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(profileSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	return &Extractor{
		provider: provider,
		logger:   logging.OrNop(logger),
		timeout:  timeout,
		schema:   schema,
	}, nil
}

// Extract asks the model which fields text states explicitly. It never
// fails: any problem is logged and produces an empty update.
func (e *Extractor) Extract(ctx context.Context, text string, current model.Profile, lastQuestion string) model.Profile {
	if e.provider == nil {
		return model.Profile{}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System:      extractorSystem,
		Prompt:      BuildExtractionPrompt(text, current, lastQuestion),
		Temperature: 0,
	})
	if err != nil {
		e.logger.Warn("extraction failed", zap.String("provider", e.provider.Name()), zap.Error(err))
		return model.Profile{}
	}

	update, dropped, err := e.Parse(resp.Text)
	if err != nil {
		e.logger.Warn("extraction payload rejected", zap.Error(err), zap.String("payload", resp.Text))
		return model.Profile{}
	}
	if len(dropped) > 0 {
		e.logger.Debug("extraction fields dropped", zap.Strings("fields", dropped))
	}
	return update
}

// BuildExtractionPrompt constructs the user prompt for one extraction
func BuildExtractionPrompt(text string, current model.Profile, lastQuestion string) string {
	state, err := json.Marshal(current)
	if err != nil {
		state = []byte("{}")
	}
	if lastQuestion == "" {
		lastQuestion = "(none)"
	}

	var b strings.Builder
	b.WriteString("CURRENT STATE:\n")
	b.Write(state)
	b.WriteString("\n\nLAST QUESTION ASKED:\n")
	b.WriteString(lastQuestion)
	b.WriteString("\n\nUSER MESSAGE:\n")
	b.WriteString(text)
	b.WriteString(`

RULES:
1. Extract ONLY information the user explicitly stated.
2. Never guess or infer values that were not said.
3. Never erase fields: omit anything not mentioned, never output null.
4. Use the last question to interpret short answers such as "yes" or "25".
5. Output ONLY a valid JSON object, no markdown, no explanation.

FIELDS:
`)
	for _, f := range promptFields {
		fmt.Fprintf(&b, "- %s: %s\n", f.field, f.hint)
	}
	return b.String()
}

// Parse converts a raw model reply into a Profile update. Keys that are
// unknown, null or invalid for their field are dropped and reported; a
// payload that is not a JSON object is an error.
func (e *Extractor) Parse(raw string) (model.Profile, []string, error) {
	var payload any
	if err := json.Unmarshal([]byte(CleanJSONBlock(raw)), &payload); err != nil {
		return model.Profile{}, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return model.Profile{}, nil, ErrNotObject
	}

	var dropped []string
	doc := make(map[string]any, len(obj))
	for key, v := range obj {
		f, known := model.ParseFieldID(key)
		if !known || v == nil {
			dropped = append(dropped, key)
			continue
		}
		cv, keep := coerce(f, v)
		if !keep {
			dropped = append(dropped, key)
			continue
		}
		doc[key] = cv
	}

	invalid, err := e.invalidFields(doc)
	if err != nil {
		return model.Profile{}, nil, err
	}
	for _, key := range invalid {
		delete(doc, key)
		dropped = append(dropped, key)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return model.Profile{}, nil, fmt.Errorf("re-encode payload: %w", err)
	}
	var update model.Profile
	if err := json.Unmarshal(body, &update); err != nil {
		return model.Profile{}, nil, fmt.Errorf("decode payload: %w", err)
	}

	sort.Strings(dropped)
	return update, dropped, nil
}

// invalidFields returns the keys of doc that fail schema validation
func (e *Extractor) invalidFields(doc map[string]any) ([]string, error) {
	result, err := e.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	seen := make(map[string]bool)
	var invalid []string
	for _, desc := range result.Errors() {
		field := desc.Field()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[:i]
		}
		if _, ok := doc[field]; !ok || seen[field] {
			continue
		}
		seen[field] = true
		invalid = append(invalid, field)
	}
	return invalid, nil
}

// coerce normalises the loose shapes models tend to emit: numbers as
// strings, "yes"/"no" for booleans, capitalised enum values. Values that
// cannot be coerced are returned unchanged for the schema to reject.
func coerce(f model.FieldID, v any) (any, bool) {
	switch f.Kind() {
	case model.KindInteger:
		if n, ok := toNumber(v); ok && n == math.Trunc(n) {
			return int(n), true
		}
	case model.KindNumber:
		if n, ok := toNumber(v); ok {
			return n, true
		}
	case model.KindBool:
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "yes", "true":
				return true, true
			case "no", "false":
				return false, true
			}
		}
	case model.KindEnum:
		if s, ok := v.(string); ok {
			return normaliseEnum(f, s), true
		}
	case model.KindString:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			return s, s != ""
		}
	}
	return v, true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func normaliseEnum(f model.FieldID, s string) string {
	switch f {
	case model.FieldGender:
		if g, ok := model.ParseGender(s); ok {
			return string(g)
		}
	case model.FieldIncomeType:
		if t, ok := model.ParseIncomeType(s); ok {
			return string(t)
		}
	case model.FieldMaritalStatus:
		if m, ok := model.ParseMaritalStatus(s); ok {
			return string(m)
		}
	case model.FieldCaste:
		if c, ok := model.ParseCaste(s); ok {
			return string(c)
		}
	case model.FieldIncomeRange:
		if r, ok := model.ParseIncomeRange(s); ok {
			return string(r)
		}
	}
	return s
}

// profileSchema describes a valid Profile update as JSON Schema
func profileSchema() map[string]any {
	props := make(map[string]any)
	for _, f := range model.AllFields() {
		switch f.Kind() {
		case model.KindInteger:
			props[string(f)] = map[string]any{"type": "integer", "minimum": 0, "maximum": 130}
		case model.KindNumber:
			props[string(f)] = map[string]any{"type": "number", "minimum": 0}
		case model.KindBool:
			props[string(f)] = map[string]any{"type": "boolean"}
		case model.KindEnum:
			props[string(f)] = map[string]any{"type": "string", "enum": f.EnumValues()}
		default:
			props[string(f)] = map[string]any{"type": "string", "minLength": 1}
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}
