// Package conversation drives an eligibility session: it asks for profile
// details one at a time, merges each answer into the profile and, once the
// planner reports the profile complete, evaluates the catalog.
//
// A session is an explicit State value. Step takes the current state and one
// user message and returns the next state; nothing is mutated in place, so a
// failed turn simply hands back the state it was given.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/adhikaar/internal/eligibility"
	"github.com/ppiankov/adhikaar/internal/interpret"
	"github.com/ppiankov/adhikaar/internal/llm"
	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/planner"
)

// User-facing texts
const (
	MsgGreeting        = "Hello! I'm your Adhikaar Assistant.\n\nI can help you discover government schemes you're eligible for. Let's get started!"
	MsgChecking        = "Thank you! I have all the details. Checking eligible schemes now..."
	MsgResultsHeader   = "Here are the schemes you might be eligible for:"
	MsgNoResults       = "I couldn't find any specific schemes matching your profile at the moment."
	MsgRetry           = "I'm sorry, I encountered an issue while processing that. Could you please try again?"
	MsgSessionComplete = "This session is complete. Start a new conversation to check again."
)

// Phase is the position of a session in the collect/evaluate/done cycle
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseEvaluating Phase = "evaluating"
	PhaseDone       Phase = "done"
)

// State is one session. The zero value is not valid; use Start.
type State struct {
	ID           string         `json:"id"`
	Phase        Phase          `json:"phase"`
	Profile      model.Profile  `json:"profile"`
	LastQuestion string         `json:"last_question,omitempty"`
	Eligible     []model.Scheme `json:"eligible,omitempty"`
	Turns        int            `json:"turns"`
}

// Reply is what the assistant says after a turn
type Reply struct {
	Messages []string
	// Schemes is set on the turn that completes evaluation
	Schemes []model.Scheme
	// Retry marks the generic failure reply; the state was not advanced
	Retry bool
}

// Extractor turns free text into a partial profile update. It never fails:
// problems yield an empty update.
type Extractor interface {
	Extract(ctx context.Context, text string, current model.Profile, lastQuestion string) model.Profile
}

// Phraser words questions and explanations; any error selects a template
type Phraser interface {
	Question(ctx context.Context, profile model.Profile, field model.FieldID, lastUserMessage string) (string, error)
	Closing(ctx context.Context, profile model.Profile, lastUserMessage string) (string, error)
	Explain(ctx context.Context, schemes []model.Scheme, profile model.Profile) (string, error)
}

// Catalog supplies the scheme snapshot evaluated at the end of a session
type Catalog interface {
	Load(ctx context.Context) ([]model.SchemeWithRules, error)
}

// Orchestrator runs sessions. It keeps no per-session data and may serve
// any number of sessions concurrently.
type Orchestrator struct {
	catalog   Catalog
	extractor Extractor
	phraser   Phraser
	engine    *eligibility.Engine
	logger    *zap.Logger
}

// New creates an orchestrator. extractor and phraser may be nil: answers are
// then interpreted deterministically only and questions use templates.
func New(catalog Catalog, extractor Extractor, phraser Phraser, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		extractor: extractor,
		phraser:   phraser,
		engine:    eligibility.NewEngine(),
		logger:    logging.OrNop(logger),
	}
}

// Start opens a session and asks the first question
func (o *Orchestrator) Start(ctx context.Context) (State, Reply) {
	s := State{ID: uuid.NewString(), Phase: PhaseCollecting}

	field, _ := planner.NextField(s.Profile)
	s.LastQuestion = o.question(ctx, s.Profile, field, "")

	o.logger.Debug("session started", zap.String("session", s.ID))
	return s, Reply{Messages: []string{MsgGreeting, s.LastQuestion}}
}

// Step applies one user message to s. On any failure the returned state is
// s itself and the reply is the generic retry prompt.
func (o *Orchestrator) Step(ctx context.Context, s State, text string) (next State, reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("conversation step failed",
				zap.String("session", s.ID), zap.Any("panic", r), zap.Stack("stack"))
			next, reply = s, retryReply()
		}
	}()

	switch s.Phase {
	case PhaseDone:
		return s, Reply{Messages: []string{MsgSessionComplete}}
	case PhaseEvaluating:
		return o.finish(ctx, s, s, text)
	}

	if strings.TrimSpace(text) == "" {
		return s, Reply{Messages: []string{s.LastQuestion}}
	}

	expected, _ := planner.FieldForQuestion(s.LastQuestion)
	det := interpret.Interpret(text, expected)

	var ext model.Profile
	if o.extractor != nil {
		ext = o.extractor.Extract(ctx, text, s.Profile, s.LastQuestion)
	}

	// deterministic answers override extracted ones field by field
	update := ext.Merge(det)

	next = s
	next.Profile = s.Profile.Merge(update)
	next.Turns = s.Turns + 1

	o.logger.Debug("turn merged",
		zap.String("session", s.ID),
		zap.String("expected", string(expected)),
		zap.Any("deterministic", det.Snapshot()),
		zap.Any("extracted", ext.Snapshot()))

	if field, ok := planner.NextField(next.Profile); ok {
		next.LastQuestion = o.question(ctx, next.Profile, field, text)
		return next, Reply{Messages: []string{next.LastQuestion}}
	}

	next.Phase = PhaseEvaluating
	return o.finish(ctx, s, next, text)
}

// finish evaluates s and moves it to done; on failure prev is returned
func (o *Orchestrator) finish(ctx context.Context, prev, s State, lastUserMessage string) (State, Reply) {
	eligible, closing, err := o.evaluate(ctx, s.Profile, lastUserMessage)
	if err != nil {
		o.logger.Error("evaluation failed", zap.String("session", s.ID), zap.Error(err))
		return prev, retryReply()
	}

	s.Phase = PhaseDone
	s.Eligible = eligible
	s.LastQuestion = ""

	reply := Reply{
		Messages: []string{closing, o.explain(ctx, eligible, s.Profile)},
		Schemes:  eligible,
	}
	if len(eligible) > 0 {
		reply.Messages = append(reply.Messages, MsgResultsHeader)
	} else {
		reply.Messages = append(reply.Messages, MsgNoResults)
	}
	return s, reply
}

// evaluate loads the catalog while the closing line is phrased. A catalog
// failure counts as an empty catalog.
func (o *Orchestrator) evaluate(ctx context.Context, profile model.Profile, lastUserMessage string) ([]model.Scheme, string, error) {
	var (
		snapshot    []model.SchemeWithRules
		closing     string
		fetchFailed bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return safely(func() {
			if o.catalog == nil {
				fetchFailed = true
				o.logger.Warn("catalog fetch failed", zap.String("reason", "no catalog configured"))
				return
			}
			snap, err := o.catalog.Load(gctx)
			if err != nil {
				fetchFailed = true
				o.logger.Warn("catalog fetch failed", zap.Error(err))
				return
			}
			snapshot = snap
		})
	})
	g.Go(func() error {
		return safely(func() {
			closing = o.closing(gctx, profile, lastUserMessage)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	eligible := o.engine.Evaluate(profile, snapshot)
	if len(eligible) == 0 && !fetchFailed {
		o.logger.Info("no matching schemes", zap.Int("catalog_size", len(snapshot)))
	}
	return eligible, closing, nil
}

// question returns the phrased question for field, or the template when the
// phraser is off, fails, or words it so that it no longer maps back to the
// same field on the next turn
func (o *Orchestrator) question(ctx context.Context, profile model.Profile, field model.FieldID, lastUserMessage string) string {
	tmpl := planner.TemplateQuestion(field)
	if o.phraser == nil {
		return tmpl
	}

	q, err := o.phraser.Question(ctx, profile, field, lastUserMessage)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			o.logger.Debug("using template question", zap.String("field", string(field)), zap.Error(err))
		}
		return tmpl
	}

	want, wantOK := planner.FieldForQuestion(tmpl)
	got, gotOK := planner.FieldForQuestion(q)
	if want != got || wantOK != gotOK {
		o.logger.Debug("phrased question targets another field",
			zap.String("field", string(field)), zap.String("question", q))
		return tmpl
	}
	return q
}

func (o *Orchestrator) closing(ctx context.Context, profile model.Profile, lastUserMessage string) string {
	if o.phraser == nil {
		return MsgChecking
	}
	text, err := o.phraser.Closing(ctx, profile, lastUserMessage)
	if err != nil {
		return MsgChecking
	}
	return text
}

func (o *Orchestrator) explain(ctx context.Context, schemes []model.Scheme, profile model.Profile) string {
	if len(schemes) > 0 && o.phraser != nil {
		if text, err := o.phraser.Explain(ctx, schemes, profile); err == nil {
			return text
		}
	}
	return TemplateExplanation(schemes)
}

// TemplateExplanation is the fixed summary used without a phraser
func TemplateExplanation(schemes []model.Scheme) string {
	switch len(schemes) {
	case 0:
		return "Based on the details you shared, none of the schemes in the catalog match your profile yet."
	case 1:
		return fmt.Sprintf("Based on the details you shared, you may qualify for %s.", schemes[0].Name)
	}
	names := make([]string, len(schemes))
	for i, s := range schemes {
		names[i] = s.Name
	}
	return fmt.Sprintf("Based on the details you shared, you may qualify for %d schemes: %s.",
		len(schemes), strings.Join(names, ", "))
}

func retryReply() Reply {
	return Reply{Messages: []string{MsgRetry}, Retry: true}
}

// safely runs fn, converting a panic into an error
func safely(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
