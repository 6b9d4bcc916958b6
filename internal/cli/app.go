package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/catalog"
	"github.com/ppiankov/adhikaar/internal/conversation"
	"github.com/ppiankov/adhikaar/internal/llm"
	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/worker"
)

// app holds the collaborators a command needs
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	catalog  catalog.Provider
	closeFns []func()
}

// newApp loads configuration and opens the catalog
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	provider, closeFn, err := catalog.New(ctx, cfg.Catalog, cfg.Cache, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, catalog: provider}
	if closeFn != nil {
		a.closeFns = append(a.closeFns, closeFn)
	}
	logger.Debug("catalog ready", zap.String("source", provider.Name()))
	return a, nil
}

// Close releases the catalog and flushes the logger
func (a *app) Close() {
	for _, fn := range a.closeFns {
		fn()
	}
	_ = a.logger.Sync()
}

// snapshot loads the catalog or fails the command
func (a *app) snapshot(ctx context.Context) ([]model.SchemeWithRules, error) {
	snapshot, err := a.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", a.catalog.Name(), err)
	}
	return snapshot, nil
}

// llmProvider builds the configured provider behind the rate limiter.
// It returns nil when no provider is configured.
func (a *app) llmProvider() (llm.Provider, error) {
	config := llm.APIKeyFromEnv(llm.ConfigFromModel(a.cfg.LLM))

	p, err := llm.NewProvider(config)
	if err != nil || p == nil {
		return nil, err
	}

	endpoint := llm.Endpoint(config)
	limiter := worker.NewLimiter(a.cfg.RateLimiting.RequestsPerSecond, a.cfg.RateLimiting.BurstSize)
	if strings.EqualFold(config.Provider, "ollama") {
		// local model, no quota to protect
		limiter.SetRate(endpoint, 0, 1)
	}

	a.logger.Debug("llm provider ready", zap.String("provider", p.Name()), zap.String("endpoint", endpoint))
	return llm.NewRateLimitedProvider(p, limiter, endpoint), nil
}

// orchestrator wires the conversation loop. Without a provider replies
// are read literally and questions use templates.
func (a *app) orchestrator() (*conversation.Orchestrator, error) {
	provider, err := a.llmProvider()
	if err != nil {
		return nil, err
	}

	if provider == nil {
		a.logger.Info("no llm provider configured, reading replies literally")
		literal, err := llm.NewLiteralExtractor(a.logger)
		if err != nil {
			return nil, err
		}
		return conversation.New(a.catalog, literal, nil, a.logger), nil
	}

	extractor, err := llm.NewExtractor(provider, a.logger, a.cfg.Conversation.ExtractorTimeout)
	if err != nil {
		return nil, err
	}

	var phraser conversation.Phraser
	if a.cfg.Conversation.UsePhraser {
		phraser = llm.NewPhraser(provider, a.logger).WithTemperature(a.cfg.LLM.Temperature)
	}
	return conversation.New(a.catalog, extractor, phraser, a.logger), nil
}
